package enhanceflow

import (
	"context"

	"fotopro/internal/enhancer"
)

// Outcome is what the enhancement policy always produces: a usable image
// reference, plus whether it came from a fallback and why. The policy never
// fails outright.
type Outcome struct {
	EnhancedRef string
	Fallback    bool
	// Err explains the fallback when one happened. It is informational:
	// EnhancedRef is usable either way.
	Err error
}

// Policy selects mock vs. real enhancement and absorbs every failure into a
// fallback. Degradation order: real adapter, then mock, then the original
// reference untouched.
type Policy struct {
	Real    enhancer.Enhancer
	Mock    enhancer.Enhancer
	UseReal bool
}

// Enhance runs the policy against one image reference.
func (p Policy) Enhance(ctx context.Context, imageRef string) Outcome {
	if !p.UseReal || p.Real == nil {
		return p.viaMock(ctx, imageRef, nil)
	}
	enhanced, err := p.Real.Enhance(ctx, imageRef)
	if err != nil {
		return p.viaMock(ctx, imageRef, err)
	}
	return Outcome{EnhancedRef: enhanced}
}

func (p Policy) viaMock(ctx context.Context, imageRef string, realErr error) Outcome {
	mock := p.Mock
	if mock == nil {
		mock = enhancer.NewMock(0)
	}
	enhanced, err := mock.Enhance(ctx, imageRef)
	if err != nil {
		if realErr == nil {
			realErr = err
		}
		return Outcome{EnhancedRef: imageRef, Fallback: true, Err: realErr}
	}
	if realErr != nil {
		return Outcome{EnhancedRef: enhanced, Fallback: true, Err: realErr}
	}
	return Outcome{EnhancedRef: enhanced}
}
