package enhancer

import (
	"context"
	"errors"
	"strings"
	"time"
)

const defaultMockDelay = time.Second

// Mock is the deterministic stand-in used in development and as the error
// fallback: it waits a fixed delay to look like processing, then returns the
// input unchanged.
type Mock struct {
	delay time.Duration
}

// NewMock creates a mock enhancer. A non-positive delay falls back to 1s.
func NewMock(delay time.Duration) *Mock {
	if delay <= 0 {
		delay = defaultMockDelay
	}
	return &Mock{delay: delay}
}

func (m *Mock) Enhance(ctx context.Context, imageRef string) (string, error) {
	if strings.TrimSpace(imageRef) == "" {
		return "", errors.New("mock: image reference required")
	}
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return imageRef, nil
}

var _ Enhancer = (*Mock)(nil)
