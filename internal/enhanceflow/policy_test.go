package enhanceflow

import (
	"context"
	"errors"
	"testing"
)

type fakeEnhancer struct {
	result string
	err    error
	calls  int
}

func (f *fakeEnhancer) Enhance(ctx context.Context, imageRef string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.result == "" {
		return imageRef, nil
	}
	return f.result, nil
}

func TestPolicyMockModeSkipsRealAdapter(t *testing.T) {
	real := &fakeEnhancer{result: "real"}
	mock := &fakeEnhancer{}
	p := Policy{Real: real, Mock: mock, UseReal: false}

	out := p.Enhance(context.Background(), "img")
	if out.EnhancedRef != "img" || out.Fallback || out.Err != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if real.calls != 0 {
		t.Fatal("real adapter was called in mock mode")
	}
	if mock.calls != 1 {
		t.Fatalf("mock calls = %d", mock.calls)
	}
}

func TestPolicyNilRealAdapterUsesMock(t *testing.T) {
	mock := &fakeEnhancer{}
	p := Policy{Real: nil, Mock: mock, UseReal: true}

	out := p.Enhance(context.Background(), "img")
	if out.EnhancedRef != "img" || out.Fallback {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestPolicyRealSuccess(t *testing.T) {
	real := &fakeEnhancer{result: "enhanced"}
	mock := &fakeEnhancer{}
	p := Policy{Real: real, Mock: mock, UseReal: true}

	out := p.Enhance(context.Background(), "img")
	if out.EnhancedRef != "enhanced" || out.Fallback || out.Err != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if mock.calls != 0 {
		t.Fatal("mock called despite real success")
	}
}

func TestPolicyRealFailureFallsBackToMock(t *testing.T) {
	realErr := errors.New("api down")
	real := &fakeEnhancer{err: realErr}
	mock := &fakeEnhancer{}
	p := Policy{Real: real, Mock: mock, UseReal: true}

	out := p.Enhance(context.Background(), "img")
	if out.EnhancedRef != "img" {
		t.Fatalf("ref = %q", out.EnhancedRef)
	}
	if !out.Fallback {
		t.Fatal("fallback flag not set")
	}
	if !errors.Is(out.Err, realErr) {
		t.Fatalf("err = %v", out.Err)
	}
}

func TestPolicyDoubleFailureReturnsOriginal(t *testing.T) {
	real := &fakeEnhancer{err: errors.New("api down")}
	mock := &fakeEnhancer{err: errors.New("mock down")}
	p := Policy{Real: real, Mock: mock, UseReal: true}

	out := p.Enhance(context.Background(), "img")
	if out.EnhancedRef != "img" || !out.Fallback || out.Err == nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}
