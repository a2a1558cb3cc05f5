package enhancer

import "context"

// Enhancer turns an image reference (URL or data: URI) into an enhanced one.
// Implementations must not mutate the input reference; callers own fallback
// policy, implementations just report failure.
type Enhancer interface {
	Enhance(ctx context.Context, imageRef string) (string, error)
}
