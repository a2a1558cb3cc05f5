package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNoCredits        = errors.New("no credits remaining")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrDuplicateEvent   = errors.New("duplicate webhook event")
	ErrEnhancerFailure  = errors.New("enhancer failure")
)
