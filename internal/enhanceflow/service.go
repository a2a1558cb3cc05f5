package enhanceflow

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"fotopro/internal/domain"
	"fotopro/internal/imaging"
	"fotopro/internal/infra"
	"fotopro/internal/storage"
)

const (
	// MaxUploadBytes is the hard ceiling on an uploaded photo.
	MaxUploadBytes = 15 * 1024 * 1024

	// Compression target applied before the original is stored.
	compressTargetMB = 5
	compressQuality  = 0.7

	// enhanceTimeout bounds the enhancement call per attempt.
	enhanceTimeout = 60 * time.Second

	// staleAfter is how long a processing row may sit before the reconciler
	// marks it failed.
	staleAfter = 10 * time.Minute
)

// Store is the persistence surface the flow needs; *db.Queries satisfies it.
type Store interface {
	CurrentSubscription(ctx context.Context, userID string) (domain.Subscription, error)
	CreateEnhancement(ctx context.Context, userID, originalURL string) (uuid.UUID, error)
	SetEnhancementStep(ctx context.Context, id uuid.UUID, step domain.EnhancementStep) error
	CompleteEnhancement(ctx context.Context, id uuid.UUID, enhancedURL string) error
	FailEnhancement(ctx context.Context, id uuid.UUID, reason string) error
	AdjustSubscriptionCredits(ctx context.Context, id string, delta int) (int, error)
	FailStaleEnhancements(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Request is one authenticated upload.
type Request struct {
	UserID   string
	Filename string
	MIME     string
	Data     []byte
}

// Result reports a finished enhancement.
type Result struct {
	EnhancementID    string `json:"id"`
	OriginalURL      string `json:"originalUrl"`
	EnhancedURL      string `json:"enhancedUrl"`
	RemainingCredits int    `json:"remainingCredits"`
	Fallback         bool   `json:"fallback,omitempty"`
	Warning          string `json:"warning,omitempty"`
}

// Service drives the upload-enhance-store-credit pipeline. Steps run
// sequentially within the request; the row's step cursor records progress so
// a crash mid-flow is visible and reconcilable instead of silently partial.
// Credits are decremented last, so an aborted attempt never costs one.
type Service struct {
	store   Store
	blobs   storage.BlobStore
	policy  Policy
	fetcher *http.Client
	logger  infra.Logger
}

func NewService(store Store, blobs storage.BlobStore, policy Policy, logger infra.Logger) *Service {
	return &Service{
		store:   store,
		blobs:   blobs,
		policy:  policy,
		fetcher: &http.Client{Timeout: enhanceTimeout},
		logger:  logger,
	}
}

// Run executes the whole pipeline for one upload.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := ValidateUpload(req.MIME, len(req.Data)); err != nil {
		return nil, err
	}

	// Credit guard: refuse before any network work.
	sub, err := s.store.CurrentSubscription(ctx, req.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoCredits
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if !sub.HasCredits() {
		return nil, domain.ErrNoCredits
	}

	compressed := imaging.Compress(req.Data, compressTargetMB, compressQuality)

	now := time.Now()
	originalKey, err := s.blobs.Write(ctx, storage.OriginalKey(req.UserID, extFromMIME(req.MIME), now), compressed)
	if err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}
	originalURL := s.blobs.URL(originalKey)

	id, err := s.store.CreateEnhancement(ctx, req.UserID, originalURL)
	if err != nil {
		return nil, fmt.Errorf("create enhancement record: %w", err)
	}

	enhanceCtx, cancel := context.WithTimeout(ctx, enhanceTimeout)
	outcome := s.policy.Enhance(enhanceCtx, originalURL)
	cancel()
	if err := s.store.SetEnhancementStep(ctx, id, domain.StepEnhanced); err != nil {
		return s.fail(ctx, id, fmt.Errorf("advance step: %w", err))
	}

	resultBytes, err := s.resolveResult(ctx, outcome.EnhancedRef, compressed, originalURL)
	if err != nil {
		// The model answered with something that is not an image reference
		// (gpt-4o replies with prose). The attempt still succeeds: the
		// caller gets the compressed original back as a fallback.
		s.logger.Warn().Err(err).Str("enhancement_id", id.String()).Msg("unusable enhancement result, serving original")
		resultBytes = compressed
		outcome.Fallback = true
		if outcome.Err == nil {
			outcome.Err = err
		}
	}
	enhancedKey, err := s.blobs.Write(ctx, storage.EnhancedKey(req.UserID, now), resultBytes)
	if err != nil {
		return s.fail(ctx, id, fmt.Errorf("store enhanced image: %w", err))
	}
	enhancedURL := s.blobs.URL(enhancedKey)
	if err := s.store.SetEnhancementStep(ctx, id, domain.StepStored); err != nil {
		return s.fail(ctx, id, fmt.Errorf("advance step: %w", err))
	}

	if err := s.store.CompleteEnhancement(ctx, id, enhancedURL); err != nil {
		return s.fail(ctx, id, fmt.Errorf("complete enhancement record: %w", err))
	}

	remaining, err := s.store.AdjustSubscriptionCredits(ctx, sub.ID, -1)
	if errors.Is(err, domain.ErrNoCredits) {
		// Raced to zero after the guard; the work is done, nothing to charge.
		remaining = 0
	} else if err != nil {
		return s.fail(ctx, id, fmt.Errorf("decrement credits: %w", err))
	}

	res := &Result{
		EnhancementID:    id.String(),
		OriginalURL:      originalURL,
		EnhancedURL:      enhancedURL,
		RemainingCredits: remaining,
		Fallback:         outcome.Fallback,
	}
	if outcome.Err != nil {
		res.Warning = outcome.Err.Error()
	}
	return res, nil
}

// Reconcile fails rows abandoned mid-flow.
func (s *Service) Reconcile(ctx context.Context) (int64, error) {
	return s.store.FailStaleEnhancements(ctx, staleAfter)
}

// ReconcileLoop runs Reconcile on an interval until the context ends.
func (s *Service) ReconcileLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.Reconcile(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("reconcile stale enhancements failed")
				continue
			}
			if count > 0 {
				s.logger.Warn().Int64("count", count).Msg("marked stale enhancements failed")
			}
		}
	}
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, cause error) (*Result, error) {
	if err := s.store.FailEnhancement(ctx, id, cause.Error()); err != nil {
		s.logger.Error().Err(err).Str("enhancement_id", id.String()).Msg("mark enhancement failed")
	}
	return nil, cause
}

// resolveResult turns whatever reference the policy produced into image
// bytes to persist. The fallback case is the original reference, for which
// the already-compressed upload is reused without a round trip.
func (s *Service) resolveResult(ctx context.Context, ref string, original []byte, originalURL string) ([]byte, error) {
	if ref == originalURL {
		return original, nil
	}
	if strings.HasPrefix(ref, "data:") {
		return DecodeDataURI(ref)
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return s.fetch(ctx, ref)
	}
	return nil, fmt.Errorf("enhancement result is not a usable image reference")
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch enhanced image: http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, MaxUploadBytes+1))
}

// DecodeDataURI extracts the payload bytes of a base64 data: URI.
func DecodeDataURI(uri string) ([]byte, error) {
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil, errors.New("malformed data uri")
	}
	meta, payload := uri[:idx], uri[idx+1:]
	if !strings.Contains(meta, ";base64") {
		return nil, errors.New("data uri is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// ValidateUpload enforces the upload ceiling and image-only MIME rule.
func ValidateUpload(mime string, size int) error {
	if size > MaxUploadBytes {
		return domain.ErrFileTooLarge
	}
	if !strings.HasPrefix(mime, "image/") {
		return domain.ErrUnsupportedMedia
	}
	return nil
}

func extFromMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}
