package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fotopro/internal/enhanceflow"
	"fotopro/internal/guest"
	"fotopro/internal/imaging"
	"fotopro/internal/middleware"
)

const guestSessionHeader = "X-Guest-Session"

// guestSession pulls the caller's session id. There is no account behind a
// guest, the header is the whole identity.
func guestSession(r *http.Request) string {
	return r.Header.Get(guestSessionHeader)
}

func (a *App) requireGuests(w http.ResponseWriter, r *http.Request) (string, bool) {
	if a.Guests == nil || !a.Guests.Enabled() {
		a.error(w, http.StatusServiceUnavailable, "guests_disabled", "guest mode is not available")
		return "", false
	}
	id := guestSession(r)
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", guestSessionHeader+" header is required")
		return "", false
	}
	return id, true
}

// GuestEnhance runs the enhancement policy for an anonymous visitor. Nothing
// touches Postgres or blob storage: both images are thumbnailed and kept only
// in the session's Redis gallery.
func (a *App) GuestEnhance(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	sessionID, ok := a.requireGuests(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(enhanceflow.MaxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "expected multipart form with a photo field")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "photo field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, enhanceflow.MaxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read upload")
		return
	}
	if err := enhanceflow.ValidateUpload(header.Header.Get("Content-Type"), len(data)); err != nil {
		a.enhanceError(w, locale, err)
		return
	}

	compressed := imaging.Compress(data, 5, 0.7)

	ctx, cancel := context.WithTimeout(r.Context(), enhanceTimeout)
	defer cancel()
	originalURI, err := imaging.ThumbnailDataURI(compressed)
	if err != nil {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", localize(locale, "unsupported_media"))
		return
	}
	outcome := a.Policy.Enhance(ctx, originalURI)

	enhancedThumb := a.guestThumb(ctx, outcome.EnhancedRef, originalURI)

	entry := guest.Entry{
		OriginalThumb: originalURI,
		EnhancedThumb: enhancedThumb,
		Timestamp:     time.Now().UnixMilli(),
	}
	if err := a.Guests.Push(r.Context(), sessionID, entry); err != nil {
		a.Logger.Error().Err(err).Msg("push guest gallery entry failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not save to gallery")
		return
	}

	resp := map[string]any{
		"enhancedImageUrl": outcome.EnhancedRef,
		"fallback":         outcome.Fallback,
	}
	if outcome.Err != nil {
		resp["error"] = outcome.Err.Error()
	}
	a.json(w, http.StatusOK, resp)
}

var guestFetcher = &http.Client{Timeout: 30 * time.Second}

// guestThumb renders the gallery thumbnail for an enhancement result. The
// gallery stores thumbnails only, so remote and embedded results are resolved
// to bytes and shrunk; anything unusable reuses the original's thumbnail.
func (a *App) guestThumb(ctx context.Context, ref, originalThumb string) string {
	if ref == originalThumb {
		return originalThumb
	}
	var data []byte
	var err error
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err = enhanceflow.DecodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = fetchImage(ctx, ref)
	default:
		return originalThumb
	}
	if err != nil {
		a.Logger.Warn().Err(err).Msg("could not resolve enhanced image for gallery thumbnail")
		return originalThumb
	}
	thumb, err := imaging.ThumbnailDataURI(data)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("could not thumbnail enhanced image")
		return originalThumb
	}
	return thumb
}

func fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := guestFetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch enhanced image: http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, enhanceflow.MaxUploadBytes+1))
}

// GuestGallery returns the session's recent enhancements, newest first.
func (a *App) GuestGallery(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.requireGuests(w, r)
	if !ok {
		return
	}
	entries, err := a.Guests.Recent(r.Context(), sessionID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("read guest gallery failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load gallery")
		return
	}
	if entries == nil {
		entries = []guest.Entry{}
	}
	a.json(w, http.StatusOK, map[string]any{"entries": entries})
}

// GuestClear wipes the session's gallery.
func (a *App) GuestClear(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.requireGuests(w, r)
	if !ok {
		return
	}
	if err := a.Guests.Clear(r.Context(), sessionID); err != nil {
		a.Logger.Error().Err(err).Msg("clear guest gallery failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not clear gallery")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
