package handlers

import (
	"errors"
	"io"
	"net/http"

	"fotopro/internal/domain"
	"fotopro/internal/enhanceflow"
	"fotopro/internal/middleware"
)

// CreateEnhancement implements POST /v1/enhancements: multipart upload of one
// photo, enhanced and stored synchronously.
func (a *App) CreateEnhancement(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())

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

	result, err := a.Flow.Run(r.Context(), enhanceflow.Request{
		UserID:   a.currentUserID(r),
		Filename: header.Filename,
		MIME:     header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		a.enhanceError(w, locale, err)
		return
	}
	a.json(w, http.StatusCreated, result)
}

func (a *App) enhanceError(w http.ResponseWriter, locale string, err error) {
	switch {
	case errors.Is(err, domain.ErrNoCredits):
		a.error(w, http.StatusPaymentRequired, "no_credits", localize(locale, "no_credits"))
	case errors.Is(err, domain.ErrFileTooLarge):
		a.error(w, http.StatusRequestEntityTooLarge, "file_too_large", localize(locale, "file_too_large"))
	case errors.Is(err, domain.ErrUnsupportedMedia):
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", localize(locale, "unsupported_media"))
	default:
		a.Logger.Error().Err(err).Msg("enhancement pipeline failed")
		a.error(w, http.StatusInternalServerError, "enhance_failed", localize(locale, "enhance_failed"))
	}
}

// ListEnhancements returns the caller's enhancement history, newest first.
func (a *App) ListEnhancements(w http.ResponseWriter, r *http.Request) {
	items, err := a.Store.ListEnhancements(r.Context(), a.currentUserID(r))
	if err != nil {
		a.Logger.Error().Err(err).Msg("list enhancements failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list enhancements")
		return
	}
	if items == nil {
		items = []domain.PhotoEnhancement{}
	}
	a.json(w, http.StatusOK, map[string]any{"enhancements": items})
}
