package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// maxDataURIBytes caps embedded data: URIs accepted by the enhance endpoint.
const maxDataURIBytes = 20 * 1024 * 1024

const enhanceTimeout = 60 * time.Second

type enhanceRequest struct {
	ImageURL string `json:"imageUrl"`
}

type enhanceResponse struct {
	EnhancedImageURL *string `json:"enhancedImageUrl"`
	Error            string  `json:"error,omitempty"`
	Fallback         bool    `json:"fallback,omitempty"`
}

// Enhance implements POST /api/enhance. Past request validation the endpoint
// never surfaces a hard failure: every downstream error degrades to a 200
// carrying either an enhanced reference or the original as fallback.
func (a *App) Enhance(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			a.Logger.Error().Interface("panic", rec).Msg("enhance handler panicked")
			a.json(w, http.StatusOK, enhanceResponse{
				EnhancedImageURL: nil,
				Error:            "internal server error",
				Fallback:         true,
			})
		}
	}()

	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "image URL is required"})
		return
	}

	if strings.HasPrefix(req.ImageURL, "data:") && len(req.ImageURL) > maxDataURIBytes {
		a.json(w, http.StatusOK, enhanceResponse{
			EnhancedImageURL: &req.ImageURL,
			Error:            "image is too large, please use an image under 20MB",
			Fallback:         true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), enhanceTimeout)
	defer cancel()

	outcome := a.Policy.Enhance(ctx, req.ImageURL)
	resp := enhanceResponse{EnhancedImageURL: &outcome.EnhancedRef, Fallback: outcome.Fallback}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	a.json(w, http.StatusOK, resp)
}
