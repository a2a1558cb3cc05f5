package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v79/webhook"

	"fotopro/internal/domain"
)

// maxWebhookBytes bounds the Stripe webhook payload we are willing to read.
const maxWebhookBytes = 1 << 20

// StripeWebhook implements POST /api/webhook. Signature failures are the
// only 4xx; processing failures return 5xx so Stripe redelivers, and
// replayed events acknowledge without reapplying.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read payload")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		a.Config.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("stripe signature verification failed")
		a.error(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
		return
	}

	if err := a.Billing.ApplyEvent(r.Context(), event); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			a.json(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("apply webhook event failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not process event")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}
