package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fotopro/internal/billing"
	"fotopro/internal/domain"
)

// CurrentSubscription returns the caller's active subscription, or a zeroed
// summary when none exists so the client can render the paywall.
func (a *App) CurrentSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := a.Store.CurrentSubscription(r.Context(), a.currentUserID(r))
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "no active subscription")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("load subscription failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load subscription")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"active":           sub.Status == domain.SubscriptionActive,
		"priceId":          sub.PriceID,
		"remainingCredits": sub.RemainingCredits,
		"periodEnd":        sub.PeriodEnd,
	})
}

type checkoutRequest struct {
	PriceID string `json:"priceId"`
}

// CreateCheckout starts a Stripe checkout session for one of the known plans.
func (a *App) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PriceID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "priceId is required")
		return
	}
	if _, ok := billing.CreditsForPrice(req.PriceID); !ok {
		a.error(w, http.StatusBadRequest, "unknown_price", "unknown price id")
		return
	}

	url, err := a.Billing.CreateCheckoutSession(r.Context(), a.currentUserID(r), req.PriceID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("create checkout session failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not start checkout")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": url})
}
