package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"

	"fotopro/internal/billing"
	"fotopro/internal/db"
	"fotopro/internal/domain"
	"fotopro/internal/middleware"
)

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
}

func TestCurrentSubscriptionReturnsRecord(t *testing.T) {
	app := &App{
		Logger: zerolog.Nop(),
		Store: &stubAppStore{sub: domain.Subscription{
			ID:               "sub-1",
			UserID:           "user-1",
			Status:           domain.SubscriptionActive,
			PriceID:          "price_pro",
			RemainingCredits: 17,
			PeriodEnd:        time.Now().Add(20 * 24 * time.Hour),
		}},
	}

	rec := httptest.NewRecorder()
	app.CurrentSubscription(rec, authedRequest(http.MethodGet, "/v1/subscriptions/current", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["active"] != true || out["priceId"] != "price_pro" || out["remainingCredits"] != float64(17) {
		t.Fatalf("payload = %v", out)
	}
}

func TestCurrentSubscriptionMissingIs404(t *testing.T) {
	app := &App{Logger: zerolog.Nop(), Store: &stubAppStore{subErr: domain.ErrNotFound}}

	rec := httptest.NewRecorder()
	app.CurrentSubscription(rec, authedRequest(http.MethodGet, "/v1/subscriptions/current", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

type noopBillingStore struct{}

func (noopBillingStore) RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	return true, nil
}

func (noopBillingStore) CreateSubscription(ctx context.Context, arg db.CreateSubscriptionParams) (uuid.UUID, error) {
	return uuid.New(), nil
}

func TestCreateCheckoutReturnsSessionURL(t *testing.T) {
	svc := billing.NewService(noopBillingStore{}, func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/pay/cs_test"}, nil
	}, "http://localhost", zerolog.Nop())
	app := &App{Logger: zerolog.Nop(), Store: &stubAppStore{}, Billing: svc}

	rec := httptest.NewRecorder()
	app.CreateCheckout(rec, authedRequest(http.MethodPost, "/v1/checkout", `{"priceId":"price_basic"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "checkout.stripe.com") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCreateCheckoutRejectsUnknownPrice(t *testing.T) {
	app := &App{Logger: zerolog.Nop(), Store: &stubAppStore{}}

	rec := httptest.NewRecorder()
	app.CreateCheckout(rec, authedRequest(http.MethodPost, "/v1/checkout", `{"priceId":"price_bogus"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListEnhancementsEmptyIsArray(t *testing.T) {
	app := &App{Logger: zerolog.Nop(), Store: &stubAppStore{}}

	rec := httptest.NewRecorder()
	app.ListEnhancements(rec, authedRequest(http.MethodGet, "/v1/enhancements", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"enhancements":[]`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
