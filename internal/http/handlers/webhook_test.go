package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fotopro/internal/billing"
	"fotopro/internal/db"
	"fotopro/internal/infra"
)

const testWebhookSecret = "whsec_test_secret"

type fakeBillingStore struct {
	seen map[string]bool
	subs []db.CreateSubscriptionParams
}

func (f *fakeBillingStore) RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeBillingStore) CreateSubscription(ctx context.Context, arg db.CreateSubscriptionParams) (uuid.UUID, error) {
	f.subs = append(f.subs, arg)
	return uuid.New(), nil
}

// signPayload builds a Stripe-Signature header for the payload the way the
// Stripe SDK expects it: t=<unix>,v1=<hmac-sha256 of "<t>.<payload>">.
func signPayload(payload []byte, secret string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, app *App, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(string(payload)))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	app.StripeWebhook(rec, req)
	return rec
}

func checkoutCompletedPayload(eventID string) []byte {
	return []byte(`{
		"id": "` + eventID + `",
		"type": "checkout.session.completed",
		"api_version": "2024-06-20",
		"data": {"object": {"metadata": {"userId": "user-1", "priceId": "price_premium"}}}
	}`)
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	app := webhookTestApp(&fakeBillingStore{})
	rec := postWebhook(t, app, checkoutCompletedPayload("evt_1"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	app := webhookTestApp(&fakeBillingStore{})
	payload := checkoutCompletedPayload("evt_1")
	rec := postWebhook(t, app, payload, signPayload(payload, "whsec_wrong", time.Now()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStripeWebhookGrantsCreditsOnce(t *testing.T) {
	store := &fakeBillingStore{}
	app := webhookTestApp(store)
	payload := checkoutCompletedPayload("evt_1")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	rec := postWebhook(t, app, payload, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if len(store.subs) != 1 {
		t.Fatalf("subscriptions created = %d", len(store.subs))
	}
	if store.subs[0].Credits != 15 {
		t.Fatalf("credits = %d, want 15 for price_premium", store.subs[0].Credits)
	}

	// Replayed delivery acknowledges without a second grant.
	rec = postWebhook(t, app, payload, signPayload(payload, testWebhookSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Fatalf("replay status = %d", rec.Code)
	}
	if len(store.subs) != 1 {
		t.Fatalf("replay created a duplicate subscription")
	}
}

func TestStripeWebhookIgnoresUnrelatedEvents(t *testing.T) {
	store := &fakeBillingStore{}
	app := webhookTestApp(store)
	payload := []byte(`{"id": "evt_2", "type": "invoice.paid", "api_version": "2024-06-20", "data": {"object": {}}}`)

	rec := postWebhook(t, app, payload, signPayload(payload, testWebhookSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(store.subs) != 0 {
		t.Fatal("unrelated event created a subscription")
	}
}

func webhookTestApp(store billing.Store) *App {
	return &App{
		Config:  &infra.Config{StripeWebhookSecret: testWebhookSecret},
		Logger:  zerolog.Nop(),
		Billing: billing.NewService(store, nil, "http://localhost", zerolog.Nop()),
	}
}
