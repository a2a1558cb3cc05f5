package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"fotopro/internal/db"
	"fotopro/internal/domain"
	"fotopro/internal/infra"
)

// subscriptionGrantPeriod is how long a purchased credit pack stays current.
const subscriptionGrantPeriod = 30 * 24 * time.Hour

// Store is the persistence surface the billing service needs.
type Store interface {
	RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error)
	CreateSubscription(ctx context.Context, arg db.CreateSubscriptionParams) (uuid.UUID, error)
}

// CheckoutClient creates Stripe checkout sessions. session.New is the real
// implementation; tests substitute a fake.
type CheckoutClient func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Service owns checkout session creation and webhook event application.
type Service struct {
	store         Store
	checkout      CheckoutClient
	publicBaseURL string
	logger        infra.Logger
}

func NewService(store Store, checkout CheckoutClient, publicBaseURL string, logger infra.Logger) *Service {
	if checkout == nil {
		checkout = session.New
	}
	return &Service{
		store:         store,
		checkout:      checkout,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// CreateCheckoutSession starts a one-time payment for the given plan. The
// user id and price id ride along as session metadata so the webhook can
// apply the grant without expanding line items.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error) {
	if _, ok := CreditsForPrice(priceID); !ok {
		return "", fmt.Errorf("unknown price %q", priceID)
	}
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.publicBaseURL + "/dashboard?success=true"),
		CancelURL:  stripe.String(s.publicBaseURL + "/pricing?canceled=true"),
		Metadata: map[string]string{
			"userId":  userID,
			"priceId": priceID,
		},
	}
	sess, err := s.checkout(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// ApplyEvent applies a verified Stripe event. Only checkout.session.completed
// grants anything; every event id is recorded first so a replayed delivery is
// a no-op. Unhandled event types are acknowledged silently.
func (s *Service) ApplyEvent(ctx context.Context, event stripe.Event) error {
	first, err := s.store.RecordWebhookEvent(ctx, event.ID, string(event.Type))
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if !first {
		s.logger.Info().Str("event_id", event.ID).Msg("webhook replay ignored")
		return domain.ErrDuplicateEvent
	}

	if event.Type != "checkout.session.completed" {
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("unmarshal checkout session: %w", err)
	}
	userID := sess.Metadata["userId"]
	priceID := sess.Metadata["priceId"]
	if userID == "" || priceID == "" {
		return errors.New("checkout session missing userId/priceId metadata")
	}
	credits, ok := CreditsForPrice(priceID)
	if !ok {
		return fmt.Errorf("unknown price %q in completed session", priceID)
	}

	subID, err := s.store.CreateSubscription(ctx, db.CreateSubscriptionParams{
		UserID:    userID,
		PriceID:   priceID,
		Credits:   credits,
		PeriodEnd: time.Now().Add(subscriptionGrantPeriod),
	})
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("price_id", priceID).
		Int("credits", credits).
		Str("subscription_id", subID.String()).
		Msg("credit pack granted")
	return nil
}
