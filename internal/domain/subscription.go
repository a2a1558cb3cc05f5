package domain

import "time"

// SubscriptionStatus represents the current billing state of a credit pack.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// Subscription is one purchased credit pack. Each checkout creates a new
// record; the user's current subscription is the most recently created
// active one, credit balances are never merged across purchases.
type Subscription struct {
	ID               string
	UserID           string
	Status           SubscriptionStatus
	PriceID          string
	RemainingCredits int
	CreatedAt        time.Time
	PeriodEnd        time.Time
}

// HasCredits reports whether the pack can still pay for an enhancement.
func (s *Subscription) HasCredits() bool {
	return s != nil && s.Status == SubscriptionActive && s.RemainingCredits > 0
}
