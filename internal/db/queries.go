package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fotopro/internal/domain"
)

type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type UpsertUserParams struct {
	GoogleSub string
	Email     string
	Name      string
	PhotoURL  string
	Locale    string
}

// UpsertUser creates the user on first sign-in and refreshes the profile on
// later ones. Conflict is on email so a re-linked Google account keeps the
// same user id.
func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (domain.User, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO users (id, google_sub, email, name, photo_url, locale)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE SET
  google_sub = excluded.google_sub,
  name = excluded.name,
  photo_url = excluded.photo_url,
  locale = excluded.locale,
  updated_at = now()
RETURNING id, google_sub, email, name, photo_url, locale, created_at, updated_at
`, arg.GoogleSub, arg.Email, arg.Name, arg.PhotoURL, arg.Locale)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := q.db.QueryRow(ctx, `
SELECT id, google_sub, email, name, photo_url, locale, created_at, updated_at
FROM users
WHERE id = $1
`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := q.db.QueryRow(ctx, `
SELECT id, google_sub, email, name, photo_url, locale, created_at, updated_at
FROM users
WHERE email = $1
`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var name, photo, locale sql.NullString
	err := row.Scan(&u.ID, &u.GoogleSub, &u.Email, &name, &photo, &locale, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, domain.ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.Name = name.String
	u.PhotoURL = photo.String
	u.Locale = locale.String
	return u, nil
}

type CreateSubscriptionParams struct {
	UserID    string
	PriceID   string
	Credits   int
	PeriodEnd time.Time
}

func (q *Queries) CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO subscriptions (id, user_id, status, price_id, remaining_credits, period_end)
VALUES (gen_random_uuid(), $1, 'active', $2, $3, $4)
RETURNING id
`, arg.UserID, arg.PriceID, arg.Credits, arg.PeriodEnd)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

// CurrentSubscription returns the most recently purchased active pack.
// Credit balances are intentionally not merged across purchases.
func (q *Queries) CurrentSubscription(ctx context.Context, userID string) (domain.Subscription, error) {
	row := q.db.QueryRow(ctx, `
SELECT id, user_id, status, price_id, remaining_credits, created_at, period_end
FROM subscriptions
WHERE user_id = $1 AND status = 'active'
ORDER BY created_at DESC
LIMIT 1
`, userID)
	var s domain.Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.PriceID, &s.RemainingCredits, &s.CreatedAt, &s.PeriodEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, domain.ErrNotFound
	}
	return s, err
}

// AdjustSubscriptionCredits applies a signed delta as a single field-level
// increment. The WHERE guard keeps the counter non-negative, so concurrent
// decrements can never overdraw: the losing statement matches no row and the
// caller sees ErrNoCredits.
func (q *Queries) AdjustSubscriptionCredits(ctx context.Context, id string, delta int) (int, error) {
	row := q.db.QueryRow(ctx, `
UPDATE subscriptions
SET remaining_credits = remaining_credits + $2
WHERE id = $1 AND remaining_credits + $2 >= 0
RETURNING remaining_credits
`, id, delta)
	var remaining int
	err := row.Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNoCredits
	}
	return remaining, err
}

func (q *Queries) CreateEnhancement(ctx context.Context, userID, originalURL string) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO photo_enhancements (id, user_id, original_url, status, step)
VALUES (gen_random_uuid(), $1, $2, 'processing', 'created')
RETURNING id
`, userID, originalURL)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

func (q *Queries) SetEnhancementStep(ctx context.Context, id uuid.UUID, step domain.EnhancementStep) error {
	_, err := q.db.Exec(ctx, `
UPDATE photo_enhancements
SET step = $2, updated_at = now()
WHERE id = $1
`, id, string(step))
	return err
}

func (q *Queries) CompleteEnhancement(ctx context.Context, id uuid.UUID, enhancedURL string) error {
	_, err := q.db.Exec(ctx, `
UPDATE photo_enhancements
SET status = 'completed', step = 'completed', enhanced_url = $2, updated_at = now()
WHERE id = $1
`, id, enhancedURL)
	return err
}

func (q *Queries) FailEnhancement(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := q.db.Exec(ctx, `
UPDATE photo_enhancements
SET status = 'failed', error = $2, updated_at = now()
WHERE id = $1
`, id, reason)
	return err
}

func (q *Queries) ListEnhancements(ctx context.Context, userID string) ([]domain.PhotoEnhancement, error) {
	rows, err := q.db.Query(ctx, `
SELECT id, user_id, original_url, enhanced_url, status, step, error, created_at, updated_at
FROM photo_enhancements
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.PhotoEnhancement
	for rows.Next() {
		var e domain.PhotoEnhancement
		var enhanced, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.OriginalURL, &enhanced, &e.Status, &e.Step, &errMsg, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.EnhancedURL = enhanced.String
		e.Error = errMsg.String
		items = append(items, e)
	}
	return items, rows.Err()
}

// FailStaleEnhancements reconciles rows abandoned mid-flow: anything still
// processing after the cutoff is marked failed. Credits are decremented only
// on completion, so reconciled rows never consumed a credit.
func (q *Queries) FailStaleEnhancements(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.db.Exec(ctx, `
UPDATE photo_enhancements
SET status = 'failed', error = 'abandoned mid-flow', updated_at = now()
WHERE status = 'processing' AND updated_at < now() - $1::interval
`, olderThan.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RecordWebhookEvent inserts the provider event id, reporting whether this
// delivery is the first one. Replays hit the conflict and report false.
func (q *Queries) RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
INSERT INTO webhook_events (event_id, event_type)
VALUES ($1, $2)
ON CONFLICT (event_id) DO NOTHING
`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
