package newsletter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrAlreadySubscribed = errors.New("email already subscribed")
	ErrTokenNotFound     = errors.New("unsubscribe token not found")
	ErrCodeTaken         = errors.New("discount code already issued")
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type Subscriber struct {
	Email            string    `json:"email"`
	DiscountCode     string    `json:"discountCode"`
	DiscountPercent  int       `json:"discountPercent"`
	UnsubscribeToken uuid.UUID `json:"-"`
	SubscribedAt     time.Time `json:"subscribedAt"`
}

type RepoInterface interface {
	Subscribe(ctx context.Context, email, code string) (*Subscriber, bool, error)
	Unsubscribe(ctx context.Context, token uuid.UUID) error
}

// Repository keeps subscribers in the orders database.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Subscribe inserts email with code, or reactivates a lapsed subscriber who
// keeps the code they were first issued. The bool reports a fresh insert.
func (r *Repository) Subscribe(ctx context.Context, email, code string) (*Subscriber, bool, error) {
	var (
		s        Subscriber
		inserted bool
	)
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO newsletter_subscribers (email, discount_code)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
			SET is_active = TRUE, unsubscribed_at = NULL, subscribed_at = NOW()
			WHERE newsletter_subscribers.is_active = FALSE
		RETURNING email, discount_code, discount_percent, unsubscribe_token, subscribed_at, (xmax = 0)
	`, email, code).Scan(&s.Email, &s.DiscountCode, &s.DiscountPercent, &s.UnsubscribeToken, &s.SubscribedAt, &inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrAlreadySubscribed
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return nil, false, fmt.Errorf("%w: %s", ErrCodeTaken, pqErr.Constraint)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return &s, inserted, nil
}

func (r *Repository) Unsubscribe(ctx context.Context, token uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET is_active = FALSE, unsubscribed_at = COALESCE(unsubscribed_at, NOW())
		WHERE unsubscribe_token = $1
	`, token)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}
