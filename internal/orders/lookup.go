package orders

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"go.uber.org/zap"
)

// Lookup answers order queries for the storefront. Failures are logged and
// reported as "no orders" so pages always render.
type Lookup struct {
	repo RepoInterface
	log  *zap.Logger
}

func NewLookup(repo RepoInterface, log *zap.Logger) *Lookup {
	return &Lookup{repo: repo, log: log}
}

// ListForUser returns the orders placed by the user plus guest orders under
// the same email, newest first.
func (l *Lookup) ListForUser(ctx context.Context, userID, email string) []domain.Order {
	var out []domain.Order
	seen := make(map[string]bool)
	add := func(orders []domain.Order) {
		for _, o := range orders {
			if !seen[o.ID.String()] {
				seen[o.ID.String()] = true
				out = append(out, o)
			}
		}
	}

	if userID != "" {
		orders, err := l.repo.ListByUserID(ctx, userID)
		if err != nil {
			l.log.Error("failed to list orders by user", zap.String("user_id", userID), zap.Error(err))
			return []domain.Order{}
		}
		add(orders)
	}

	if email = strings.TrimSpace(email); email != "" {
		orders, err := l.repo.ListByEmail(ctx, email)
		if err != nil {
			l.log.Error("failed to list orders by email", zap.Error(err))
			return []domain.Order{}
		}
		add(orders)
	}

	if out == nil {
		return []domain.Order{}
	}
	slices.SortStableFunc(out, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Track finds one order by its number and the email it was placed with. The
// number is trimmed and upper-cased; nil means no match or a failed lookup.
func (l *Lookup) Track(ctx context.Context, orderNumber, email string) *domain.Order {
	number := strings.ToUpper(strings.TrimSpace(orderNumber))
	email = strings.TrimSpace(email)
	if number == "" || email == "" {
		return nil
	}

	o, err := l.repo.GetByNumberAndEmail(ctx, number, email)
	if errors.Is(err, ErrOrderNotFound) {
		l.log.Info("order not found", zap.String("order_number", number))
		return nil
	}
	if err != nil {
		l.log.Error("failed to track order", zap.String("order_number", number), zap.Error(err))
		return nil
	}
	return o
}
