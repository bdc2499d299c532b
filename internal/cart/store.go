package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidItem = errors.New("invalid cart item")
	ErrPersist     = errors.New("failed to persist cart")
)

// Persistence stores the serialized cart. A nil or empty payload means an
// empty cart.
type Persistence interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
}

// PriceSource returns the authoritative unit price and currency of a
// fulfillment variant.
type PriceSource interface {
	VariantPrice(ctx context.Context, variantRef string) (domain.Price, error)
}

// Store is the cart of one session. Every successful mutation writes the
// whole cart through Persistence before returning.
type Store struct {
	mu      sync.RWMutex
	items   []domain.LineItem
	open    bool
	persist Persistence
	log     *zap.Logger
	// set when the stored cart could not be read; the store then refuses
	// to write so an empty cart never replaces the stored one
	loadErr error

	refreshLimit int
}

type Option func(*Store)

// WithRefreshLimit bounds the number of concurrent price lookups.
func WithRefreshLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.refreshLimit = n
		}
	}
}

// Open restores the cart from p. A corrupt payload yields an empty cart. A
// failed load leaves the store empty and failed: Err reports it and every
// mutation returns it.
func Open(ctx context.Context, p Persistence, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		persist:      p,
		log:          log,
		refreshLimit: 4,
	}
	for _, o := range opts {
		o(s)
	}
	s.items = s.restore(ctx)
	return s
}

// Err is the load failure of the store, if any.
func (s *Store) Err() error {
	return s.loadErr
}

func (s *Store) restore(ctx context.Context) []domain.LineItem {
	payload, err := s.persist.Load(ctx)
	if err != nil {
		s.log.Error("cart load failed", zap.Error(err))
		s.loadErr = fmt.Errorf("%w: load: %v", ErrPersist, err)
		return []domain.LineItem{}
	}
	items, err := Decode(payload)
	if err != nil {
		s.log.Warn("discarding corrupt cart payload", zap.Error(err))
		return []domain.LineItem{}
	}
	return items
}

// Decode parses a persisted cart. Rows that violate the line item invariants
// are dropped.
func Decode(payload []byte) ([]domain.LineItem, error) {
	items := []domain.LineItem{}
	if len(payload) == 0 {
		return items, nil
	}
	var raw []domain.LineItem
	if err := json.Unmarshal(payload, &raw); err != nil {
		return items, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	for _, it := range raw {
		if it.ID == "" || it.Quantity < 1 {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return b, nil
}

func validate(item domain.LineItem) error {
	switch {
	case strings.TrimSpace(item.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	case strings.TrimSpace(item.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidItem)
	case !item.Price.IsPositive():
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidItem)
	}
	return nil
}

// replace swaps in next and persists it. Callers hold s.mu.
func (s *Store) replace(ctx context.Context, next []domain.LineItem) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	s.items = next
	payload, err := Encode(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.persist.Save(ctx, payload); err != nil {
		s.log.Error("cart save failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *Store) snapshot() []domain.LineItem {
	out := make([]domain.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func merge(items []domain.LineItem, item domain.LineItem) []domain.LineItem {
	next := make([]domain.LineItem, len(items), len(items)+1)
	copy(next, items)
	for i := range next {
		if next[i].ID == item.ID {
			next[i].Quantity++
			return next
		}
	}
	item.Quantity = 1
	return append(next, item)
}

// AddToCart merges by id, incrementing quantity, or appends with quantity 1.
// Invalid items are logged and leave the cart untouched.
func (s *Store) AddToCart(ctx context.Context, item domain.LineItem) error {
	_, err := s.AddToCartAndGetUpdated(ctx, item)
	return err
}

// AddToCartAndGetUpdated behaves like AddToCart and returns the resulting
// items, for flows that go straight to checkout.
func (s *Store) AddToCartAndGetUpdated(ctx context.Context, item domain.LineItem) ([]domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return s.snapshot(), s.loadErr
	}
	if err := validate(item); err != nil {
		s.log.Warn("rejected cart item", zap.String("item_id", item.ID), zap.Error(err))
		return s.snapshot(), err
	}

	if err := s.replace(ctx, merge(s.items, item)); err != nil {
		return s.snapshot(), err
	}
	return s.snapshot(), nil
}

// RemoveFromCart is a no-op for an id that is not in the cart.
func (s *Store) RemoveFromCart(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return s.loadErr
	}
	next := make([]domain.LineItem, 0, len(s.items))
	for _, it := range s.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	if len(next) == len(s.items) {
		return nil
	}
	return s.replace(ctx, next)
}

// UpdateQuantity removes the item when qty <= 0. Unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return s.RemoveFromCart(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return s.loadErr
	}
	next := s.snapshot()
	for i := range next {
		if next[i].ID == id {
			next[i].Quantity = qty
			return s.replace(ctx, next)
		}
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(ctx, []domain.LineItem{})
}

func (s *Store) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// RefreshPricing looks up current prices for every item with a variant
// reference. Lookups run concurrently and all of them settle before the
// successful ones are applied in a single replacement, overwriting price and
// currency. Failed lookups keep the old values. It returns how many items
// changed.
func (s *Store) RefreshPricing(ctx context.Context, src PriceSource) int {
	if s.loadErr != nil {
		return 0
	}
	items := s.Items()

	type result struct {
		id    string
		price domain.Price
		ok    bool
	}
	results := make([]result, len(items))

	g := new(errgroup.Group)
	g.SetLimit(s.refreshLimit)
	for i, it := range items {
		if it.VariantRef == "" || it.IsBundle {
			continue
		}
		g.Go(func() error {
			price, err := src.VariantPrice(ctx, it.VariantRef)
			if err != nil {
				s.log.Warn("price refresh failed",
					zap.String("item_id", it.ID),
					zap.String("variant_ref", it.VariantRef),
					zap.Error(err))
				return nil
			}
			if !price.Amount.IsPositive() {
				return nil
			}
			results[i] = result{id: it.ID, price: price, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	updates := make(map[string]domain.Price)
	for _, r := range results {
		if r.ok {
			updates[r.id] = r.price
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	next := s.snapshot()
	for i := range next {
		p, ok := updates[next[i].ID]
		if !ok {
			continue
		}
		currency := next[i].Currency
		if p.Currency != "" {
			currency = p.Currency
		}
		if p.Amount.Equal(next[i].Price) && currency == next[i].Currency {
			continue
		}
		next[i].Price = p.Amount
		next[i].Currency = currency
		changed++
	}
	if changed == 0 {
		return 0
	}
	if err := s.replace(ctx, next); err != nil {
		s.log.Error("persist refreshed prices", zap.Error(err))
	}
	return changed
}
