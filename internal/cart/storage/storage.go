package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/cache"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Storage persists carts in the repository and fronts reads with the cache.
type Storage struct {
	repo  repository.CartRepository
	cache cache.CartCache
	log   *zap.Logger
	sfg   singleflight.Group
}

func New(repo repository.CartRepository, c cache.CartCache, log *zap.Logger) *Storage {
	return &Storage{repo: repo, cache: c, log: log}
}

// ForSession implements cart.Backend.
func (s *Storage) ForSession(sessionID string) cart.Persistence {
	return &sessionPersistence{storage: s, sessionID: sessionID}
}

// Load returns the payload for a session, nil when none is stored.
func (s *Storage) Load(ctx context.Context, sessionID string) ([]byte, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		payload, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return payload, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get error", zap.String("cart_session", sessionID), zap.Error(err))
		}

		doc, err := s.repo.GetCart(ctx, sessionID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return []byte(nil), nil
		}
		if err != nil {
			return nil, err
		}

		s.fill(ctx, sessionID, doc.Payload)
		return doc.Payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Save writes the payload to the repository, then to the cache.
func (s *Storage) Save(ctx context.Context, sessionID string, payload []byte) error {
	items, err := cart.Decode(payload)
	if err != nil {
		return fmt.Errorf("refusing to store unreadable cart: %w", err)
	}
	count := 0
	for _, it := range items {
		count += it.Quantity
	}

	if err := s.repo.SaveCart(ctx, sessionID, payload, count); err != nil {
		return err
	}
	s.writeThrough(ctx, sessionID, payload)
	return nil
}

// Clear removes a session's cart. The cache keeps an empty cart rather than
// no entry, so a fill that read the old document cannot bring it back.
func (s *Storage) Clear(ctx context.Context, sessionID string) error {
	err := s.repo.DeleteCart(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return err
	}
	s.writeThrough(ctx, sessionID, emptyCart)
	return nil
}

var emptyCart = []byte(`[]`)

// fill caches a payload read from the repository. Add never overwrites an
// entry, so a newer write-through wins over a slow fill.
func (s *Storage) fill(ctx context.Context, sessionID string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Add(ctx, sessionID, payload); err != nil {
		s.log.Warn("cache fill error", zap.String("cart_session", sessionID), zap.Error(err))
	}
}

// writeThrough replaces the cached copy. If that fails the entry is dropped;
// if dropping fails too the cache may serve the previous cart until its TTL.
func (s *Storage) writeThrough(ctx context.Context, sessionID string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	err := s.cache.Set(ctx, sessionID, payload)
	if err == nil {
		return
	}
	s.log.Warn("cache set error", zap.String("cart_session", sessionID), zap.Error(err))
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Error("cache invalidate error, cached cart may be stale",
			zap.String("cart_session", sessionID), zap.Error(err))
	}
}

type sessionPersistence struct {
	storage   *Storage
	sessionID string
}

func (p *sessionPersistence) Load(ctx context.Context) ([]byte, error) {
	return p.storage.Load(ctx, p.sessionID)
}

func (p *sessionPersistence) Save(ctx context.Context, payload []byte) error {
	return p.storage.Save(ctx, p.sessionID, payload)
}
