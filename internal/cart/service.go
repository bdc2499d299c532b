package cart

import (
	"context"
	"sync"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"go.uber.org/zap"
)

// Backend resolves the persistence of a cart session.
type Backend interface {
	ForSession(sessionID string) Persistence
}

// Service serialises operations per cart session so each request runs as a
// single logical writer against a freshly restored Store.
type Service struct {
	backend      Backend
	log          *zap.Logger
	refreshLimit int

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(backend Backend, refreshLimit int, log *zap.Logger) *Service {
	return &Service{
		backend:      backend,
		log:          log,
		refreshLimit: refreshLimit,
		locks:        make(map[string]*sessionLock),
	}
}

func (s *Service) acquire(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

// With opens the session's cart and runs fn while holding the session lock.
// fn does not run when the cart cannot be loaded; the ErrPersist load error
// is returned instead.
func (s *Service) With(ctx context.Context, sessionID string, fn func(*Store) error) error {
	release := s.acquire(sessionID)
	defer release()

	store := Open(ctx, s.backend.ForSession(sessionID),
		s.log.With(zap.String("cart_session", sessionID)),
		WithRefreshLimit(s.refreshLimit))
	if err := store.Err(); err != nil {
		return err
	}
	return fn(store)
}

// Snapshot is a read-only view of a cart.
type Snapshot struct {
	SessionID  string            `json:"session_id"`
	Items      []domain.LineItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice string            `json:"total_price"`
}

func (s *Service) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	var snap Snapshot
	err := s.With(ctx, sessionID, func(st *Store) error {
		snap = SnapshotOf(sessionID, st)
		return nil
	})
	return snap, err
}

func SnapshotOf(sessionID string, st *Store) Snapshot {
	return Snapshot{
		SessionID:  sessionID,
		Items:      st.Items(),
		TotalItems: st.TotalItems(),
		TotalPrice: st.TotalPrice().StringFixed(2),
	}
}
