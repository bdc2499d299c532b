package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepo struct {
	m       sync.RWMutex
	byUser  map[string][]domain.Order
	byEmail map[string][]domain.Order
	err     error
	tracked []string
}

func (r *mockRepo) ListByUserID(_ context.Context, userID string) ([]domain.Order, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.byUser[userID], r.err
}

func (r *mockRepo) ListByEmail(_ context.Context, email string) ([]domain.Order, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.byEmail[strings.ToLower(email)], r.err
}

func (r *mockRepo) GetByNumberAndEmail(_ context.Context, number, email string) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.tracked = append(r.tracked, number)
	if r.err != nil {
		return nil, r.err
	}
	for _, o := range r.byEmail[strings.ToLower(email)] {
		if o.OrderNumber == number {
			return &o, nil
		}
	}
	return nil, ErrOrderNotFound
}

func order(number string, at time.Time) domain.Order {
	return domain.Order{ID: uuid.New(), OrderNumber: number, CreatedAt: at}
}

func TestListForUser_MergesAndSorts(t *testing.T) {
	now := time.Now()
	a := order("LVN-1", now.Add(-2*time.Hour))
	b := order("LVN-2", now)
	guest := order("LVN-3", now.Add(-time.Hour))

	repo := &mockRepo{
		byUser:  map[string][]domain.Order{"u1": {b, a}},
		byEmail: map[string][]domain.Order{"jo@example.com": {b, guest}},
	}
	got := NewLookup(repo, zap.NewNop()).ListForUser(context.Background(), "u1", " jo@example.com ")

	require.Len(t, got, 3)
	assert.Equal(t, []string{"LVN-2", "LVN-3", "LVN-1"},
		[]string{got[0].OrderNumber, got[1].OrderNumber, got[2].OrderNumber})
}

func TestListForUser_ErrorYieldsEmpty(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection refused")}
	got := NewLookup(repo, zap.NewNop()).ListForUser(context.Background(), "u1", "jo@example.com")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListForUser_NoIdentity(t *testing.T) {
	got := NewLookup(&mockRepo{}, zap.NewNop()).ListForUser(context.Background(), "", "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTrack_NormalisesNumber(t *testing.T) {
	o := order("LVN-0042", time.Now())
	repo := &mockRepo{byEmail: map[string][]domain.Order{"jo@example.com": {o}}}

	got := NewLookup(repo, zap.NewNop()).Track(context.Background(), "  lvn-0042 ", "Jo@Example.com")
	require.NotNil(t, got)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, []string{"LVN-0042"}, repo.tracked)
}

func TestTrack_NoMatch(t *testing.T) {
	repo := &mockRepo{byEmail: map[string][]domain.Order{}}
	assert.Nil(t, NewLookup(repo, zap.NewNop()).Track(context.Background(), "LVN-1", "jo@example.com"))
}

func TestTrack_Failure(t *testing.T) {
	repo := &mockRepo{err: errors.New("timeout")}
	assert.Nil(t, NewLookup(repo, zap.NewNop()).Track(context.Background(), "LVN-1", "jo@example.com"))
}

func TestTrack_BlankInputSkipsLookup(t *testing.T) {
	repo := &mockRepo{}
	assert.Nil(t, NewLookup(repo, zap.NewNop()).Track(context.Background(), " ", "jo@example.com"))
	assert.Empty(t, repo.tracked)
}
