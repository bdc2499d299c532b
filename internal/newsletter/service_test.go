package newsletter

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepo struct {
	m           sync.RWMutex
	subscribers map[string]*Subscriber
	active      map[string]bool
	codes       map[string]bool
	calls       int
	err         error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		subscribers: make(map[string]*Subscriber),
		active:      make(map[string]bool),
		codes:       make(map[string]bool),
	}
}

func (r *mockRepo) Subscribe(_ context.Context, email, code string) (*Subscriber, bool, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.calls++
	if r.err != nil {
		return nil, false, r.err
	}
	if s, ok := r.subscribers[email]; ok {
		if r.active[email] {
			return nil, false, ErrAlreadySubscribed
		}
		r.active[email] = true
		return s, false, nil
	}
	if r.codes[code] {
		return nil, false, ErrCodeTaken
	}
	s := &Subscriber{Email: email, DiscountCode: code, DiscountPercent: 10, UnsubscribeToken: uuid.New()}
	r.subscribers[email] = s
	r.active[email] = true
	r.codes[code] = true
	return s, true, nil
}

func (r *mockRepo) Unsubscribe(_ context.Context, token uuid.UUID) error {
	r.m.Lock()
	defer r.m.Unlock()
	for email, s := range r.subscribers {
		if s.UnsubscribeToken == token {
			r.active[email] = false
			return nil
		}
	}
	return ErrTokenNotFound
}

func (r *mockRepo) callCount() int {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.calls
}

func TestSubscribe_NormalisesAndIssuesCode(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zap.NewNop())

	got, err := svc.Subscribe(context.Background(), "  Jo@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", got.Email)
	assert.Regexp(t, regexp.MustCompile(`^WELCOME10-[0-9A-Z]{4}-[0-9A-Z]{1,6}$`), got.DiscountCode)
	assert.False(t, got.Reactivated)
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zap.NewNop())

	for _, email := range []string{"", "jo", "jo@example", "jo @example.com"} {
		_, err := svc.Subscribe(context.Background(), email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	assert.Zero(t, repo.callCount())
}

func TestSubscribe_AlreadyActive(t *testing.T) {
	svc := NewService(newMockRepo(), zap.NewNop())

	_, err := svc.Subscribe(context.Background(), "jo@example.com")
	require.NoError(t, err)
	_, err = svc.Subscribe(context.Background(), "JO@example.com")
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
}

func TestSubscribe_ReactivationKeepsCode(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Subscribe(ctx, "jo@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(ctx, first.UnsubscribeToken.String()))

	again, err := svc.Subscribe(ctx, "jo@example.com")
	require.NoError(t, err)
	assert.True(t, again.Reactivated)
	assert.Equal(t, first.DiscountCode, again.DiscountCode)
}

func TestSubscribe_RetriesCodeCollision(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zap.NewNop())
	codes := []string{"WELCOME10-AAAA-000001", "WELCOME10-AAAA-000001", "WELCOME10-BBBB-000002"}
	svc.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	_, err := svc.Subscribe(context.Background(), "a@example.com")
	require.NoError(t, err)
	got, err := svc.Subscribe(context.Background(), "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10-BBBB-000002", got.DiscountCode)
	assert.Equal(t, 3, repo.callCount())
}

func TestSubscribe_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("connection refused")
	svc := NewService(repo, zap.NewNop())

	_, err := svc.Subscribe(context.Background(), "jo@example.com")
	assert.ErrorContains(t, err, "connection refused")
}

func TestUnsubscribe_BadToken(t *testing.T) {
	svc := NewService(newMockRepo(), zap.NewNop())

	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), "not-a-uuid"), ErrTokenNotFound)
	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), uuid.NewString()), ErrTokenNotFound)
}
