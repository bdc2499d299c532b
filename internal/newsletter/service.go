package newsletter

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidEmail = errors.New("invalid email address")

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	codePrefix   = "WELCOME10"
	codeAttempts = 3
)

type Signup struct {
	Subscriber
	Reactivated bool `json:"reactivated"`
}

type Service struct {
	repo    RepoInterface
	log     *zap.Logger
	newCode func() string
}

func NewService(repo RepoInterface, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, newCode: discountCode}
}

// Subscribe normalises email and issues a welcome discount code. A lapsed
// subscriber is reactivated with their original code.
func (s *Service) Subscribe(ctx context.Context, email string) (*Signup, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	var err error
	for range codeAttempts {
		var (
			sub      *Subscriber
			inserted bool
		)
		sub, inserted, err = s.repo.Subscribe(ctx, email, s.newCode())
		if errors.Is(err, ErrCodeTaken) {
			s.log.Warn("discount code collision, retrying", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.Info("newsletter signup",
			zap.String("discount_code", sub.DiscountCode),
			zap.Bool("reactivated", !inserted))
		return &Signup{Subscriber: *sub, Reactivated: !inserted}, nil
	}
	return nil, err
}

func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	id, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return ErrTokenNotFound
	}
	return s.repo.Unsubscribe(ctx, id)
}

// discountCode renders WELCOME10-XXXX-YYYYYY from random and clock digits in
// base 36.
func discountCode() string {
	// four digits: [36^3, 36^4)
	random := strings.ToUpper(strconv.FormatUint(36*36*36+rand.Uint64N(35*36*36*36), 36))
	stamp := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	if len(stamp) > 6 {
		stamp = stamp[len(stamp)-6:]
	}
	return codePrefix + "-" + random + "-" + stamp
}
