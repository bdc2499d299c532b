package checkout

import (
	"context"

	"go.uber.org/zap"
)

// PaymentGateway opens a hosted payment session and returns its redirect URL.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req *SessionRequest) (string, error)
}

type Service struct {
	builder *Builder
	gateway PaymentGateway
	log     *zap.Logger
}

func NewService(builder *Builder, gateway PaymentGateway, log *zap.Logger) *Service {
	return &Service{builder: builder, gateway: gateway, log: log}
}

// Start builds the payload and opens a payment session. Validation errors are
// returned unchanged; gateway failures come back as *UserError. There is no
// automatic retry.
func (s *Service) Start(ctx context.Context, req Request) (string, error) {
	payload, err := s.builder.Build(req)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreateSession(ctx, payload)
	if err != nil {
		ue := Classify(err)
		s.log.Error("failed to create checkout session",
			zap.String("kind", string(ue.Kind)),
			zap.String("cart_session", req.CartSession),
			zap.Error(err))
		return "", ue
	}

	s.log.Info("checkout session created",
		zap.String("cart_session", req.CartSession),
		zap.Int("line_items", len(payload.LineItems)))
	return url, nil
}
