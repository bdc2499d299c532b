package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/newsletter"
	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"go.uber.org/zap"
)

type Newsletter interface {
	Subscribe(ctx context.Context, email string) (*newsletter.Signup, error)
	Unsubscribe(ctx context.Context, token string) error
}

type NewsletterHandler struct {
	newsletter Newsletter
	log        *zap.Logger
}

func NewNewsletterHandler(n Newsletter, log *zap.Logger) *NewsletterHandler {
	return &NewsletterHandler{newsletter: n, log: log}
}

type NewsletterRequestDTO struct {
	Email string `json:"email"`
}

type UnsubscribeRequestDTO struct {
	Token string `json:"token"`
}

func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req NewsletterRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	signup, err := h.newsletter.Subscribe(r.Context(), req.Email)
	switch {
	case errors.Is(err, newsletter.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, "invalid_email", "Please enter a valid email address")
	case errors.Is(err, newsletter.ErrAlreadySubscribed):
		respondError(w, http.StatusConflict, "already_subscribed", "This email is already subscribed to our newsletter")
	case err != nil:
		logger.FromContext(r.Context(), h.log).Error("newsletter signup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	case signup.Reactivated:
		respondJSON(w, http.StatusOK, signup)
	default:
		respondJSON(w, http.StatusCreated, signup)
	}
}

func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.newsletter.Unsubscribe(r.Context(), req.Token)
	switch {
	case errors.Is(err, newsletter.ErrTokenNotFound):
		respondError(w, http.StatusNotFound, "token_not_found", "unsubscribe link is invalid")
	case err != nil:
		logger.FromContext(r.Context(), h.log).Error("newsletter unsubscribe failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
