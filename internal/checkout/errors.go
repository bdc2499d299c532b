package checkout

import "errors"

var (
	ErrEmailRequired    = errors.New("email address is required")
	ErrInvalidEmail     = errors.New("email address is invalid")
	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
	ErrInvalidShipping  = errors.New("invalid shipping selection")
	ErrInvalidAddress   = errors.New("invalid shipping address")
	ErrNotConfigured    = errors.New("stripe is not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
