package checkout

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v81"
)

type Kind string

const (
	KindMisconfigured  Kind = "misconfigured"
	KindConnectivity   Kind = "connectivity"
	KindIncomplete     Kind = "incomplete"
	KindAuthentication Kind = "authentication"
	KindUnknown        Kind = "unknown"
)

// UserError is a payment-session failure translated for the customer.
type UserError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

var userMessages = map[Kind]string{
	KindMisconfigured:  "Payments are not configured right now. Please try again later.",
	KindConnectivity:   "Unable to create checkout session. Please check your internet connection and try again.",
	KindIncomplete:     "Checkout information is incomplete. Please fill in all required fields and try again.",
	KindAuthentication: "Authentication error. Please refresh the page and try again, or contact support if the problem persists.",
	KindUnknown:        "Failed to start checkout process. Please try again later.",
}

// Classify maps a gateway error to a user-facing error. A nil error stays nil.
func Classify(err error) *UserError {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}

	kind := classify(err)
	return &UserError{Kind: kind, Message: userMessages[kind], Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, ErrNotConfigured) {
		return KindMisconfigured
	}

	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode == http.StatusUnauthorized:
			return KindAuthentication
		case se.Code == stripe.ErrorCodeParameterMissing:
			return KindIncomplete
		case se.HTTPStatusCode >= http.StatusInternalServerError || se.HTTPStatusCode == 0:
			return KindConnectivity
		}
		return KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return KindConnectivity
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not configured"):
		return KindMisconfigured
	case strings.Contains(msg, "missing required parameter"):
		return KindIncomplete
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		return KindAuthentication
	case strings.Contains(msg, "failed to create checkout session"):
		return KindConnectivity
	}
	return KindUnknown
}
