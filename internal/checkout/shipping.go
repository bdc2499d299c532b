package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
)

// ShippingChoice is the rate the customer picked. RateRef is the payment
// processor's shipping rate id, when one exists for the option.
type ShippingChoice struct {
	domain.ShippingOption
	RateRef string `json:"rate_ref,omitempty"`
}

// ValidateShipping requires a rate id, a non-negative rate and a currency.
func ValidateShipping(s ShippingChoice) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: rate id is required", ErrInvalidShipping)
	}
	if s.Rate.IsNegative() {
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidShipping)
	}
	if strings.TrimSpace(s.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidShipping)
	}
	return nil
}

var countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidateAddress returns one message per missing or malformed field.
func ValidateAddress(a domain.ShippingAddress) []string {
	var problems []string
	if strings.TrimSpace(a.Address) == "" {
		problems = append(problems, "Address is required")
	}
	if strings.TrimSpace(a.City) == "" {
		problems = append(problems, "City is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		problems = append(problems, "Country is required")
	}
	if strings.TrimSpace(a.Postcode) == "" {
		problems = append(problems, "Postal code is required")
	}
	if c := strings.TrimSpace(a.Country); len(c) == 2 && !countryCodeRe.MatchString(c) {
		problems = append(problems, "Invalid country code format")
	}
	return problems
}
