package order

import (
	"regexp"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

var countryRegex = regexp.MustCompile(`^[A-Z]{2}$`)

// ShippingAddress is the delivery address captured at checkout
type ShippingAddress struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Normalize trims every field and upper-cases the country code
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Recipient:  strings.TrimSpace(a.Recipient),
		Phone:      strings.TrimSpace(a.Phone),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
}

// Validate checks required fields and lengths
func (a ShippingAddress) Validate() error {
	required := []struct {
		name  string
		value string
		max   int
	}{
		{"recipient", a.Recipient, 100},
		{"phone", a.Phone, 30},
		{"line1", a.Line1, 200},
		{"city", a.City, 100},
		{"postal_code", a.PostalCode, 20},
	}
	for _, f := range required {
		if f.value == "" {
			return shared.NewDomainError("INVALID_ADDRESS", "Shipping address "+f.name+" is required")
		}
		if len(f.value) > f.max {
			return shared.NewDomainError("INVALID_ADDRESS", "Shipping address "+f.name+" is too long")
		}
	}
	if len(a.Line2) > 200 || len(a.State) > 100 {
		return shared.NewDomainError("INVALID_ADDRESS", "Shipping address is too long")
	}
	if !countryRegex.MatchString(a.Country) {
		return shared.NewDomainError("INVALID_ADDRESS", "Country must be a two-letter ISO code")
	}
	return nil
}

// String renders the address on one line
func (a ShippingAddress) String() string {
	parts := []string{a.Recipient, a.Line1}
	if a.Line2 != "" {
		parts = append(parts, a.Line2)
	}
	cityLine := a.City
	if a.State != "" {
		cityLine += ", " + a.State
	}
	parts = append(parts, cityLine+" "+a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}
