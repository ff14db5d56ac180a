package geocoding

import (
	"strings"

	"solarintake/internal/intake/masking"
	"solarintake/internal/intake/models"
)

// DefaultCountryQualifier is appended to every query.
const DefaultCountryQualifier = "Brazil"

// Query is a geocoding request built from the address at fire time.
type Query struct {
	Text       string
	Components int
}

// BuildQuery assembles the free-text query from the present address parts in
// the order number, street, neighborhood, city, region. With no parts it falls
// back to the postal code. ok is false when the address is insufficient: fewer
// than two parts and a postal code with fewer than 8 digits.
func BuildQuery(addr models.Address, qualifier string) (q Query, ok bool) {
	if qualifier == "" {
		qualifier = DefaultCountryQualifier
	}

	parts := make([]string, 0, 5)
	for _, p := range []string{addr.Number, addr.Street, addr.Neighborhood, addr.City, addr.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	postalComplete := masking.CountDigits(addr.PostalCode) >= 8
	if len(parts) < 2 && !postalComplete {
		return Query{}, false
	}

	if len(parts) > 0 {
		return Query{Text: strings.Join(parts, ", ") + ", " + qualifier, Components: len(parts)}, true
	}
	return Query{Text: strings.TrimSpace(addr.PostalCode) + ", " + qualifier}, true
}

// Sufficient reports whether addr would produce a query.
func Sufficient(addr models.Address) bool {
	_, ok := BuildQuery(addr, DefaultCountryQualifier)
	return ok
}
