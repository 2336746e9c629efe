package valueobject

import "strings"

// CountryCode represents an ISO 3166-1 alpha-2 country code.
// Structural validation of codes is out of scope; unknown codes are
// simply treated as non-EU.
type CountryCode string

// euMembers is the set of countries belonging to the EU VAT area.
var euMembers = map[CountryCode]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "CY": {}, "CZ": {}, "DE": {}, "DK": {},
	"EE": {}, "ES": {}, "FI": {}, "FR": {}, "GR": {}, "HR": {}, "HU": {},
	"IE": {}, "IT": {}, "LT": {}, "LU": {}, "LV": {}, "MT": {}, "NL": {},
	"PL": {}, "PT": {}, "RO": {}, "SE": {}, "SI": {}, "SK": {},
}

// NewCountryCode normalizes a raw code to upper case
func NewCountryCode(code string) CountryCode {
	return CountryCode(strings.ToUpper(strings.TrimSpace(code)))
}

// String returns the string representation of the country code
func (c CountryCode) String() string {
	return string(c)
}

// IsEmpty returns true when no country is set
func (c CountryCode) IsEmpty() bool {
	return c == ""
}

// IsEUMember returns true if the country belongs to the EU VAT area
func (c CountryCode) IsEUMember() bool {
	_, ok := euMembers[c]
	return ok
}
