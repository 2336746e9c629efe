package taxation

import (
	"github.com/shopspring/decimal"

	"github.com/erp/invoicing/internal/domain/shared/valueobject"
)

// PolicyIDEU is the registry identifier of the EU cross-border policy
const PolicyIDEU = "eu"

// EUPolicy implements the EU customs/VAT area rules for a supplier
// established inside the EU:
//
//   - customer in the supplier's own country: standard rate
//   - customer in another EU country with a VAT id: 0% (reverse charge)
//   - customer in another EU country without a VAT id: standard rate
//   - customer outside the EU: 0% (export)
//
// Ambiguous input, such as a missing customer country, falls back to
// the standard rate. The policy never fails.
type EUPolicy struct {
	defaultRate decimal.Decimal
}

// NewEUPolicy creates the EU policy with the given standard rate
func NewEUPolicy(defaultRate decimal.Decimal) *EUPolicy {
	return &EUPolicy{defaultRate: defaultRate}
}

// TaxRate returns the applicable rate for the given pair of countries
func (p *EUPolicy) TaxRate(customerVATID string, customerCountry, supplierCountry valueobject.CountryCode) decimal.Decimal {
	if customerCountry.IsEmpty() {
		return p.defaultRate
	}
	if customerCountry == supplierCountry {
		return p.defaultRate
	}
	if customerCountry.IsEUMember() {
		if customerVATID != "" {
			// Cross-border B2B inside the EU: reverse charge
			return decimal.Zero
		}
		return p.defaultRate
	}
	// Export outside the EU
	return decimal.Zero
}

// IsInEU reports whether the country belongs to the EU VAT area
func IsInEU(country valueobject.CountryCode) bool {
	return country.IsEUMember()
}
