package taxation

import (
	"github.com/shopspring/decimal"

	"github.com/erp/invoicing/internal/domain/invoicing"
)

// Resolver decides which policy applies to an invoice. Resolution never
// fails: when no rule matches, the global default rate is the terminal
// state. Resolution order, first match wins:
//
//  1. the invoice's own policy override (by registered identifier)
//  2. the configured process-wide policy identifier
//  3. the EU policy when the supplier's country is in the EU VAT area
//  4. none - the global default rate applies
//
// Unregistered identifiers are skipped, not raised; ambiguity always
// degrades towards the default rate.
type Resolver struct {
	registry    *Registry
	configured  string
	defaultRate decimal.Decimal
	euPolicy    *EUPolicy
}

// NewResolver creates a resolver over the given registry. The
// configured identifier may be empty. The EU policy is always available
// as a fallback rule regardless of registration.
func NewResolver(registry *Registry, configuredPolicy string, defaultRate decimal.Decimal) *Resolver {
	return &Resolver{
		registry:    registry,
		configured:  configuredPolicy,
		defaultRate: defaultRate,
		euPolicy:    NewEUPolicy(defaultRate),
	}
}

// DefaultRate returns the global default tax rate
func (r *Resolver) DefaultRate() decimal.Decimal {
	return r.defaultRate
}

// Resolve returns the policy applicable to the invoice, or nil when no
// special policy applies and the default rate should be used directly.
func (r *Resolver) Resolve(invoice *invoicing.Invoice) Policy {
	if invoice.TaxationPolicy != "" {
		if p, ok := r.registry.Get(invoice.TaxationPolicy); ok {
			return p
		}
	}
	if r.configured != "" {
		if p, ok := r.registry.Get(r.configured); ok {
			return p
		}
	}
	if invoice.Supplier.Country.IsEUMember() {
		return r.euPolicy
	}
	return nil
}

// TaxRateFor returns the concrete rate for the invoice. It is the rate
// a new line item without an explicit tax rate is frozen to.
func (r *Resolver) TaxRateFor(invoice *invoicing.Invoice) decimal.Decimal {
	policy := r.Resolve(invoice)
	if policy == nil {
		return r.defaultRate
	}
	return policy.TaxRate(invoice.Customer.VATID, invoice.Customer.Country, invoice.Supplier.Country)
}
