// Package taxation decides which VAT rate applies to an invoice. A
// pluggable Policy capability computes rates from the customer's VAT id
// and the two countries involved; a registry maps policy identifiers to
// implementations, replacing lookup of policy classes by import path.
package taxation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
)

// Policy computes the tax rate for a supplier/customer pair. A policy
// always terminates in a concrete rate; it never fails.
type Policy interface {
	TaxRate(customerVATID string, customerCountry, supplierCountry valueobject.CountryCode) decimal.Decimal
}

// DefaultPolicy applies the global default rate unconditionally
type DefaultPolicy struct {
	rate decimal.Decimal
}

// NewDefaultPolicy creates a policy that always returns the given rate
func NewDefaultPolicy(rate decimal.Decimal) *DefaultPolicy {
	return &DefaultPolicy{rate: rate}
}

// TaxRate returns the default rate regardless of the parties involved
func (p *DefaultPolicy) TaxRate(_ string, _, _ valueobject.CountryCode) decimal.Decimal {
	return p.rate
}

// Registry maps policy identifiers to Policy implementations
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewRegistry creates an empty policy registry
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]Policy)}
}

// Register adds a policy under the given identifier. Registering the
// same identifier twice is an error.
func (r *Registry) Register(id string, policy Policy) error {
	if id == "" {
		return shared.NewDomainError("INVALID_INPUT", "Policy identifier cannot be empty")
	}
	if policy == nil {
		return shared.NewDomainError("INVALID_INPUT", "Policy cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.policies[id]; exists {
		return shared.ErrAlreadyExists
	}
	r.policies[id] = policy
	return nil
}

// MustRegister is Register for process-setup code paths where a
// registration failure is a programming error
func (r *Registry) MustRegister(id string, policy Policy) {
	if err := r.Register(id, policy); err != nil {
		panic(fmt.Sprintf("taxation: registering policy %q: %v", id, err))
	}
}

// Get looks up a policy by identifier
func (r *Registry) Get(id string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[id]
	return p, ok
}

// IDs returns the registered identifiers in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
