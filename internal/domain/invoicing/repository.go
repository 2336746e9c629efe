package invoicing

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository is the storage collaborator contract.
//
// Implementations must make WithScopeLock mutually exclusive per scope
// key: number allocation reads a maximum and increments it, so two
// concurrent allocations in the same scope would otherwise race to the
// same number. The lock must span both the MaxNumberInScope read and
// the Insert of the numbered invoice.
type InvoiceRepository interface {
	SequenceStore

	// Insert persists a new invoice together with its items
	Insert(ctx context.Context, invoice *Invoice) error

	// FindByID loads an invoice with its items, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber loads an invoice by type and sequence number within
	// the given window, nil when absent
	FindByNumber(ctx context.Context, invoiceType InvoiceType, number int64, window DateWindow) (*Invoice, error)

	// FindByPeriod lists invoices of the given type whose issue date
	// falls in the window, ordered by issue date then number
	FindByPeriod(ctx context.Context, invoiceType InvoiceType, window DateWindow) ([]Invoice, error)

	// ListItems returns the invoice's items ordered by weight
	// ascending, then creation time ascending
	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]Item, error)

	// InsertItem persists a single line item
	InsertItem(ctx context.Context, item *Item) error

	// UpdateStatus persists a status change together with the
	// sent timestamp when present
	UpdateStatus(ctx context.Context, invoice *Invoice) error

	// WithScopeLock runs fn while holding exclusive ownership of the
	// given scope key. Allocation and insert of a numbered invoice must
	// happen inside fn.
	WithScopeLock(ctx context.Context, scopeKey string, fn func(ctx context.Context) error) error
}
