package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
)

// CounterPeriod controls when the invoice sequence resets
type CounterPeriod string

const (
	PeriodDaily   CounterPeriod = "DAILY"
	PeriodMonthly CounterPeriod = "MONTHLY"
	PeriodYearly  CounterPeriod = "YEARLY"
)

// DefaultCounterPeriod is used when no period is configured
const DefaultCounterPeriod = PeriodYearly

// IsValid checks if the period is a valid CounterPeriod
func (p CounterPeriod) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// String returns the string representation of CounterPeriod
func (p CounterPeriod) String() string {
	return string(p)
}

// DateWindow is a half-open [From, To) date range over issue dates
type DateWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the given date falls inside the window
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// WindowFor computes the issue-date window that shares a sequence scope
// with an invoice whose tax point falls on the given date. An unknown
// period is a configuration error, never a silent fallback.
func (p CounterPeriod) WindowFor(taxPoint time.Time) (DateWindow, error) {
	year, month, day := taxPoint.Date()
	loc := taxPoint.Location()

	switch p {
	case PeriodDaily:
		from := time.Date(year, month, day, 0, 0, 0, 0, loc)
		return DateWindow{From: from, To: from.AddDate(0, 0, 1)}, nil
	case PeriodMonthly:
		from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return DateWindow{From: from, To: from.AddDate(0, 1, 0)}, nil
	case PeriodYearly:
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return DateWindow{From: from, To: from.AddDate(1, 0, 0)}, nil
	default:
		return DateWindow{}, fmt.Errorf("%w: counter period must be one of DAILY, MONTHLY, YEARLY, got %q",
			shared.ErrInvalidConfiguration, string(p))
	}
}

// DefaultNumberFormat renders e.g. "2024/8": the four-digit tax point
// year, a slash, and the raw sequence number.
const DefaultNumberFormat = `{{ formatDate .Invoice.DateTaxPoint "2006" }}/{{ .Invoice.Number }}`

// SequenceStore is the storage capability the allocator consumes
type SequenceStore interface {
	// MaxNumberInScope returns the highest assigned number among
	// invoices of the given type whose issue date falls in the window,
	// or 0 when there are none.
	MaxNumberInScope(ctx context.Context, invoiceType InvoiceType, window DateWindow) (int64, error)
}

// FullNumberRenderer renders the configured full-number format against
// an invoice's field values
type FullNumberRenderer interface {
	Render(format string, invoice *Invoice) (string, error)
}

// NumberingConfig holds the validated numbering settings
type NumberingConfig struct {
	CounterPeriod CounterPeriod
	NumberFormat  string
}

func (c NumberingConfig) withDefaults() NumberingConfig {
	if c.CounterPeriod == "" {
		c.CounterPeriod = DefaultCounterPeriod
	}
	if c.NumberFormat == "" {
		c.NumberFormat = DefaultNumberFormat
	}
	return c
}

// NumberAllocator computes the next sequence number within the
// (type, period scope) key space and renders the full number.
//
// The read-max-then-increment step is not atomic. The allocator must be
// invoked while holding the per-scope serialization the repository
// provides (see InvoiceRepository.WithScopeLock); it performs no
// locking of its own and never persists.
type NumberAllocator struct {
	store    SequenceStore
	renderer FullNumberRenderer
	config   NumberingConfig
}

// NewNumberAllocator creates a new allocator over the given store and
// renderer; zero config fields fall back to YEARLY and the default
// number format.
func NewNumberAllocator(store SequenceStore, renderer FullNumberRenderer, config NumberingConfig) *NumberAllocator {
	return &NumberAllocator{
		store:    store,
		renderer: renderer,
		config:   config.withDefaults(),
	}
}

// Allocate computes (number, full number) for the invoice. When the
// invoice already has a number the call is an idempotent no-op
// returning the existing values. Configuration errors (unknown period,
// unrenderable format) abort the allocation; nothing is partially
// assigned.
func (a *NumberAllocator) Allocate(ctx context.Context, invoice *Invoice) (int64, string, error) {
	if invoice.HasNumber() {
		return invoice.Number, invoice.FullNumber, nil
	}

	window, err := a.config.CounterPeriod.WindowFor(invoice.DateTaxPoint)
	if err != nil {
		return 0, "", err
	}

	max, err := a.store.MaxNumberInScope(ctx, invoice.Type, window)
	if err != nil {
		return 0, "", fmt.Errorf("querying max number in scope: %w", err)
	}
	next := max + 1

	// Render against a copy carrying the candidate number so a render
	// failure leaves the invoice untouched.
	candidate := *invoice
	candidate.Number = next
	full, err := a.renderer.Render(a.config.NumberFormat, &candidate)
	if err != nil {
		return 0, "", fmt.Errorf("%w: rendering number format %q: %v",
			shared.ErrInvalidConfiguration, a.config.NumberFormat, err)
	}

	return next, full, nil
}

// ScopeKey returns the serialization key for the invoice's allocation
// scope. Two invoices race on the same number if and only if their
// scope keys are equal.
func (a *NumberAllocator) ScopeKey(invoice *Invoice) (string, error) {
	window, err := a.config.CounterPeriod.WindowFor(invoice.DateTaxPoint)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("invoice-number:%s:%s:%s",
		invoice.Type, window.From.Format("2006-01-02"), window.To.Format("2006-01-02")), nil
}
