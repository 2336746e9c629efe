package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Derived read-only lifecycle properties. All of them recompute from
// current invoice state; nothing here mutates the aggregate.

// dateOnly truncates a timestamp to its calendar date, rebuilt at UTC
// midnight. Anchoring at UTC keeps day differences exact multiples of
// 24h even when the inputs carry different UTC offsets (DST changes,
// dates produced in different zones).
func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsOverdueAt reports whether the invoice is overdue at the given time:
// the due date has passed and the invoice is neither paid nor canceled.
func (i *Invoice) IsOverdueAt(at time.Time) bool {
	return dateOnly(i.DateDue).Before(dateOnly(at)) && !i.Status.IsSettled()
}

// IsOverdue reports whether the invoice is overdue now
func (i *Invoice) IsOverdue() bool {
	return i.IsOverdueAt(time.Now())
}

// OverdueDaysAt returns the number of days past the due date at the
// given time; the result is negative when the invoice is not yet due.
func (i *Invoice) OverdueDaysAt(at time.Time) int {
	return int(dateOnly(at).Sub(dateOnly(i.DateDue)).Hours() / 24)
}

// OverdueDays returns the number of days past the due date as of now
func (i *Invoice) OverdueDays() int {
	return i.OverdueDaysAt(time.Now())
}

// PaymentTerm returns the payment term in days (due date minus issue
// date) when the invoice total is positive, otherwise 0.
func (i *Invoice) PaymentTerm() int {
	if !i.Total().IsPositive() {
		return 0
	}
	return int(dateOnly(i.DateDue).Sub(dateOnly(i.DateIssue)).Hours() / 24)
}

// SupplierVATIDVisible decides whether the supplier's VAT identifier
// must be printed on the document:
//
//   - no VAT information at all and supplier/customer share a country:
//     hidden
//   - VAT defined and non-zero, VAT undefined across borders, or any
//     item with a positive rate: shown
//   - VAT exactly zero: shown only for an EU customer in a different
//     country than the supplier (cross-border zero-rated supply)
func (i *Invoice) SupplierVATIDVisible() bool {
	vat := i.VAT()

	if vat == nil && i.Supplier.Country == i.Customer.Country {
		return false
	}

	if vat == nil || !vat.IsZero() {
		return true
	}
	for idx := range i.Items {
		if rate := i.Items[idx].TaxRate; rate != nil && rate.GreaterThan(decimal.Zero) {
			return true
		}
	}

	return i.Customer.Country.IsEUMember() && i.Supplier.Country != i.Customer.Country
}
