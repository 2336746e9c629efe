package invoicing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
)

// InvoiceType represents the legal kind of the invoice document
type InvoiceType string

const (
	TypeInvoice       InvoiceType = "INVOICE"
	TypeAdvance       InvoiceType = "ADVANCE"
	TypeProforma      InvoiceType = "PROFORMA"
	TypeVATCreditNote InvoiceType = "VAT_CREDIT_NOTE"
)

// IsValid checks if the type is a valid InvoiceType
func (t InvoiceType) IsValid() bool {
	switch t {
	case TypeInvoice, TypeAdvance, TypeProforma, TypeVATCreditNote:
		return true
	}
	return false
}

// String returns the string representation of InvoiceType
func (t InvoiceType) String() string {
	return string(t)
}

// InvoiceStatus represents the processing status of an invoice
type InvoiceStatus string

const (
	StatusNew      InvoiceStatus = "NEW"
	StatusSent     InvoiceStatus = "SENT"
	StatusReturned InvoiceStatus = "RETURNED"
	StatusCanceled InvoiceStatus = "CANCELED"
	StatusPaid     InvoiceStatus = "PAID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusSent, StatusReturned, StatusCanceled, StatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsSettled returns true for statuses that stop the overdue clock
func (s InvoiceStatus) IsSettled() bool {
	return s == StatusPaid || s == StatusCanceled
}

// PaymentMethod represents how the invoice is expected to be paid
type PaymentMethod string

const (
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentCash           PaymentMethod = "CASH"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentCard           PaymentMethod = "PAYMENT_CARD"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentBankTransfer, PaymentCash, PaymentCashOnDelivery, PaymentCard:
		return true
	}
	return false
}

// DeliveryMethod represents how the goods or services are delivered
type DeliveryMethod string

const (
	DeliveryPersonalPickup DeliveryMethod = "PERSONAL_PICKUP"
	DeliveryMailing        DeliveryMethod = "MAILING"
	DeliveryDigital        DeliveryMethod = "DIGITAL"
)

// IsValid checks if the delivery method is valid
func (m DeliveryMethod) IsValid() bool {
	switch m {
	case DeliveryPersonalPickup, DeliveryMailing, DeliveryDigital:
		return true
	}
	return false
}

// Invoice is the aggregate root for a single invoice document.
//
// Number and FullNumber are assigned exactly once by the NumberAllocator;
// any later attempt to overwrite them is rejected. Monetary figures are
// never stored on the aggregate - they are derived on demand from the
// current item collection (see amounts.go).
type Invoice struct {
	shared.BaseAggregateRoot
	Type       InvoiceType
	Number     int64
	FullNumber string
	Status     InvoiceStatus
	Subtitle   string
	Language   string
	Note       string

	DateIssue    time.Time
	DateTaxPoint time.Time
	DateDue      time.Time
	DateSent     *time.Time

	Currency valueobject.Currency
	Credit   decimal.Decimal

	PaymentMethod  PaymentMethod
	ConstantSymbol string
	VariableSymbol *int64
	SpecificSymbol *int64
	Reference      string

	Bank     BankAccount
	Supplier Party
	Issuer   ContactPerson
	Customer Party
	Shipping *ShippingAddress

	DeliveryMethod DeliveryMethod

	// TaxationPolicy optionally names a registered taxation policy that
	// overrides the configured one for this invoice alone.
	TaxationPolicy string

	Items []Item
}

// InvoiceDraft carries the caller-provided fields for a new invoice.
// Number and FullNumber are intentionally absent - they come from the
// allocator, never from the caller.
type InvoiceDraft struct {
	Type           InvoiceType
	Subtitle       string
	Language       string
	Note           string
	DateIssue      time.Time
	DateTaxPoint   time.Time
	DateDue        time.Time
	Currency       valueobject.Currency
	Credit         decimal.Decimal
	PaymentMethod  PaymentMethod
	ConstantSymbol string
	VariableSymbol *int64
	SpecificSymbol *int64
	Reference      string
	Bank           BankAccount
	Supplier       Party
	Issuer         ContactPerson
	Customer       Party
	Shipping       *ShippingAddress
	DeliveryMethod DeliveryMethod
	TaxationPolicy string
}

// NewInvoice creates a new invoice in status NEW from the given draft
func NewInvoice(draft InvoiceDraft) (*Invoice, error) {
	if draft.Type == "" {
		draft.Type = TypeInvoice
	}
	if !draft.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid invoice type: "+draft.Type.String())
	}
	if draft.DeliveryMethod == "" {
		draft.DeliveryMethod = DeliveryPersonalPickup
	}
	if !draft.DeliveryMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid delivery method")
	}
	if draft.PaymentMethod != "" && !draft.PaymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid payment method")
	}
	if draft.Supplier.Name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Supplier name cannot be empty")
	}
	if draft.Customer.Name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer name cannot be empty")
	}
	if draft.DateIssue.IsZero() || draft.DateTaxPoint.IsZero() || draft.DateDue.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Issue, tax point and due dates are required")
	}
	if draft.Currency == "" {
		draft.Currency = valueobject.DefaultCurrency
	}
	if draft.Credit.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Credit cannot be negative")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              draft.Type,
		Status:            StatusNew,
		Subtitle:          draft.Subtitle,
		Language:          draft.Language,
		Note:              draft.Note,
		DateIssue:         draft.DateIssue,
		DateTaxPoint:      draft.DateTaxPoint,
		DateDue:           draft.DateDue,
		Currency:          draft.Currency,
		Credit:            draft.Credit,
		PaymentMethod:     draft.PaymentMethod,
		ConstantSymbol:    draft.ConstantSymbol,
		VariableSymbol:    draft.VariableSymbol,
		SpecificSymbol:    draft.SpecificSymbol,
		Reference:         draft.Reference,
		Bank:              draft.Bank,
		Supplier:          draft.Supplier,
		Issuer:            draft.Issuer,
		Customer:          draft.Customer,
		Shipping:          draft.Shipping,
		DeliveryMethod:    draft.DeliveryMethod,
		TaxationPolicy:    draft.TaxationPolicy,
		Items:             make([]Item, 0),
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// SetNumber assigns the allocated sequence number and rendered full
// number. Both are immutable once set.
func (i *Invoice) SetNumber(number int64, fullNumber string) error {
	if i.Number != 0 || i.FullNumber != "" {
		return shared.ErrNumberAssigned
	}
	if number <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Invoice number must be positive")
	}
	if fullNumber == "" {
		return shared.NewDomainError("INVALID_INPUT", "Full number cannot be empty")
	}
	i.Number = number
	i.FullNumber = fullNumber
	i.Touch()
	i.AddDomainEvent(NewInvoiceNumberAssignedEvent(i))
	return nil
}

// HasNumber returns true once a sequence number has been assigned
func (i *Invoice) HasNumber() bool {
	return i.Number != 0
}

// AddItem appends a line item and keeps the collection ordered by
// weight ascending, then creation time ascending
func (i *Invoice) AddItem(item Item) {
	item.InvoiceID = i.ID
	i.Items = append(i.Items, item)
	sort.SliceStable(i.Items, func(a, b int) bool {
		if i.Items[a].Weight != i.Items[b].Weight {
			return i.Items[a].Weight < i.Items[b].Weight
		}
		return i.Items[a].CreatedAt.Before(i.Items[b].CreatedAt)
	})
	i.Touch()
	i.AddDomainEvent(NewInvoiceItemAddedEvent(i, &item))
}

// Status transition legality is deliberately not enforced here; the
// surrounding application owns the workflow. The setters only record
// the change and its side effects.

// MarkSent sets the status to SENT and records the send time once
func (i *Invoice) MarkSent() {
	i.setStatus(StatusSent)
	if i.DateSent == nil {
		now := time.Now()
		i.DateSent = &now
	}
}

// MarkPaid sets the status to PAID
func (i *Invoice) MarkPaid() {
	i.setStatus(StatusPaid)
}

// MarkCanceled sets the status to CANCELED
func (i *Invoice) MarkCanceled() {
	i.setStatus(StatusCanceled)
}

// MarkReturned sets the status to RETURNED
func (i *Invoice) MarkReturned() {
	i.setStatus(StatusReturned)
}

func (i *Invoice) setStatus(status InvoiceStatus) {
	if i.Status == status {
		return
	}
	previous := i.Status
	i.Status = status
	i.Touch()
	i.AddDomainEvent(NewInvoiceStatusChangedEvent(i, previous))
}

// GetCreditMoney returns the credit as Money in the invoice currency
func (i *Invoice) GetCreditMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(i.Credit, i.Currency)
	return m
}

// String returns the human-facing identifier of the invoice
func (i *Invoice) String() string {
	return i.FullNumber
}
