package invoicing

import (
	"github.com/google/uuid"

	"github.com/erp/invoicing/internal/domain/shared"
)

// Event types for the invoice aggregate
const (
	EventInvoiceCreated        = "invoice.created"
	EventInvoiceNumberAssigned = "invoice.number_assigned"
	EventInvoiceStatusChanged  = "invoice.status_changed"
	EventInvoiceItemAdded      = "invoice.item_added"
)

const aggregateTypeInvoice = "Invoice"

// InvoiceCreatedEvent is emitted when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceType InvoiceType `json:"invoice_type"`
	Currency    string      `json:"currency"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(invoice *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCreated, aggregateTypeInvoice, invoice.ID),
		InvoiceType:     invoice.Type,
		Currency:        string(invoice.Currency),
	}
}

// InvoiceNumberAssignedEvent is emitted when the sequence number and
// full number are frozen on the invoice
type InvoiceNumberAssignedEvent struct {
	shared.BaseDomainEvent
	Number     int64  `json:"number"`
	FullNumber string `json:"full_number"`
}

// NewInvoiceNumberAssignedEvent creates a new InvoiceNumberAssignedEvent
func NewInvoiceNumberAssignedEvent(invoice *Invoice) *InvoiceNumberAssignedEvent {
	return &InvoiceNumberAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceNumberAssigned, aggregateTypeInvoice, invoice.ID),
		Number:          invoice.Number,
		FullNumber:      invoice.FullNumber,
	}
}

// InvoiceStatusChangedEvent is emitted on every status change
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	PreviousStatus InvoiceStatus `json:"previous_status"`
	NewStatus      InvoiceStatus `json:"new_status"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(invoice *Invoice, previous InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceStatusChanged, aggregateTypeInvoice, invoice.ID),
		PreviousStatus:  previous,
		NewStatus:       invoice.Status,
	}
}

// InvoiceItemAddedEvent is emitted when a line item joins the invoice
type InvoiceItemAddedEvent struct {
	shared.BaseDomainEvent
	ItemID uuid.UUID `json:"item_id"`
	Title  string    `json:"title"`
}

// NewInvoiceItemAddedEvent creates a new InvoiceItemAddedEvent
func NewInvoiceItemAddedEvent(invoice *Invoice, item *Item) *InvoiceItemAddedEvent {
	return &InvoiceItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceItemAdded, aggregateTypeInvoice, invoice.ID),
		ItemID:          item.ID,
		Title:           item.Title,
	}
}
