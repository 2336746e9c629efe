// Package invoicing orchestrates invoice creation: number allocation
// inside the storage scope lock, tax-rate resolution for new items, and
// status changes.
package invoicing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/invoicing/taxation"
	"github.com/erp/invoicing/internal/domain/shared"
)

// InvoiceService handles invoice business operations
type InvoiceService struct {
	repo      domain.InvoiceRepository
	allocator *domain.NumberAllocator
	resolver  *taxation.Resolver
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewInvoiceService creates a new InvoiceService. The publisher may be
// nil; domain events are then discarded after persistence.
func NewInvoiceService(repo domain.InvoiceRepository, allocator *domain.NumberAllocator, resolver *taxation.Resolver, publisher shared.EventPublisher, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		repo:      repo,
		allocator: allocator,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
	}
}

// publishEvents delivers the aggregate's pending events once the state
// change has been persisted, then clears them. Event delivery is best
// effort and never fails the business operation.
func (s *InvoiceService) publishEvents(ctx context.Context, invoice *domain.Invoice) {
	events := invoice.GetDomainEvents()
	invoice.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("publishing domain events failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

// NewItemInput carries the caller-provided fields for a new line item
type NewItemInput struct {
	Title     string
	Quantity  decimal.Decimal
	Unit      domain.ItemUnit
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	TaxRate   *decimal.Decimal
	Tag       string
	Weight    int
}

// Create builds the invoice from the draft, allocates its number inside
// the per-scope lock and persists it atomically. A configuration error
// aborts the whole creation; no invoice is stored with a partially
// assigned number.
func (s *InvoiceService) Create(ctx context.Context, draft domain.InvoiceDraft, items []NewItemInput) (*domain.Invoice, error) {
	invoice, err := domain.NewInvoice(draft)
	if err != nil {
		return nil, err
	}

	for _, in := range items {
		item, err := s.buildItem(invoice, in)
		if err != nil {
			return nil, err
		}
		invoice.AddItem(*item)
	}

	scopeKey, err := s.allocator.ScopeKey(invoice)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithScopeLock(ctx, scopeKey, func(ctx context.Context) error {
		number, fullNumber, err := s.allocator.Allocate(ctx, invoice)
		if err != nil {
			return err
		}
		if err := invoice.SetNumber(number, fullNumber); err != nil {
			return err
		}
		return s.repo.Insert(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("full_number", invoice.FullNumber),
		zap.String("type", invoice.Type.String()),
	)
	s.publishEvents(ctx, invoice)
	return invoice, nil
}

// AddItem appends a line item to an existing invoice. A missing tax
// rate is resolved through the taxation policy and frozen; it is never
// recomputed later.
func (s *InvoiceService) AddItem(ctx context.Context, invoiceID uuid.UUID, in NewItemInput) (*domain.Item, error) {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.ErrNotFound
	}

	item, err := s.buildItem(invoice, in)
	if err != nil {
		return nil, err
	}
	item.InvoiceID = invoice.ID
	invoice.AddItem(*item)

	if err := s.repo.InsertItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Debug("invoice item added",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("item_id", item.ID.String()),
	)
	s.publishEvents(ctx, invoice)
	return item, nil
}

// buildItem constructs the item and resolves its tax rate when absent
func (s *InvoiceService) buildItem(invoice *domain.Invoice, in NewItemInput) (*domain.Item, error) {
	item, err := domain.NewItem(in.Title, in.Quantity, in.UnitPrice, in.Discount, in.TaxRate, in.Unit, in.Weight)
	if err != nil {
		return nil, err
	}
	item.Tag = in.Tag
	if !item.HasTaxRate() {
		item.ResolveTaxRate(s.resolver.TaxRateFor(invoice))
	}
	return item, nil
}

// Get loads an invoice with its items
func (s *InvoiceService) Get(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.ErrNotFound
	}
	return invoice, nil
}

// MarkSent transitions the invoice to SENT, recording the send time once
func (s *InvoiceService) MarkSent(ctx context.Context, invoiceID uuid.UUID) error {
	return s.updateStatus(ctx, invoiceID, (*domain.Invoice).MarkSent)
}

// MarkPaid transitions the invoice to PAID
func (s *InvoiceService) MarkPaid(ctx context.Context, invoiceID uuid.UUID) error {
	return s.updateStatus(ctx, invoiceID, (*domain.Invoice).MarkPaid)
}

// MarkCanceled transitions the invoice to CANCELED
func (s *InvoiceService) MarkCanceled(ctx context.Context, invoiceID uuid.UUID) error {
	return s.updateStatus(ctx, invoiceID, (*domain.Invoice).MarkCanceled)
}

// MarkReturned transitions the invoice to RETURNED
func (s *InvoiceService) MarkReturned(ctx context.Context, invoiceID uuid.UUID) error {
	return s.updateStatus(ctx, invoiceID, (*domain.Invoice).MarkReturned)
}

func (s *InvoiceService) updateStatus(ctx context.Context, invoiceID uuid.UUID, transition func(*domain.Invoice)) error {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return shared.ErrNotFound
	}
	transition(invoice)
	if err := s.repo.UpdateStatus(ctx, invoice); err != nil {
		return err
	}
	s.logger.Info("invoice status changed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", invoice.Status.String()),
	)
	s.publishEvents(ctx, invoice)
	return nil
}

// ResolveTaxRate returns the rate a new rate-less item on the invoice
// would be frozen to
func (s *InvoiceService) ResolveTaxRate(invoice *domain.Invoice) decimal.Decimal {
	return s.resolver.TaxRateFor(invoice)
}
