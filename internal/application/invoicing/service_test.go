package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/invoicing/taxation"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
	"github.com/erp/invoicing/internal/infrastructure/numbering"
)

// MockInvoiceRepository is a mock implementation of domain.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) MaxNumberInScope(ctx context.Context, invoiceType domain.InvoiceType, window domain.DateWindow) (int64, error) {
	args := m.Called(ctx, invoiceType, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) Insert(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, invoiceType domain.InvoiceType, number int64, window domain.DateWindow) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceType, number, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByPeriod(ctx context.Context, invoiceType domain.InvoiceType, window domain.DateWindow) ([]domain.Invoice, error) {
	args := m.Called(ctx, invoiceType, window)
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.Item, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *MockInvoiceRepository) InsertItem(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) WithScopeLock(ctx context.Context, scopeKey string, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, scopeKey, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// capturePublisher records every published event
type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func newTestService(repo *MockInvoiceRepository, config domain.NumberingConfig, configuredPolicy string) *InvoiceService {
	allocator := domain.NewNumberAllocator(repo, numbering.NewTemplateRenderer(), config)
	resolver := taxation.NewResolver(taxation.NewRegistry(), configuredPolicy, decimal.NewFromInt(20))
	return NewInvoiceService(repo, allocator, resolver, nil, zap.NewNop())
}

func serviceDraft() domain.InvoiceDraft {
	return domain.InvoiceDraft{
		Type:         domain.TypeInvoice,
		DateIssue:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DateTaxPoint: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DateDue:      time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC),
		Supplier: domain.Party{
			Name:    "Supplier Ltd",
			Country: valueobject.NewCountryCode("SK"),
			VATID:   "SK2020000001",
		},
		Customer: domain.Party{
			Name:    "Customer GmbH",
			Country: valueobject.NewCountryCode("DE"),
		},
	}
}

func TestInvoiceService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates the number inside the scope lock", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		repo.On("WithScopeLock", mock.Anything, "invoice-number:INVOICE:2024-01-01:2025-01-01", mock.Anything).Return(nil)
		repo.On("MaxNumberInScope", mock.Anything, domain.TypeInvoice, mock.Anything).Return(int64(7), nil)
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		invoice, err := service.Create(ctx, serviceDraft(), nil)
		require.NoError(t, err)

		assert.Equal(t, int64(8), invoice.Number)
		assert.Equal(t, "2024/8", invoice.FullNumber)
		repo.AssertExpectations(t)
	})

	t.Run("freezes resolved tax rates on new items", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		repo.On("WithScopeLock", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		repo.On("MaxNumberInScope", mock.Anything, domain.TypeInvoice, mock.Anything).Return(int64(0), nil)
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		explicit := decimal.NewFromInt(10)
		invoice, err := service.Create(ctx, serviceDraft(), []NewItemInput{
			{Title: "Consulting", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(10)},
			{Title: "Fixed rate", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5), TaxRate: &explicit},
		})
		require.NoError(t, err)
		require.Len(t, invoice.Items, 2)

		// German consumer of an EU supplier: standard rate applies
		require.NotNil(t, invoice.Items[0].TaxRate)
		assert.True(t, decimal.NewFromInt(20).Equal(*invoice.Items[0].TaxRate))

		// An explicit rate is never recomputed
		require.NotNil(t, invoice.Items[1].TaxRate)
		assert.True(t, explicit.Equal(*invoice.Items[1].TaxRate))
	})

	t.Run("reverse charge for EU B2B customers", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		repo.On("WithScopeLock", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		repo.On("MaxNumberInScope", mock.Anything, domain.TypeInvoice, mock.Anything).Return(int64(0), nil)
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		draft := serviceDraft()
		draft.Customer.VATID = "DE123456789"
		invoice, err := service.Create(ctx, draft, []NewItemInput{
			{Title: "Consulting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		})
		require.NoError(t, err)
		require.NotNil(t, invoice.Items[0].TaxRate)
		assert.True(t, invoice.Items[0].TaxRate.IsZero())
	})

	t.Run("configuration errors abort before anything is stored", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{CounterPeriod: "WEEKLY"}, "")

		_, err := service.Create(ctx, serviceDraft(), nil)
		assert.ErrorIs(t, err, shared.ErrInvalidConfiguration)
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "WithScopeLock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unrenderable format aborts inside the lock", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{NumberFormat: `{{ romanize .Invoice.Number }}`}, "")

		repo.On("WithScopeLock", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		repo.On("MaxNumberInScope", mock.Anything, domain.TypeInvoice, mock.Anything).Return(int64(0), nil)

		_, err := service.Create(ctx, serviceDraft(), nil)
		assert.ErrorIs(t, err, shared.ErrInvalidConfiguration)
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("publishes domain events after persistence", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		allocator := domain.NewNumberAllocator(repo, numbering.NewTemplateRenderer(), domain.NumberingConfig{})
		resolver := taxation.NewResolver(taxation.NewRegistry(), "", decimal.NewFromInt(20))
		publisher := &capturePublisher{}
		service := NewInvoiceService(repo, allocator, resolver, publisher, zap.NewNop())

		repo.On("WithScopeLock", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		repo.On("MaxNumberInScope", mock.Anything, domain.TypeInvoice, mock.Anything).Return(int64(0), nil)
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		invoice, err := service.Create(ctx, serviceDraft(), nil)
		require.NoError(t, err)

		require.Len(t, publisher.events, 2)
		assert.Equal(t, domain.EventInvoiceCreated, publisher.events[0].EventType())
		assert.Equal(t, domain.EventInvoiceNumberAssigned, publisher.events[1].EventType())
		assert.Empty(t, invoice.GetDomainEvents())
	})

	t.Run("invalid draft is rejected", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		draft := serviceDraft()
		draft.Supplier.Name = ""
		_, err := service.Create(ctx, draft, nil)
		assert.Error(t, err)
	})
}

func TestInvoiceService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves and freezes the rate", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		invoice, err := domain.NewInvoice(serviceDraft())
		require.NoError(t, err)

		repo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		repo.On("InsertItem", mock.Anything, mock.Anything).Return(nil)

		item, err := service.AddItem(ctx, invoice.ID, NewItemInput{
			Title:     "Consulting",
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(50),
			Tag:       "services",
		})
		require.NoError(t, err)

		assert.Equal(t, invoice.ID, item.InvoiceID)
		assert.Equal(t, "services", item.Tag)
		require.NotNil(t, item.TaxRate)
		assert.True(t, decimal.NewFromInt(20).Equal(*item.TaxRate))
		repo.AssertExpectations(t)
	})

	t.Run("publishes the item added event", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		allocator := domain.NewNumberAllocator(repo, numbering.NewTemplateRenderer(), domain.NumberingConfig{})
		resolver := taxation.NewResolver(taxation.NewRegistry(), "", decimal.NewFromInt(20))
		publisher := &capturePublisher{}
		service := NewInvoiceService(repo, allocator, resolver, publisher, zap.NewNop())

		invoice, err := domain.NewInvoice(serviceDraft())
		require.NoError(t, err)
		invoice.ClearDomainEvents() // simulate a freshly loaded aggregate

		repo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		repo.On("InsertItem", mock.Anything, mock.Anything).Return(nil)

		item, err := service.AddItem(ctx, invoice.ID, NewItemInput{
			Title:     "Support",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(5),
		})
		require.NoError(t, err)

		require.Len(t, publisher.events, 1)
		added, ok := publisher.events[0].(*domain.InvoiceItemAddedEvent)
		require.True(t, ok)
		assert.Equal(t, domain.EventInvoiceItemAdded, added.EventType())
		assert.Equal(t, invoice.ID, added.AggregateID())
		assert.Equal(t, item.ID, added.ItemID)
		assert.Empty(t, invoice.GetDomainEvents())
	})

	t.Run("failed insert publishes nothing", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		allocator := domain.NewNumberAllocator(repo, numbering.NewTemplateRenderer(), domain.NumberingConfig{})
		resolver := taxation.NewResolver(taxation.NewRegistry(), "", decimal.NewFromInt(20))
		publisher := &capturePublisher{}
		service := NewInvoiceService(repo, allocator, resolver, publisher, zap.NewNop())

		invoice, err := domain.NewInvoice(serviceDraft())
		require.NoError(t, err)
		invoice.ClearDomainEvents()

		repo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		repo.On("InsertItem", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err = service.AddItem(ctx, invoice.ID, NewItemInput{
			Title:     "Support",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(5),
		})
		assert.Error(t, err)
		assert.Empty(t, publisher.events)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := service.AddItem(ctx, id, NewItemInput{
			Title:     "Consulting",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("invalid item input", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		invoice, err := domain.NewInvoice(serviceDraft())
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		_, err = service.AddItem(ctx, invoice.ID, NewItemInput{Title: ""})
		assert.Error(t, err)
		repo.AssertNotCalled(t, "InsertItem", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_Get(t *testing.T) {
	ctx := context.Background()
	repo := new(MockInvoiceRepository)
	service := newTestService(repo, domain.NumberingConfig{}, "")

	t.Run("found", func(t *testing.T) {
		invoice, err := domain.NewInvoice(serviceDraft())
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		got, err := service.Get(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, invoice.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := service.Get(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestInvoiceService_StatusTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("marks sent and persists the timestamp", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		invoice, err := domain.NewInvoice(serviceDraft())
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		repo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
			return inv.Status == domain.StatusSent && inv.DateSent != nil
		})).Return(nil)

		require.NoError(t, service.MarkSent(ctx, invoice.ID))
		repo.AssertExpectations(t)
	})

	t.Run("marks paid", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		invoice, err := domain.NewInvoice(serviceDraft())
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		repo.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, service.MarkPaid(ctx, invoice.ID))
		assert.Equal(t, domain.StatusPaid, invoice.Status)
	})

	t.Run("transition on a missing invoice", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		service := newTestService(repo, domain.NumberingConfig{}, "")

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		assert.ErrorIs(t, service.MarkCanceled(ctx, id), shared.ErrNotFound)
	})
}

func TestInvoiceService_ResolveTaxRate(t *testing.T) {
	repo := new(MockInvoiceRepository)
	service := newTestService(repo, domain.NumberingConfig{}, "")

	invoice, err := domain.NewInvoice(serviceDraft())
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(20).Equal(service.ResolveTaxRate(invoice)))
}
