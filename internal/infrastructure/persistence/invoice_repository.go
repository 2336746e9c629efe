package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
)

// txContextKey carries the scope-lock transaction through the context
// so repository reads and writes inside WithScopeLock join it.
type txContextKey struct{}

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM.
//
// WithScopeLock serializes number allocation per scope key. On
// PostgreSQL it takes a transaction-scoped advisory lock, which also
// covers concurrent processes; other dialects fall back to an
// in-process keyed mutex, which is sufficient for single-process use
// and for the sqlite test setup.
type GormInvoiceRepository struct {
	db    *gorm.DB
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// dbFrom returns the scope-lock transaction when the context carries
// one, the base connection otherwise
func (r *GormInvoiceRepository) dbFrom(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// MaxNumberInScope returns the highest assigned number among invoices
// of the given type issued inside the window, 0 when there are none
func (r *GormInvoiceRepository) MaxNumberInScope(ctx context.Context, invoiceType invoicing.InvoiceType, window invoicing.DateWindow) (int64, error) {
	var max sql.NullInt64
	row := r.dbFrom(ctx).WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("type = ? AND date_issue >= ? AND date_issue < ?", invoiceType.String(), window.From, window.To).
		Select("MAX(number)").
		Row()
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("scanning max number: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// Insert persists a new invoice together with its items
func (r *GormInvoiceRepository) Insert(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.dbFrom(ctx).WithContext(ctx).Create(model).Error
}

// FindByID loads an invoice with its items, nil when absent
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	err := r.dbFrom(ctx).WithContext(ctx).
		Preload("Items", itemOrdering).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber loads an invoice by type and number within the window,
// nil when absent
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceType invoicing.InvoiceType, number int64, window invoicing.DateWindow) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	err := r.dbFrom(ctx).WithContext(ctx).
		Preload("Items", itemOrdering).
		Where("type = ? AND number = ? AND date_issue >= ? AND date_issue < ?",
			invoiceType.String(), number, window.From, window.To).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPeriod lists invoices of the given type issued inside the
// window, ordered by issue date then number
func (r *GormInvoiceRepository) FindByPeriod(ctx context.Context, invoiceType invoicing.InvoiceType, window invoicing.DateWindow) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	err := r.dbFrom(ctx).WithContext(ctx).
		Preload("Items", itemOrdering).
		Where("type = ? AND date_issue >= ? AND date_issue < ?", invoiceType.String(), window.From, window.To).
		Order("date_issue ASC, number ASC").
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}
	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// ListItems returns the invoice's items ordered by weight ascending,
// then creation time ascending
func (r *GormInvoiceRepository) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Item, error) {
	var itemModels []models.ItemModel
	err := r.dbFrom(ctx).WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("weight ASC, created_at ASC").
		Find(&itemModels).Error
	if err != nil {
		return nil, err
	}
	items := make([]invoicing.Item, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items, nil
}

// InsertItem persists a single line item
func (r *GormInvoiceRepository) InsertItem(ctx context.Context, item *invoicing.Item) error {
	model := models.ItemModelFromDomain(item)
	return r.dbFrom(ctx).WithContext(ctx).Create(model).Error
}

// UpdateStatus persists a status change with the sent timestamp
func (r *GormInvoiceRepository) UpdateStatus(ctx context.Context, invoice *invoicing.Invoice) error {
	return r.dbFrom(ctx).WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"status":     invoice.Status.String(),
			"date_sent":  invoice.DateSent,
			"updated_at": invoice.UpdatedAt,
		}).Error
}

// WithScopeLock runs fn while holding exclusive ownership of the scope
// key. fn receives a context carrying the transaction; repository calls
// made with it join that transaction.
func (r *GormInvoiceRepository) WithScopeLock(ctx context.Context, scopeKey string, fn func(ctx context.Context) error) error {
	lock := r.keyedLock(scopeKey)
	lock.Lock()
	defer lock.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", scopeKey).Error; err != nil {
				return fmt.Errorf("acquiring scope lock: %w", err)
			}
		}
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

func (r *GormInvoiceRepository) keyedLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

func itemOrdering(db *gorm.DB) *gorm.DB {
	return db.Order("weight ASC, created_at ASC")
}
