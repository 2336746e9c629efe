package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
)

// JSONMap is a string map stored as a JSON column
type JSONMap map[string]string

// Value implements driver.Valuer for JSON storage
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSON storage
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// PartyModel holds an identity block, embedded with a column prefix
type PartyModel struct {
	Name           string  `gorm:"type:varchar(255)"`
	Street         string  `gorm:"type:varchar(255)"`
	Zip            string  `gorm:"type:varchar(32)"`
	City           string  `gorm:"type:varchar(255)"`
	Country        string  `gorm:"type:varchar(2)"`
	RegistrationID string  `gorm:"type:varchar(255)"`
	TaxID          string  `gorm:"type:varchar(255)"`
	VATID          string  `gorm:"type:varchar(255)"`
	AdditionalInfo JSONMap `gorm:"type:jsonb"`
}

// ToDomain converts the model block to a domain Party
func (m PartyModel) ToDomain() invoicing.Party {
	return invoicing.Party{
		Name:           m.Name,
		Street:         m.Street,
		Zip:            m.Zip,
		City:           m.City,
		Country:        valueobject.CountryCode(m.Country),
		RegistrationID: m.RegistrationID,
		TaxID:          m.TaxID,
		VATID:          m.VATID,
		AdditionalInfo: m.AdditionalInfo,
	}
}

// PartyModelFromDomain converts a domain Party to its model block
func PartyModelFromDomain(p invoicing.Party) PartyModel {
	return PartyModel{
		Name:           p.Name,
		Street:         p.Street,
		Zip:            p.Zip,
		City:           p.City,
		Country:        p.Country.String(),
		RegistrationID: p.RegistrationID,
		TaxID:          p.TaxID,
		VATID:          p.VATID,
		AdditionalInfo: p.AdditionalInfo,
	}
}

// BankModel holds the supplier bank block
type BankModel struct {
	Name     string `gorm:"type:varchar(255)"`
	Street   string `gorm:"type:varchar(255)"`
	Zip      string `gorm:"type:varchar(32)"`
	City     string `gorm:"type:varchar(255)"`
	Country  string `gorm:"type:varchar(2)"`
	IBAN     string `gorm:"type:varchar(64)"`
	SwiftBIC string `gorm:"type:varchar(16)"`
}

// InvoiceModel is the persistence model for the Invoice aggregate root
type InvoiceModel struct {
	AggregateModel
	Type       string `gorm:"type:varchar(32);not null;index:idx_invoices_scope,priority:1"`
	Number     int64  `gorm:"not null;index"`
	FullNumber string `gorm:"type:varchar(128)"`
	Status     string `gorm:"type:varchar(32);not null;default:'NEW';index"`
	Subtitle   string `gorm:"type:varchar(255)"`
	Language   string `gorm:"type:varchar(10)"`
	Note       string `gorm:"type:varchar(255)"`

	DateIssue    time.Time `gorm:"type:date;not null;index:idx_invoices_scope,priority:2"`
	DateTaxPoint time.Time `gorm:"type:date;not null"`
	DateDue      time.Time `gorm:"type:date;not null;index"`
	DateSent     *time.Time

	Currency string          `gorm:"type:varchar(10);not null"`
	Credit   decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	PaymentMethod  string `gorm:"type:varchar(32)"`
	ConstantSymbol string `gorm:"type:varchar(8)"`
	VariableSymbol *int64
	SpecificSymbol *int64
	Reference      string `gorm:"type:varchar(140)"`

	Bank     BankModel  `gorm:"embedded;embeddedPrefix:bank_"`
	Supplier PartyModel `gorm:"embedded;embeddedPrefix:supplier_"`

	IssuerName  string `gorm:"type:varchar(255)"`
	IssuerEmail string `gorm:"type:varchar(255)"`
	IssuerPhone string `gorm:"type:varchar(64)"`

	Customer PartyModel `gorm:"embedded;embeddedPrefix:customer_"`

	ShippingName    string `gorm:"type:varchar(255)"`
	ShippingStreet  string `gorm:"type:varchar(255)"`
	ShippingZip     string `gorm:"type:varchar(32)"`
	ShippingCity    string `gorm:"type:varchar(255)"`
	ShippingCountry string `gorm:"type:varchar(2)"`

	DeliveryMethod string `gorm:"type:varchar(32)"`
	TaxationPolicy string `gorm:"type:varchar(64)"`

	Items []ItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoicing_invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		Type:           invoicing.InvoiceType(m.Type),
		Number:         m.Number,
		FullNumber:     m.FullNumber,
		Status:         invoicing.InvoiceStatus(m.Status),
		Subtitle:       m.Subtitle,
		Language:       m.Language,
		Note:           m.Note,
		DateIssue:      m.DateIssue,
		DateTaxPoint:   m.DateTaxPoint,
		DateDue:        m.DateDue,
		DateSent:       m.DateSent,
		Currency:       valueobject.Currency(m.Currency),
		Credit:         m.Credit,
		PaymentMethod:  invoicing.PaymentMethod(m.PaymentMethod),
		ConstantSymbol: m.ConstantSymbol,
		VariableSymbol: m.VariableSymbol,
		SpecificSymbol: m.SpecificSymbol,
		Reference:      m.Reference,
		Bank: invoicing.BankAccount{
			Name:     m.Bank.Name,
			Street:   m.Bank.Street,
			Zip:      m.Bank.Zip,
			City:     m.Bank.City,
			Country:  valueobject.CountryCode(m.Bank.Country),
			IBAN:     m.Bank.IBAN,
			SwiftBIC: m.Bank.SwiftBIC,
		},
		Supplier: m.Supplier.ToDomain(),
		Issuer: invoicing.ContactPerson{
			Name:  m.IssuerName,
			Email: m.IssuerEmail,
			Phone: m.IssuerPhone,
		},
		Customer:       m.Customer.ToDomain(),
		DeliveryMethod: invoicing.DeliveryMethod(m.DeliveryMethod),
		TaxationPolicy: m.TaxationPolicy,
		Items:          make([]invoicing.Item, 0, len(m.Items)),
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)

	if m.ShippingName != "" || m.ShippingStreet != "" || m.ShippingCity != "" {
		inv.Shipping = &invoicing.ShippingAddress{
			Name:    m.ShippingName,
			Street:  m.ShippingStreet,
			Zip:     m.ShippingZip,
			City:    m.ShippingCity,
			Country: valueobject.CountryCode(m.ShippingCountry),
		}
	}

	for i := range m.Items {
		inv.Items = append(inv.Items, *m.Items[i].ToDomain())
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.Type = inv.Type.String()
	m.Number = inv.Number
	m.FullNumber = inv.FullNumber
	m.Status = inv.Status.String()
	m.Subtitle = inv.Subtitle
	m.Language = inv.Language
	m.Note = inv.Note
	m.DateIssue = inv.DateIssue
	m.DateTaxPoint = inv.DateTaxPoint
	m.DateDue = inv.DateDue
	m.DateSent = inv.DateSent
	m.Currency = string(inv.Currency)
	m.Credit = inv.Credit
	m.PaymentMethod = string(inv.PaymentMethod)
	m.ConstantSymbol = inv.ConstantSymbol
	m.VariableSymbol = inv.VariableSymbol
	m.SpecificSymbol = inv.SpecificSymbol
	m.Reference = inv.Reference
	m.Bank = BankModel{
		Name:     inv.Bank.Name,
		Street:   inv.Bank.Street,
		Zip:      inv.Bank.Zip,
		City:     inv.Bank.City,
		Country:  inv.Bank.Country.String(),
		IBAN:     inv.Bank.IBAN,
		SwiftBIC: inv.Bank.SwiftBIC,
	}
	m.Supplier = PartyModelFromDomain(inv.Supplier)
	m.IssuerName = inv.Issuer.Name
	m.IssuerEmail = inv.Issuer.Email
	m.IssuerPhone = inv.Issuer.Phone
	m.Customer = PartyModelFromDomain(inv.Customer)
	if inv.Shipping != nil {
		m.ShippingName = inv.Shipping.Name
		m.ShippingStreet = inv.Shipping.Street
		m.ShippingZip = inv.Shipping.Zip
		m.ShippingCity = inv.Shipping.City
		m.ShippingCountry = inv.Shipping.Country.String()
	}
	m.DeliveryMethod = string(inv.DeliveryMethod)
	m.TaxationPolicy = inv.TaxationPolicy

	m.Items = make([]ItemModel, 0, len(inv.Items))
	for i := range inv.Items {
		im := ItemModel{}
		im.FromDomain(&inv.Items[i])
		m.Items = append(m.Items, im)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// ItemModel is the persistence model for invoice line items
type ItemModel struct {
	BaseModel
	InvoiceID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Title     string           `gorm:"type:varchar(255);not null"`
	Quantity  decimal.Decimal  `gorm:"type:decimal(10,3);not null"`
	Unit      string           `gorm:"type:varchar(16);not null;default:'PIECES'"`
	UnitPrice decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	Discount  decimal.Decimal  `gorm:"type:decimal(4,1);not null"`
	TaxRate   *decimal.Decimal `gorm:"type:decimal(4,1)"`
	Tag       string           `gorm:"type:varchar(128)"`
	Weight    int              `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "invoicing_items"
}

// ToDomain converts the persistence model to a domain Item
func (m *ItemModel) ToDomain() *invoicing.Item {
	item := &invoicing.Item{
		BaseEntity: m.BaseModel.ToDomain(),
		InvoiceID:  m.InvoiceID,
		Title:      m.Title,
		Quantity:   m.Quantity,
		Unit:       invoicing.ItemUnit(m.Unit),
		UnitPrice:  m.UnitPrice,
		Discount:   m.Discount,
		Tag:        m.Tag,
		Weight:     m.Weight,
	}
	if m.TaxRate != nil {
		rate := *m.TaxRate
		item.TaxRate = &rate
	}
	return item
}

// FromDomain populates the persistence model from a domain Item
func (m *ItemModel) FromDomain(item *invoicing.Item) {
	m.FromDomainBaseEntity(item.BaseEntity)
	m.InvoiceID = item.InvoiceID
	m.Title = item.Title
	m.Quantity = item.Quantity
	m.Unit = string(item.Unit)
	m.UnitPrice = item.UnitPrice
	m.Discount = item.Discount
	if item.TaxRate != nil {
		rate := *item.TaxRate
		m.TaxRate = &rate
	} else {
		m.TaxRate = nil
	}
	m.Tag = item.Tag
	m.Weight = item.Weight
}

// ItemModelFromDomain creates a new persistence model from a domain Item
func ItemModelFromDomain(item *invoicing.Item) *ItemModel {
	m := &ItemModel{}
	m.FromDomain(item)
	return m
}
