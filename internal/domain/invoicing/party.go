package invoicing

import "github.com/erp/invoicing/internal/domain/shared/valueobject"

// Party is the identity block shared by supplier and customer.
// Registration, tax and VAT identifiers are stored as given; their
// structural validation belongs to a validation collaborator.
type Party struct {
	Name           string                  `json:"name"`
	Street         string                  `json:"street"`
	Zip            string                  `json:"zip"`
	City           string                  `json:"city"`
	Country        valueobject.CountryCode `json:"country"`
	RegistrationID string                  `json:"registration_id"`
	TaxID          string                  `json:"tax_id"`
	VATID          string                  `json:"vat_id"`
	AdditionalInfo map[string]string       `json:"additional_info,omitempty"`
}

// BankAccount holds the supplier's bank details printed on the invoice
type BankAccount struct {
	Name     string                  `json:"name"`
	Street   string                  `json:"street"`
	Zip      string                  `json:"zip"`
	City     string                  `json:"city"`
	Country  valueobject.CountryCode `json:"country"`
	IBAN     string                  `json:"iban"`
	SwiftBIC string                  `json:"swift_bic"`
}

// ContactPerson is the issuer contact printed on the invoice
type ContactPerson struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ShippingAddress is the optional delivery address block
type ShippingAddress struct {
	Name    string                  `json:"name"`
	Street  string                  `json:"street"`
	Zip     string                  `json:"zip"`
	City    string                  `json:"city"`
	Country valueobject.CountryCode `json:"country"`
}
