// Package invoicing contains the invoice numbering and financial
// computation core: the Invoice aggregate with its line items, the
// period-scoped sequence number allocator, and the pure monetary
// aggregation used to derive subtotal, VAT and total figures.
//
// Persistence, identifier validation and document rendering are
// collaborators consumed through interfaces defined here.
package invoicing
