// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: AggregateModel, the columns every table shares
//   - catalog.go: products
//   - partner.go: customers
//   - trade.go: invoices and invoice_items
//   - identity.go: users
package models
