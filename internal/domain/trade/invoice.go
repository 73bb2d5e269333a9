package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusCompleted InvoiceStatus = "completed"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// DefaultInvoiceStatus is applied when no status is given
const DefaultInvoiceStatus = InvoiceStatusCompleted

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusCompleted, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusPending:
		return target == InvoiceStatusCompleted || target == InvoiceStatusCancelled
	case InvoiceStatusCompleted:
		return target == InvoiceStatusCancelled
	case InvoiceStatusCancelled:
		return false
	}
	return false
}

// ParseInvoiceStatus parses a status string; blank input yields the default
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	if s == "" {
		return DefaultInvoiceStatus, nil
	}
	status := InvoiceStatus(s)
	if !status.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid invoice status: %s", s))
	}
	return status, nil
}

// InvoiceItem is a line on an invoice.
// Price is the product's unit price captured when the line was created.
type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	CreatedAt   time.Time
}

// NewInvoiceItem creates a line item with a price snapshot
func NewInvoiceItem(invoiceID, productID uuid.UUID, productName string, quantity int, price decimal.Decimal) (*InvoiceItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	return &InvoiceItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Price:       price.Round(2),
		CreatedAt:   time.Now(),
	}, nil
}

// Amount returns quantity * price
func (i *InvoiceItem) Amount() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Invoice is a bill issued to a customer.
// Total is always the sum of its items' amounts.
type Invoice struct {
	shared.BaseAggregateRoot
	CustomerID uuid.UUID
	Total      decimal.Decimal
	Status     InvoiceStatus
	Items      []InvoiceItem
}

// NewInvoice creates an empty invoice for a customer
func NewInvoice(customerID uuid.UUID, status InvoiceStatus) (*Invoice, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if status == "" {
		status = DefaultInvoiceStatus
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid invoice status: %s", status))
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Total:             decimal.Zero,
		Status:            status,
		Items:             make([]InvoiceItem, 0),
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// AddItem appends a line, snapshotting the given unit price
func (inv *Invoice) AddItem(productID uuid.UUID, productName string, quantity int, price decimal.Decimal) (*InvoiceItem, error) {
	if inv.Status == InvoiceStatusCancelled {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a cancelled invoice")
	}
	for _, item := range inv.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists on invoice, update quantity instead")
		}
	}

	item, err := NewInvoiceItem(inv.ID, productID, productName, quantity, price)
	if err != nil {
		return nil, err
	}

	inv.Items = append(inv.Items, *item)
	inv.recalculateTotal()
	inv.Touch()

	return item, nil
}

// UpdateItemQuantity changes the quantity of a line; the price snapshot is kept
func (inv *Invoice) UpdateItemQuantity(itemID uuid.UUID, quantity int) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot update items of a cancelled invoice")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			inv.Items[idx].Quantity = quantity
			inv.recalculateTotal()
			inv.Touch()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Invoice item not found")
}

// RemoveItem removes a line
func (inv *Invoice) RemoveItem(itemID uuid.UUID) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove items from a cancelled invoice")
	}

	for idx, item := range inv.Items {
		if item.ID == itemID {
			inv.Items = append(inv.Items[:idx], inv.Items[idx+1:]...)
			inv.recalculateTotal()
			inv.Touch()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Invoice item not found")
}

// ChangeStatus moves the invoice to a new status
func (inv *Invoice) ChangeStatus(target InvoiceStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid invoice status: %s", target))
	}
	if inv.Status == target {
		return nil
	}
	if !inv.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot change invoice from %s to %s", inv.Status, target))
	}

	from := inv.Status
	inv.Status = target
	inv.Touch()

	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, from))

	return nil
}

// Complete marks a pending invoice as completed
func (inv *Invoice) Complete() error {
	return inv.ChangeStatus(InvoiceStatusCompleted)
}

// Cancel cancels the invoice
func (inv *Invoice) Cancel() error {
	return inv.ChangeStatus(InvoiceStatusCancelled)
}

// Backdate sets the creation time, used when generating historical data
func (inv *Invoice) Backdate(at time.Time) {
	inv.CreatedAt = at
	inv.UpdatedAt = at
	for idx := range inv.Items {
		inv.Items[idx].CreatedAt = at
	}
}

// ItemCount returns the number of lines
func (inv *Invoice) ItemCount() int {
	return len(inv.Items)
}

// TotalQuantity returns the sum of all line quantities
func (inv *Invoice) TotalQuantity() int {
	total := 0
	for _, item := range inv.Items {
		total += item.Quantity
	}
	return total
}

// GetItem returns the line with the given ID, or nil
func (inv *Invoice) GetItem(itemID uuid.UUID) *InvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// GetItemByProduct returns the line for a product, or nil
func (inv *Invoice) GetItemByProduct(productID uuid.UUID) *InvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ProductID == productID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// IsCancelled returns true if the invoice was cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// recalculateTotal recomputes Total from the items
func (inv *Invoice) recalculateTotal() {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Amount())
	}
	inv.Total = total.Round(2)
}
