package trade

import (
	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated       = "InvoiceCreated"
	EventTypeInvoiceStatusChanged = "InvoiceStatusChanged"
	EventTypeInvoiceDeleted       = "InvoiceDeleted"
)

// InvoiceCreatedEvent is published when a new invoice is created.
// Total and ItemCount reflect the invoice at save time, see FinalizeCreatedEvent.
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Status     InvoiceStatus   `json:"status"`
	Total      decimal.Decimal `json:"total"`
	ItemCount  int             `json:"item_count"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		CustomerID:      inv.CustomerID,
		Status:          inv.Status,
		Total:           inv.Total,
		ItemCount:       len(inv.Items),
	}
}

// FinalizeCreatedEvent refreshes a pending InvoiceCreatedEvent with the
// current total and item count. Call it after all items were added.
func (inv *Invoice) FinalizeCreatedEvent() {
	for _, e := range inv.GetDomainEvents() {
		if created, ok := e.(*InvoiceCreatedEvent); ok {
			created.Status = inv.Status
			created.Total = inv.Total
			created.ItemCount = len(inv.Items)
		}
	}
}

// InvoiceStatusChangedEvent is published when an invoice changes status
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	FromStatus InvoiceStatus   `json:"from_status"`
	ToStatus   InvoiceStatus   `json:"to_status"`
	Total      decimal.Decimal `json:"total"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(inv *Invoice, from InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		CustomerID:      inv.CustomerID,
		FromStatus:      from,
		ToStatus:        inv.Status,
		Total:           inv.Total,
	}
}

// InvoiceDeletedEvent is published when an invoice is removed
type InvoiceDeletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Total     decimal.Decimal `json:"total"`
}

// NewInvoiceDeletedEvent creates a new InvoiceDeletedEvent
func NewInvoiceDeletedEvent(inv *Invoice) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDeleted, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		Total:           inv.Total,
	}
}
