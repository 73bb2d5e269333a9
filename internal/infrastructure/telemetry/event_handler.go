package telemetry

import (
	"context"

	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/domain/trade"
)

// MetricsEventHandler turns published domain events into business metrics
type MetricsEventHandler struct {
	metrics *BusinessMetrics
}

// NewMetricsEventHandler creates the handler
func NewMetricsEventHandler(metrics *BusinessMetrics) *MetricsEventHandler {
	return &MetricsEventHandler{metrics: metrics}
}

// EventTypes lists the events that carry metric data
func (h *MetricsEventHandler) EventTypes() []string {
	return []string{
		trade.EventTypeInvoiceCreated,
		trade.EventTypeInvoiceStatusChanged,
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductDeleted,
		catalog.EventTypeProductEnriched,
	}
}

// Handle records the event. Unknown events are ignored.
func (h *MetricsEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *trade.InvoiceCreatedEvent:
		h.metrics.RecordInvoiceCreated(ctx, string(e.Status), e.Total, e.ItemCount)
	case *trade.InvoiceStatusChangedEvent:
		h.metrics.RecordInvoiceStatusChange(ctx, string(e.FromStatus), string(e.ToStatus))
	case *catalog.ProductCreatedEvent:
		h.metrics.RecordProductCreated(ctx)
	case *catalog.ProductDeletedEvent:
		h.metrics.RecordProductDeleted(ctx)
	case *catalog.ProductEnrichedEvent:
		h.metrics.RecordProductEnriched(ctx, e.Source)
	}
	return nil
}

var _ shared.EventHandler = (*MetricsEventHandler)(nil)
