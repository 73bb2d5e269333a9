package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when business metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

const defaultCollectInterval = 5 * time.Minute

// CatalogStats is the read side of the product catalog sampled by the
// periodic collector
type CatalogStats interface {
	CountByNutritionScore(ctx context.Context) (map[catalog.NutritionScore]int64, error)
	InventoryValue(ctx context.Context) (decimal.Decimal, error)
}

// BusinessMetrics records grocery activity: invoices, revenue, catalog
// changes and nutrition enrichment
type BusinessMetrics struct {
	logger *zap.Logger

	invoicesCreated   *Counter
	invoiceRevenue    *FloatCounter
	invoiceItems      *Histogram
	statusChanges     *Counter
	productsCreated   *Counter
	productsDeleted   *Counter
	productsEnriched  *Counter
	catalogProducts   *Gauge
	catalogStockValue *Gauge

	stats       CatalogStats
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// BusinessMetricsConfig configures NewBusinessMetrics
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
	// Stats feeds the catalog gauges; nil disables periodic collection
	Stats CatalogStats
}

// NewBusinessMetrics registers every business instrument on the meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		logger:   logger,
		stats:    cfg.Stats,
		stopChan: make(chan struct{}),
	}

	var err error
	if bm.invoicesCreated, err = NewCounter(cfg.Meter,
		"grocery_invoices_created_total", "Invoices created", "{invoices}"); err != nil {
		return nil, err
	}
	if bm.invoiceRevenue, err = NewFloatCounter(cfg.Meter,
		"grocery_invoice_revenue_total", "Sum of created invoice totals", "{currency}"); err != nil {
		return nil, err
	}
	if bm.invoiceItems, err = NewHistogram(cfg.Meter,
		"grocery_invoice_items", "Lines per created invoice", "{items}", InvoiceSizeBuckets...); err != nil {
		return nil, err
	}
	if bm.statusChanges, err = NewCounter(cfg.Meter,
		"grocery_invoice_status_changes_total", "Invoice status transitions", "{changes}"); err != nil {
		return nil, err
	}
	if bm.productsCreated, err = NewCounter(cfg.Meter,
		"grocery_products_created_total", "Products added to the catalog", "{products}"); err != nil {
		return nil, err
	}
	if bm.productsDeleted, err = NewCounter(cfg.Meter,
		"grocery_products_deleted_total", "Products removed from the catalog", "{products}"); err != nil {
		return nil, err
	}
	if bm.productsEnriched, err = NewCounter(cfg.Meter,
		"grocery_products_enriched_total", "Products enriched with nutrition data", "{products}"); err != nil {
		return nil, err
	}
	if bm.catalogProducts, err = NewGauge(cfg.Meter,
		"grocery_catalog_products", "Products in the catalog by nutrition score", "{products}"); err != nil {
		return nil, err
	}
	if bm.catalogStockValue, err = NewGauge(cfg.Meter,
		"grocery_catalog_stock_value", "Sum of price times quantity over the catalog", "{currency}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordInvoiceCreated counts a new invoice with its total and size
func (bm *BusinessMetrics) RecordInvoiceCreated(ctx context.Context, status string, total decimal.Decimal, items int) {
	bm.invoicesCreated.Inc(ctx, AttrInvoiceStatus.String(status))
	bm.invoiceItems.Record(ctx, float64(items))
	if amount := total.InexactFloat64(); amount > 0 {
		bm.invoiceRevenue.Add(ctx, amount, AttrInvoiceStatus.String(status))
	}
}

// RecordInvoiceStatusChange counts a status transition
func (bm *BusinessMetrics) RecordInvoiceStatusChange(ctx context.Context, from, to string) {
	bm.statusChanges.Inc(ctx, AttrFromStatus.String(from), AttrInvoiceStatus.String(to))
}

// RecordProductCreated counts a catalog addition
func (bm *BusinessMetrics) RecordProductCreated(ctx context.Context) {
	bm.productsCreated.Inc(ctx)
}

// RecordProductDeleted counts a catalog removal
func (bm *BusinessMetrics) RecordProductDeleted(ctx context.Context) {
	bm.productsDeleted.Inc(ctx)
}

// RecordProductEnriched counts a successful nutrition lookup
func (bm *BusinessMetrics) RecordProductEnriched(ctx context.Context, source string) {
	bm.productsEnriched.Inc(ctx, AttrEnrichSource.String(source))
}

// CollectCatalog samples the catalog gauges once
func (bm *BusinessMetrics) CollectCatalog(ctx context.Context) {
	if bm.stats == nil {
		return
	}

	counts, err := bm.stats.CountByNutritionScore(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect catalog counts", zap.Error(err))
	} else {
		scores := append(catalog.AllNutritionScores(), catalog.NutritionScoreUnrated)
		for _, score := range scores {
			bm.catalogProducts.Record(ctx, float64(counts[score]), AttrNutritionScore.String(score.String()))
		}
	}

	value, err := bm.stats.InventoryValue(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect inventory value", zap.Error(err))
		return
	}
	bm.catalogStockValue.Record(ctx, value.InexactFloat64())
}

// StartPeriodicCollection samples the catalog every interval until Stop or
// ctx is done. Only the first call starts a collector.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = defaultCollectInterval
		}
		go bm.runCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.CollectCatalog(ctx)
	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.CollectCatalog(ctx)
		}
	}
}

// Stop ends periodic collection
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}
