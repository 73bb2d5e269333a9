package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/partner"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	recentInvoiceCount = 5
	topProductCount    = 5
	dashboardCacheKey  = "dashboard:stats"
)

// Cache stores the serialized dashboard between requests
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DashboardStats is the admin dashboard payload
type DashboardStats struct {
	TotalProducts    int64                 `json:"total_products"`
	TotalCustomers   int64                 `json:"total_customers"`
	TotalInvoices    int64                 `json:"total_invoices"`
	TotalRevenue     decimal.Decimal       `json:"total_revenue"`
	AverageInvoice   decimal.Decimal       `json:"average_invoice"`
	InventoryValue   decimal.Decimal       `json:"inventory_value"`
	RecentInvoices   []RecentInvoice       `json:"recent_invoices"`
	TopProducts      []TopProduct          `json:"top_products"`
	NutritionScores  []NutritionScoreCount `json:"nutrition_scores"`
	InvoicesByStatus map[string]int64      `json:"invoices_by_status"`
	GeneratedAt      time.Time             `json:"generated_at"`
}

// RecentInvoice is a compact invoice row
type RecentInvoice struct {
	ID           uuid.UUID       `json:"id"`
	CustomerID   uuid.UUID       `json:"customer"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
	ItemCount    int             `json:"item_count"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TopProduct is a best-selling product
type TopProduct struct {
	Rank        int             `json:"rank"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// NutritionScoreCount is the number of products with a grade
type NutritionScoreCount struct {
	Score string `json:"score"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DashboardService aggregates the admin dashboard
type DashboardService struct {
	productRepo  catalog.ProductRepository
	customerRepo partner.CustomerRepository
	invoiceRepo  trade.InvoiceRepository
	cache        Cache
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	productRepo catalog.ProductRepository,
	customerRepo partner.CustomerRepository,
	invoiceRepo trade.InvoiceRepository,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		productRepo:  productRepo,
		customerRepo: customerRepo,
		invoiceRepo:  invoiceRepo,
		logger:       logger,
	}
}

// SetCache enables caching of the computed stats for ttl
func (s *DashboardService) SetCache(cache Cache, ttl time.Duration) {
	s.cache = cache
	s.cacheTTL = ttl
}

// GetStats returns the dashboard, served from cache when fresh
func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	if cached := s.readCache(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, stats)
	return stats, nil
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardStats, error) {
	all := shared.Filter{}
	billable := shared.Filter{}.With("exclude_status", string(trade.InvoiceStatusCancelled))

	stats := &DashboardStats{
		InvoicesByStatus: make(map[string]int64),
		GeneratedAt:      time.Now().UTC(),
	}

	var err error
	if stats.TotalProducts, err = s.productRepo.Count(ctx, all); err != nil {
		return nil, err
	}
	if stats.TotalCustomers, err = s.customerRepo.Count(ctx, all); err != nil {
		return nil, err
	}
	if stats.TotalInvoices, err = s.invoiceRepo.Count(ctx, all); err != nil {
		return nil, err
	}

	for _, status := range []trade.InvoiceStatus{trade.InvoiceStatusPending, trade.InvoiceStatusCompleted, trade.InvoiceStatusCancelled} {
		n, err := s.invoiceRepo.Count(ctx, shared.Filter{}.With("status", string(status)))
		if err != nil {
			return nil, err
		}
		stats.InvoicesByStatus[string(status)] = n
	}

	if stats.TotalRevenue, err = s.invoiceRepo.SumTotals(ctx, billable); err != nil {
		return nil, err
	}
	billableCount := stats.InvoicesByStatus[string(trade.InvoiceStatusPending)] + stats.InvoicesByStatus[string(trade.InvoiceStatusCompleted)]
	stats.AverageInvoice = averageOf(stats.TotalRevenue, billableCount)

	if stats.InventoryValue, err = s.productRepo.InventoryValue(ctx); err != nil {
		return nil, err
	}

	if stats.RecentInvoices, err = s.recentInvoices(ctx); err != nil {
		return nil, err
	}

	sales, err := s.invoiceRepo.TopProducts(ctx, topProductCount)
	if err != nil {
		return nil, err
	}
	stats.TopProducts = make([]TopProduct, len(sales))
	for i, sale := range sales {
		stats.TopProducts[i] = TopProduct{
			Rank:        i + 1,
			ProductID:   sale.ProductID,
			ProductName: sale.ProductName,
			Quantity:    sale.Quantity,
			Revenue:     sale.Revenue,
		}
	}

	byScore, err := s.productRepo.CountByNutritionScore(ctx)
	if err != nil {
		return nil, err
	}
	scores := append(catalog.AllNutritionScores(), catalog.NutritionScoreUnrated)
	stats.NutritionScores = make([]NutritionScoreCount, 0, len(scores))
	for _, score := range scores {
		stats.NutritionScores = append(stats.NutritionScores, NutritionScoreCount{
			Score: score.String(),
			Label: score.Label(),
			Count: byScore[score],
		})
	}

	return stats, nil
}

func (s *DashboardService) recentInvoices(ctx context.Context) ([]RecentInvoice, error) {
	invoices, err := s.invoiceRepo.FindAll(ctx, shared.Filter{
		Page:     1,
		PageSize: recentInvoiceCount,
		OrderBy:  "created_at",
		OrderDir: "desc",
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.CustomerID)
	}
	customers, err := s.customerRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.FirstName
	}

	recent := make([]RecentInvoice, len(invoices))
	for i, inv := range invoices {
		recent[i] = RecentInvoice{
			ID:           inv.ID,
			CustomerID:   inv.CustomerID,
			CustomerName: names[inv.CustomerID],
			Total:        inv.Total,
			Status:       string(inv.Status),
			ItemCount:    inv.ItemCount(),
			CreatedAt:    inv.CreatedAt,
		}
	}
	return recent, nil
}

func (s *DashboardService) readCache(ctx context.Context) *DashboardStats {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, ok, err := s.cache.Get(ctx, dashboardCacheKey)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("dashboard cache entry is corrupt", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *DashboardService) writeCache(ctx context.Context, stats *DashboardStats) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, raw, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
}

func averageOf(total decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(count)).Round(2)
}
