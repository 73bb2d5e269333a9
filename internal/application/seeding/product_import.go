package seeding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	catalogapp "github.com/grocery/backend/internal/application/catalog"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultFetchCount    = 20
	defaultFetchCategory = "food"
	realProductPause     = 500 * time.Millisecond
	importPause          = 300 * time.Millisecond
	importPageSize       = 5
	importQuantity       = 50
	realBarcodePrefixLen = 15
	importBarcodeLen     = 20
)

// ErrNoProductSource is returned by the import commands when no external source is configured
var ErrNoProductSource = errors.New("seeding: no product source configured")

// ImportResult reports what an import command did
type ImportResult struct {
	InvoicesCleared int64
	Cleared         int64
	Added           int
	Skipped         int
	Total           int64
}

// FetchProducts imports up to count hits of a category search. Hits without
// a name or barcode are skipped; existing barcodes are left untouched.
func (s *Seeder) FetchProducts(ctx context.Context, count int, category string) (ImportResult, error) {
	var result ImportResult
	if s.source == nil {
		return result, ErrNoProductSource
	}
	if count <= 0 {
		count = defaultFetchCount
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = defaultFetchCategory
	}

	s.printf("Fetching %d products from Open Food Facts (category: %s)", count, category)
	candidates, err := s.source.SearchCategory(ctx, category, count)
	if err != nil {
		return result, fmt.Errorf("search %q: %w", category, err)
	}
	if len(candidates) == 0 {
		s.printf("No products found for this search")
		return result, nil
	}

	for idx, c := range candidates {
		if c.Name == "" || c.Barcode == "" {
			result.Skipped++
			continue
		}
		exists, err := s.repos.Products.ExistsByBarcode(ctx, c.Barcode)
		if err != nil {
			return result, fmt.Errorf("check barcode %s: %w", c.Barcode, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		price := decimal.NewFromFloat(2 + s.rng.Float64()*13).Round(2)
		product, err := buildProduct(c, c.Category, price, s.between(10, 100), c.NutritionScore, c.Barcode)
		if err != nil {
			s.logger.Warn("Skipping product", zap.String("name", c.Name), zap.Error(err))
			result.Skipped++
			continue
		}
		if err := s.repos.Products.Save(ctx, product); err != nil {
			return result, fmt.Errorf("save %s: %w", c.Name, err)
		}
		result.Added++
		s.printf("[%d/%d] %s", idx+1, len(candidates), product.Name)
		s.printf("   Brand: %s", product.Brand)
		s.printf("   Score: %s | Price: $%s | Qty: %d", product.NutritionScore, product.Price.StringFixed(2), product.Quantity)
	}

	return s.finishImport(ctx, result)
}

// FetchRealProducts clears the catalog and imports the first hit of each
// fixed (category, term) search, priced by category.
func (s *Seeder) FetchRealProducts(ctx context.Context) (ImportResult, error) {
	var result ImportResult
	if s.source == nil {
		return result, ErrNoProductSource
	}

	if err := s.clearCatalog(ctx, &result); err != nil {
		return result, err
	}

	for _, search := range realProductSearches {
		candidates, err := s.source.SearchCategory(ctx, search.Term, 1)
		switch {
		case err != nil:
			s.printf("  %s: error: %v", search.Term, err)
			s.logger.Warn("Product search failed", zap.String("term", search.Term), zap.Error(err))
			result.Skipped++
		case len(candidates) == 0 || candidates[0].Name == "" || candidates[0].ImageURL == "":
			s.printf("  %s: no data", search.Term)
			result.Skipped++
		default:
			added, err := s.importCandidate(ctx, candidates[0], search.Category, realBarcodePrefixLen)
			if err != nil {
				return result, err
			}
			if added {
				result.Added++
				s.printf("  %s: %s", search.Term, candidates[0].Name)
			} else {
				result.Skipped++
				s.printf("  %s: already present", search.Term)
			}
		}

		if err := s.sleep(ctx, realProductPause); err != nil {
			return result, err
		}
	}

	return s.finishImport(ctx, result)
}

// ImportProducts clears the catalog and imports one product per search term
// across every category.
func (s *Seeder) ImportProducts(ctx context.Context) (ImportResult, error) {
	var result ImportResult
	if s.source == nil {
		return result, ErrNoProductSource
	}

	if err := s.clearCatalog(ctx, &result); err != nil {
		return result, err
	}

	for _, group := range importSearches {
		s.printf("Category: %s", group.Category)
		for _, term := range group.Terms {
			candidates, err := s.source.SearchCategory(ctx, term, importPageSize)
			if err != nil {
				s.printf("  error with %s: %v", term, err)
				s.logger.Warn("Product search failed", zap.String("term", term), zap.Error(err))
				result.Skipped++
				continue
			}
			candidate, ok := firstComplete(candidates)
			if !ok {
				result.Skipped++
				continue
			}

			added, err := s.importCandidate(ctx, candidate, group.Category, importBarcodeLen)
			if err != nil {
				return result, err
			}
			if added {
				result.Added++
				s.printf("  %s", candidate.Name)
			} else {
				result.Skipped++
			}

			if err := s.sleep(ctx, importPause); err != nil {
				return result, err
			}
		}
	}

	return s.finishImport(ctx, result)
}

// clearCatalog removes every product. Invoice lines reference products, so
// invoices are removed first.
func (s *Seeder) clearCatalog(ctx context.Context, result *ImportResult) error {
	invoices, err := s.repos.Invoices.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("clear invoices: %w", err)
	}
	products, err := s.repos.Products.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	result.InvoicesCleared = invoices
	result.Cleared = products
	s.printf("Cleared %d products and %d invoices", products, invoices)
	return nil
}

// firstComplete returns the first hit carrying a name, an image and nutrition data
func firstComplete(candidates []catalogapp.ProductCandidate) (catalogapp.ProductCandidate, bool) {
	for _, c := range candidates {
		if c.Name != "" && c.ImageURL != "" && c.HasNutriments {
			return c, true
		}
	}
	return catalogapp.ProductCandidate{}, false
}

// importCandidate stores a hit under category. Missing barcodes are derived
// from the name; unrated hits default to C.
func (s *Seeder) importCandidate(ctx context.Context, c catalogapp.ProductCandidate, category string, barcodeNameLen int) (bool, error) {
	barcode := c.Barcode
	if barcode == "" {
		barcode = fallbackBarcode(c.Name, barcodeNameLen)
	}
	exists, err := s.repos.Products.ExistsByBarcode(ctx, barcode)
	if err != nil {
		return false, fmt.Errorf("check barcode %s: %w", barcode, err)
	}
	if exists {
		return false, nil
	}

	score := c.NutritionScore
	if !score.IsRated() {
		score = catalog.NutritionScoreC
	}
	product, err := buildProduct(c, category, categoryPrice(category), importQuantity, score, barcode)
	if err != nil {
		s.logger.Warn("Skipping product", zap.String("name", c.Name), zap.Error(err))
		return false, nil
	}
	if err := s.repos.Products.Save(ctx, product); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return false, nil
		}
		return false, fmt.Errorf("save %s: %w", c.Name, err)
	}
	return true, nil
}

func (s *Seeder) finishImport(ctx context.Context, result ImportResult) (ImportResult, error) {
	total, err := s.repos.Products.Count(ctx, shared.Filter{})
	if err != nil {
		return result, fmt.Errorf("count products: %w", err)
	}
	result.Total = total

	s.printf("Added: %d products", result.Added)
	s.printf("Skipped: %d products", result.Skipped)
	s.printf("Total in database: %d products", result.Total)
	s.logger.Info("Product import complete",
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped),
		zap.Int64("total", result.Total),
	)
	return result, nil
}

func fallbackBarcode(name string, n int) string {
	upper := []rune(strings.ToUpper(name))
	if len(upper) > n {
		upper = upper[:n]
	}
	return "EAN-" + string(upper)
}

func buildProduct(c catalogapp.ProductCandidate, category string, price decimal.Decimal, quantity int, score catalog.NutritionScore, barcode string) (*catalog.Product, error) {
	product, err := catalog.NewProduct(c.Name, price)
	if err != nil {
		return nil, err
	}
	if err := product.Update(c.Name, c.Brand, category); err != nil {
		return nil, err
	}
	if err := product.SetPicture(c.ImageURL); err != nil {
		return nil, err
	}
	if err := product.SetNutritionScore(string(score)); err != nil {
		return nil, err
	}
	if err := product.SetBarcode(barcode); err != nil {
		return nil, err
	}
	if err := product.SetQuantity(quantity); err != nil {
		return nil, err
	}
	product.SetNutritionalInfo(c.NutritionalInfo)
	product.ClearDomainEvents()
	return product, nil
}
