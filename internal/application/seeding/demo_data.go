package seeding

import (
	"context"
	"fmt"
	"strings"
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
	sampleInvoiceProducts = 3
	invoicesPerCustomer   = 2
	populateProductLimit  = 20
	barcodeLength         = 12
)

var (
	priceOverTen  = decimal.NewFromInt(10)
	priceOverFive = decimal.NewFromInt(5)
)

// SeedDataResult reports what seed-data created
type SeedDataResult struct {
	AdminCreated     bool
	UsersCreated     int
	CustomersCreated int
	ProductsCreated  int
	InvoicesCreated  int
}

// SeedData creates the admin account, the test customers and the fixed
// product catalog, skipping whatever already exists. Sample invoices are
// added on every run, two for each customer in the database.
func (s *Seeder) SeedData(ctx context.Context) (SeedDataResult, error) {
	var result SeedDataResult

	_, created, err := s.ensureUser(ctx, adminAccount)
	if err != nil {
		return result, err
	}
	result.AdminCreated = created
	if created {
		s.printf("Admin user created: %s/%s", adminAccount.Username, adminAccount.Password)
	} else {
		s.printf("Admin user already exists")
	}

	for _, fixture := range testCustomers {
		user, userCreated, err := s.ensureUser(ctx, fixture.Account)
		if err != nil {
			return result, err
		}
		customer, customerCreated, err := s.ensureCustomer(ctx, user, fixture.Contact)
		if err != nil {
			return result, err
		}
		if userCreated {
			result.UsersCreated++
		}
		if customerCreated {
			result.CustomersCreated++
			s.printf("Customer created: %s (%s/%s)", customer.FullName(), fixture.Account.Username, fixture.Account.Password)
		}
	}

	products, err := s.seedProducts(ctx)
	if err != nil {
		return result, err
	}
	result.ProductsCreated = len(products)

	n, err := s.seedSampleInvoices(ctx)
	if err != nil {
		return result, err
	}
	result.InvoicesCreated = n

	s.logger.Info("Seed data complete",
		zap.Bool("admin_created", result.AdminCreated),
		zap.Int("customers_created", result.CustomersCreated),
		zap.Int("products_created", result.ProductsCreated),
		zap.Int("invoices_created", result.InvoicesCreated),
	)
	return result, nil
}

func (s *Seeder) seedProducts(ctx context.Context) ([]*catalog.Product, error) {
	count, err := s.repos.Products.Count(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		s.printf("Products already exist (%d), skipping catalog", count)
		return nil, nil
	}

	products := make([]*catalog.Product, 0, len(sampleProducts))
	for _, fixture := range sampleProducts {
		product, err := catalog.NewProduct(fixture.Name, decimal.RequireFromString(fixture.Price))
		if err != nil {
			return nil, err
		}
		if err := product.Update(fixture.Name, fixture.Brand, fixture.Category); err != nil {
			return nil, err
		}
		if err := product.SetNutritionScore(string(fixture.Score)); err != nil {
			return nil, err
		}
		if err := product.SetQuantity(fixture.Quantity); err != nil {
			return nil, err
		}
		if err := product.SetBarcode(uuid.NewString()[:barcodeLength]); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
		products = append(products, product)
	}

	if err := s.repos.Products.SaveBatch(ctx, products); err != nil {
		return nil, fmt.Errorf("save products: %w", err)
	}
	s.printf("Created %d products", len(products))
	return products, nil
}

// sampleQuantity buys fewer units of expensive products
func sampleQuantity(p catalog.Product) int {
	switch {
	case p.Price.GreaterThan(priceOverTen):
		return 1
	case p.Price.GreaterThan(priceOverFive):
		return 2
	default:
		return 3
	}
}

// seedSampleInvoices gives every customer invoicesPerCustomer completed
// invoices. Existing invoices are kept, so each run adds more.
func (s *Seeder) seedSampleInvoices(ctx context.Context) (int, error) {
	customers, err := s.allCustomers(ctx)
	if err != nil {
		return 0, fmt.Errorf("load customers: %w", err)
	}
	products, err := s.allProducts(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("load products: %w", err)
	}
	if len(customers) == 0 || len(products) == 0 {
		s.printf("No customers or products found, skipping sample invoices")
		return 0, nil
	}

	invoices := make([]*trade.Invoice, 0, len(customers)*invoicesPerCustomer)
	for _, customer := range customers {
		for range invoicesPerCustomer {
			invoice, err := newInvoice(customer.ID, s.pick(products, sampleInvoiceProducts), sampleQuantity)
			if err != nil {
				return 0, err
			}
			invoices = append(invoices, invoice)
		}
	}

	if err := s.repos.Invoices.SaveBatch(ctx, invoices); err != nil {
		return 0, fmt.Errorf("save invoices: %w", err)
	}
	s.printf("Created %d sample invoices", len(invoices))
	return len(invoices), nil
}

// CreateInvoicesResult reports what create-invoices did
type CreateInvoicesResult struct {
	Deleted int64
	Created int
	Items   int
}

// CreateInvoices replaces every invoice with 2-3 random completed invoices per customer
func (s *Seeder) CreateInvoices(ctx context.Context) (CreateInvoicesResult, error) {
	var result CreateInvoicesResult

	deleted, err := s.repos.Invoices.DeleteAll(ctx)
	if err != nil {
		return result, fmt.Errorf("delete invoices: %w", err)
	}
	result.Deleted = deleted
	s.printf("Deleted %d existing invoices", deleted)

	customers, err := s.allCustomers(ctx)
	if err != nil {
		return result, fmt.Errorf("load customers: %w", err)
	}
	products, err := s.allProducts(ctx, 0)
	if err != nil {
		return result, fmt.Errorf("load products: %w", err)
	}
	if len(customers) == 0 || len(products) == 0 {
		s.printf("No customers or products found, nothing to do")
		return result, nil
	}

	randomQuantity := func(catalog.Product) int { return s.between(1, 3) }
	var invoices []*trade.Invoice
	for _, customer := range customers {
		for n := s.between(2, 3); n > 0; n-- {
			invoice, err := newInvoice(customer.ID, s.pick(products, s.between(3, 5)), randomQuantity)
			if err != nil {
				return result, err
			}
			invoices = append(invoices, invoice)
			result.Items += invoice.ItemCount()
			s.printf("Invoice for %s: %d items, total $%s", customer.FullName(), invoice.ItemCount(), invoice.Total.StringFixed(2))
		}
	}

	if err := s.repos.Invoices.SaveBatch(ctx, invoices); err != nil {
		return result, fmt.Errorf("save invoices: %w", err)
	}
	result.Created = len(invoices)
	s.printf("Created %d invoices", result.Created)
	return result, nil
}

// PopulateResult reports what populate-test-data did
type PopulateResult struct {
	AdminCreated    bool
	Customers       int
	Products        int
	InvoicesCreated int
}

// PopulateTestData ensures the demo accounts exist and adds backdated invoices
// drawn from the first products of the catalog.
func (s *Seeder) PopulateTestData(ctx context.Context) (PopulateResult, error) {
	var result PopulateResult

	_, created, err := s.ensureUser(ctx, adminAccount)
	if err != nil {
		return result, err
	}
	result.AdminCreated = created

	var customers []*partner.Customer
	for _, fixture := range testCustomers {
		user, _, err := s.ensureUser(ctx, fixture.Account)
		if err != nil {
			return result, err
		}
		contact := contactFixture{
			Phone:   fmt.Sprintf("555-%d", s.between(1000, 9999)),
			Address: fmt.Sprintf("%d Main St", s.between(100, 999)),
		}
		customer, _, err := s.ensureCustomer(ctx, user, contact)
		if err != nil {
			return result, err
		}
		customers = append(customers, customer)
	}
	result.Customers = len(customers)

	products, err := s.allProducts(ctx, populateProductLimit)
	if err != nil {
		return result, fmt.Errorf("load products: %w", err)
	}
	result.Products = len(products)
	if len(products) == 0 {
		s.printf("No products found in database")
		s.logger.Warn("populate-test-data found no products")
		return result, nil
	}

	randomQuantity := func(catalog.Product) int { return s.between(1, 5) }
	var invoices []*trade.Invoice
	for _, customer := range customers {
		for n := s.between(2, 3); n > 0; n-- {
			invoice, err := newInvoice(customer.ID, s.pick(products, s.between(3, 6)), randomQuantity)
			if err != nil {
				return result, err
			}
			invoice.Backdate(s.now().AddDate(0, 0, -s.between(1, 60)).Truncate(time.Second))
			invoices = append(invoices, invoice)
		}
	}
	if err := s.repos.Invoices.SaveBatch(ctx, invoices); err != nil {
		return result, fmt.Errorf("save invoices: %w", err)
	}
	result.InvoicesCreated = len(invoices)

	s.printSummary(result)
	return result, nil
}

func (s *Seeder) printSummary(result PopulateResult) {
	rule := strings.Repeat("=", 60)
	s.printf("%s", rule)
	s.printf("Summary:")
	s.printf("  Admin users: 1 (%s/%s)", adminAccount.Username, adminAccount.Password)
	s.printf("  Customer users: %d", result.Customers)
	s.printf("  Products: %d", result.Products)
	s.printf("  Invoices: %d", result.InvoicesCreated)
	s.printf("Test credentials:")
	for _, fixture := range testCustomers {
		s.printf("  %s / %s", fixture.Account.Username, fixture.Account.Password)
	}
	s.printf("%s", rule)
}
