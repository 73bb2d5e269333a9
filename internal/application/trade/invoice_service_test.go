package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/partner"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type invoiceFixture struct {
	repo      *MockInvoiceRepository
	products  *MockProductFinder
	customers *MockCustomerFinder
	events    *recordingPublisher
	service   *InvoiceService
}

func newInvoiceFixture() *invoiceFixture {
	f := &invoiceFixture{
		repo:      new(MockInvoiceRepository),
		products:  new(MockProductFinder),
		customers: new(MockCustomerFinder),
		events:    &recordingPublisher{},
	}
	f.service = NewInvoiceService(f.repo, f.products, f.customers, nil)
	f.service.SetEventPublisher(f.events)
	return f
}

func newCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("John", "Doe")
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func newProduct(t *testing.T, name, price string) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, decimal.RequireFromString(price))
	require.NoError(t, err)
	p.ClearDomainEvents()
	return *p
}

func TestInvoiceService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots prices and computes total", func(t *testing.T) {
		f := newInvoiceFixture()
		customer := newCustomer(t)
		apple := newProduct(t, "Apple", "0.50")
		bread := newProduct(t, "Bread", "2.25")

		f.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		f.products.On("FindByIDs", ctx, []uuid.UUID{apple.ID, bread.ID}).Return([]catalog.Product{apple, bread}, nil)
		f.repo.On("Save", ctx, mock.AnythingOfType("*trade.Invoice")).Return(nil)

		resp, err := f.service.Create(ctx, CreateInvoiceRequest{
			CustomerID: customer.ID,
			Items: []InvoiceItemInput{
				{ProductID: apple.ID, Quantity: 4},
				{ProductID: bread.ID, Quantity: 1},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "John", resp.CustomerName)
		assert.True(t, resp.Total.Equal(decimal.RequireFromString("4.25")))
		require.Len(t, resp.Items, 2)
		assert.True(t, resp.Items[0].Price.Equal(decimal.RequireFromString("0.50")))
		assert.Equal(t, "Apple", resp.Items[0].Product.Name)

		require.Len(t, f.events.events, 1)
		created := f.events.events[0].(*trade.InvoiceCreatedEvent)
		assert.True(t, created.Total.Equal(decimal.RequireFromString("4.25")))
		assert.Equal(t, 2, created.ItemCount)
	})

	t.Run("cancelled status is applied after items", func(t *testing.T) {
		f := newInvoiceFixture()
		customer := newCustomer(t)
		apple := newProduct(t, "Apple", "1")
		f.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		f.products.On("FindByIDs", ctx, []uuid.UUID{apple.ID}).Return([]catalog.Product{apple}, nil)
		f.repo.On("Save", ctx, mock.AnythingOfType("*trade.Invoice")).Return(nil)

		resp, err := f.service.Create(ctx, CreateInvoiceRequest{
			CustomerID: customer.ID,
			Status:     "cancelled",
			Items:      []InvoiceItemInput{{ProductID: apple.ID, Quantity: 2}},
		})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		assert.Len(t, resp.Items, 1)
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newInvoiceFixture()
		id := uuid.New()
		f.customers.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.Create(ctx, CreateInvoiceRequest{CustomerID: id})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CUSTOMER", domainErr.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newInvoiceFixture()
		customer := newCustomer(t)
		missing := uuid.New()
		f.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		f.products.On("FindByIDs", ctx, []uuid.UUID{missing}).Return([]catalog.Product{}, nil)

		_, err := f.service.Create(ctx, CreateInvoiceRequest{
			CustomerID: customer.ID,
			Items:      []InvoiceItemInput{{ProductID: missing, Quantity: 1}},
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PRODUCT", domainErr.Code)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("duplicate product lines", func(t *testing.T) {
		f := newInvoiceFixture()
		customer := newCustomer(t)
		apple := newProduct(t, "Apple", "1")
		f.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		f.products.On("FindByIDs", ctx, []uuid.UUID{apple.ID}).Return([]catalog.Product{apple}, nil)

		_, err := f.service.Create(ctx, CreateInvoiceRequest{
			CustomerID: customer.ID,
			Items: []InvoiceItemInput{
				{ProductID: apple.ID, Quantity: 1},
				{ProductID: apple.ID, Quantity: 2},
			},
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "DUPLICATE_PRODUCT", domainErr.Code)
	})

	t.Run("invalid status", func(t *testing.T) {
		f := newInvoiceFixture()
		_, err := f.service.Create(ctx, CreateInvoiceRequest{CustomerID: uuid.New(), Status: "paid"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATUS", domainErr.Code)
	})
}

func TestInvoiceService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("existing lines keep their price snapshot", func(t *testing.T) {
		f := newInvoiceFixture()
		customer := newCustomer(t)
		apple := newProduct(t, "Apple", "1.00")
		milk := newProduct(t, "Milk", "0.90")
		cheese := newProduct(t, "Cheese", "5.00")

		invoice, err := trade.NewInvoice(customer.ID, trade.InvoiceStatusPending)
		require.NoError(t, err)
		_, err = invoice.AddItem(apple.ID, apple.Name, 1, apple.Price)
		require.NoError(t, err)
		_, err = invoice.AddItem(milk.ID, milk.Name, 1, milk.Price)
		require.NoError(t, err)
		invoice.ClearDomainEvents()

		// the catalog price moved after the invoice was created
		apple.Price = decimal.RequireFromString("3.00")

		f.repo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		f.products.On("FindByIDs", ctx, []uuid.UUID{apple.ID, cheese.ID, milk.ID}).
			Return([]catalog.Product{apple, cheese, milk}, nil)
		f.repo.On("Save", ctx, invoice).Return(nil)
		f.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)

		status := "completed"
		items := []InvoiceItemInput{
			{ProductID: apple.ID, Quantity: 2},
			{ProductID: cheese.ID, Quantity: 1},
		}
		resp, err := f.service.Update(ctx, invoice.ID, UpdateInvoiceRequest{Status: &status, Items: &items})
		require.NoError(t, err)

		assert.Equal(t, "completed", resp.Status)
		require.Len(t, resp.Items, 2)
		line := invoice.GetItemByProduct(apple.ID)
		require.NotNil(t, line)
		assert.True(t, line.Price.Equal(decimal.RequireFromString("1.00")))
		assert.Nil(t, invoice.GetItemByProduct(milk.ID))
		// 2 x 1.00 + 1 x 5.00
		assert.True(t, resp.Total.Equal(decimal.RequireFromString("7.00")))
		assert.Equal(t, []string{trade.EventTypeInvoiceStatusChanged}, f.events.types())
	})

	t.Run("cancelled invoice is terminal", func(t *testing.T) {
		f := newInvoiceFixture()
		invoice, err := trade.NewInvoice(uuid.New(), trade.InvoiceStatusCancelled)
		require.NoError(t, err)
		f.repo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		status := "completed"
		_, err = f.service.Update(ctx, invoice.ID, UpdateInvoiceRequest{Status: &status})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})
}

func TestInvoiceService_List(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	customer := newCustomer(t)
	apple := newProduct(t, "Apple", "1")
	invoice, err := trade.NewInvoice(customer.ID, "")
	require.NoError(t, err)
	_, err = invoice.AddItem(apple.ID, apple.Name, 3, apple.Price)
	require.NoError(t, err)

	expected := shared.Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  map[string]any{"customer_id": customer.ID, "status": "completed"},
	}
	f.repo.On("FindAll", ctx, expected).Return([]trade.Invoice{*invoice}, nil)
	f.repo.On("Count", ctx, expected).Return(int64(1), nil)
	f.customers.On("FindByIDs", ctx, []uuid.UUID{customer.ID}).Return([]partner.Customer{*customer}, nil)
	f.products.On("FindByIDs", ctx, []uuid.UUID{apple.ID}).Return([]catalog.Product{apple}, nil)

	items, total, err := f.service.List(ctx, InvoiceListFilter{CustomerID: &customer.ID, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "John", items[0].CustomerName)
	assert.Equal(t, apple.ID, items[0].Items[0].Product.ID)
}

func TestInvoiceService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	invoice, err := trade.NewInvoice(uuid.New(), "")
	require.NoError(t, err)
	invoice.ClearDomainEvents()

	f.repo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
	f.repo.On("Delete", ctx, invoice.ID).Return(nil)

	require.NoError(t, f.service.Delete(ctx, invoice.ID))
	assert.Equal(t, []string{trade.EventTypeInvoiceDeleted}, f.events.types())
}

func TestInvoiceService_RenderPDF(t *testing.T) {
	ctx := context.Background()

	t.Run("printing disabled", func(t *testing.T) {
		f := newInvoiceFixture()
		_, err := f.service.RenderPDF(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrPrintingDisabled)
	})

	t.Run("renders hydrated invoice", func(t *testing.T) {
		f := newInvoiceFixture()
		printer := new(MockInvoicePrinter)
		f.service.SetPrinter(printer)

		customer := newCustomer(t)
		invoice, err := trade.NewInvoice(customer.ID, "")
		require.NoError(t, err)

		f.repo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		f.customers.On("FindByIDs", ctx, []uuid.UUID{customer.ID}).Return([]partner.Customer{*customer}, nil)
		f.products.On("FindByIDs", ctx, []uuid.UUID(nil)).Return([]catalog.Product{}, nil)
		printer.On("RenderInvoicePDF", ctx, mock.MatchedBy(func(r *InvoiceResponse) bool {
			return r.ID == invoice.ID && r.CustomerName == "John"
		})).Return([]byte("%PDF-1.4"), nil)

		pdf, err := f.service.RenderPDF(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4"), pdf)
	})

	t.Run("render failure is wrapped", func(t *testing.T) {
		f := newInvoiceFixture()
		printer := new(MockInvoicePrinter)
		f.service.SetPrinter(printer)

		customer := newCustomer(t)
		invoice, err := trade.NewInvoice(customer.ID, "")
		require.NoError(t, err)
		boom := errors.New("chrome crashed")

		f.repo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		f.customers.On("FindByIDs", ctx, mock.Anything).Return([]partner.Customer{*customer}, nil)
		f.products.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{}, nil)
		printer.On("RenderInvoicePDF", ctx, mock.Anything).Return(nil, boom)

		_, err = f.service.RenderPDF(ctx, invoice.ID)
		assert.ErrorIs(t, err, boom)
	})
}
