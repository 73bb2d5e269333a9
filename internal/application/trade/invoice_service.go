package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/partner"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/domain/trade"
	"github.com/grocery/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrPrintingDisabled is returned by RenderPDF when no printer is configured
var ErrPrintingDisabled = shared.NewDomainError("PRINTING_DISABLED", "Invoice printing is not configured")

// InvoiceService handles invoice business operations
type InvoiceService struct {
	invoiceRepo    trade.InvoiceRepository
	products       ProductFinder
	customers      CustomerFinder
	printer        InvoicePrinter
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo trade.InvoiceRepository,
	products ProductFinder,
	customers CustomerFinder,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		products:    products,
		customers:   customers,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetPrinter enables PDF rendering
func (s *InvoiceService) SetPrinter(printer InvoicePrinter) {
	s.printer = printer
}

// Create creates an invoice, snapshotting the current product prices
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	status, err := trade.ParseInvoiceStatus(req.Status)
	if err != nil {
		return nil, err
	}

	customer, err := s.findCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, productIDsOf(req.Items))
	if err != nil {
		return nil, err
	}

	// items cannot be added to a cancelled invoice, so cancel after filling it
	initial := status
	if status == trade.InvoiceStatusCancelled {
		initial = trade.InvoiceStatusPending
	}
	invoice, err := trade.NewInvoice(customer.ID, initial)
	if err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		product := products[item.ProductID]
		if _, err := invoice.AddItem(product.ID, product.Name, item.Quantity, product.Price); err != nil {
			return nil, err
		}
	}

	if status != initial {
		if err := invoice.ChangeStatus(status); err != nil {
			return nil, err
		}
	}
	invoice.FinalizeCreatedEvent()

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, invoice)

	response := ToInvoiceResponse(invoice, customer, products)
	return &response, nil
}

// GetByID retrieves an invoice with its items, customer name and product summaries
func (s *InvoiceService) GetByID(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	responses, err := s.hydrate(ctx, []trade.Invoice{*invoice})
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

// List retrieves invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}
	if filter.CustomerID != nil {
		domainFilter = domainFilter.With("customer_id", *filter.CustomerID)
	}
	if filter.Status != "" {
		status, err := trade.ParseInvoiceStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		domainFilter = domainFilter.With("status", string(status))
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.hydrate(ctx, invoices)
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// Update changes the status and/or replaces the lines of an invoice
func (s *InvoiceService) Update(ctx context.Context, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	var products map[uuid.UUID]*catalog.Product
	if req.Items != nil {
		products, err = s.replaceItems(ctx, invoice, *req.Items)
		if err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		status, err := trade.ParseInvoiceStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if err := invoice.ChangeStatus(status); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, invoice)

	if products == nil {
		responses, err := s.hydrate(ctx, []trade.Invoice{*invoice})
		if err != nil {
			return nil, err
		}
		return &responses[0], nil
	}

	customer, err := s.customers.FindByID(ctx, invoice.CustomerID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	response := ToInvoiceResponse(invoice, customer, products)
	return &response, nil
}

// replaceItems makes the invoice lines match items. Existing lines keep their
// price snapshot; only products new to the invoice are priced from the catalog.
func (s *InvoiceService) replaceItems(ctx context.Context, invoice *trade.Invoice, items []InvoiceItemInput) (map[uuid.UUID]*catalog.Product, error) {
	wanted := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if _, dup := wanted[item.ProductID]; dup {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists on invoice, update quantity instead")
		}
		wanted[item.ProductID] = item.Quantity
	}

	ids := make([]uuid.UUID, 0, len(items)+len(invoice.Items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	for _, existing := range invoice.Items {
		if _, ok := wanted[existing.ProductID]; !ok {
			ids = append(ids, existing.ProductID)
		}
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var stale []uuid.UUID
	for _, existing := range invoice.Items {
		qty, ok := wanted[existing.ProductID]
		if !ok {
			stale = append(stale, existing.ID)
			continue
		}
		if qty != existing.Quantity {
			if err := invoice.UpdateItemQuantity(existing.ID, qty); err != nil {
				return nil, err
			}
		}
	}
	for _, itemID := range stale {
		if err := invoice.RemoveItem(itemID); err != nil {
			return nil, err
		}
	}

	for _, item := range items {
		if invoice.GetItemByProduct(item.ProductID) != nil {
			continue
		}
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, productNotFound(item.ProductID)
		}
		if _, err := invoice.AddItem(product.ID, product.Name, item.Quantity, product.Price); err != nil {
			return nil, err
		}
	}

	return byID, nil
}

// Delete deletes an invoice and its items
func (s *InvoiceService) Delete(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}

	if err := s.invoiceRepo.Delete(ctx, invoiceID); err != nil {
		return err
	}

	invoice.AddDomainEvent(trade.NewInvoiceDeletedEvent(invoice))
	s.publishEvents(ctx, invoice)
	return nil
}

// RenderPDF renders the invoice as a PDF document
func (s *InvoiceService) RenderPDF(ctx context.Context, invoiceID uuid.UUID) ([]byte, error) {
	if s.printer == nil {
		return nil, ErrPrintingDisabled
	}

	ctx, span := telemetry.StartSpan(ctx, "invoice", "render_pdf", telemetry.SpanAttrInvoiceID, invoiceID)
	defer span.End()

	invoice, err := s.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrItemCount, len(invoice.Items))

	pdf, err := s.printer.RenderInvoicePDF(ctx, invoice)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to render invoice %s: %w", invoiceID, err)
	}
	return pdf, nil
}

// hydrate converts invoices to responses, batch loading customers and products
func (s *InvoiceService) hydrate(ctx context.Context, invoices []trade.Invoice) ([]InvoiceResponse, error) {
	if len(invoices) == 0 {
		return []InvoiceResponse{}, nil
	}

	customerIDs := make([]uuid.UUID, 0, len(invoices))
	var productIDs []uuid.UUID
	seenCustomer := make(map[uuid.UUID]bool)
	seenProduct := make(map[uuid.UUID]bool)
	for _, inv := range invoices {
		if !seenCustomer[inv.CustomerID] {
			seenCustomer[inv.CustomerID] = true
			customerIDs = append(customerIDs, inv.CustomerID)
		}
		for _, item := range inv.Items {
			if !seenProduct[item.ProductID] {
				seenProduct[item.ProductID] = true
				productIDs = append(productIDs, item.ProductID)
			}
		}
	}

	customers, err := s.customers.FindByIDs(ctx, customerIDs)
	if err != nil {
		return nil, err
	}
	customersByID := make(map[uuid.UUID]*partner.Customer, len(customers))
	for i := range customers {
		customersByID[customers[i].ID] = &customers[i]
	}

	products, err := s.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	productsByID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		productsByID[products[i].ID] = &products[i]
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i], customersByID[invoices[i].CustomerID], productsByID)
	}
	return responses, nil
}

func (s *InvoiceService) findCustomer(ctx context.Context, customerID uuid.UUID) (*partner.Customer, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_CUSTOMER", fmt.Sprintf("Customer %s not found", customerID))
		}
		return nil, err
	}
	return customer, nil
}

// loadProducts fetches every requested product, failing on the first missing one
func (s *InvoiceService) loadProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	result := make(map[uuid.UUID]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		result[products[i].ID] = &products[i]
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, productNotFound(id)
		}
	}
	return result, nil
}

func (s *InvoiceService) publishEvents(ctx context.Context, invoice *trade.Invoice) {
	events := invoice.GetDomainEvents()
	invoice.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish invoice events",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
}

func productIDsOf(items []InvoiceItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func productNotFound(id uuid.UUID) error {
	return shared.NewDomainError("INVALID_PRODUCT", fmt.Sprintf("Product %s not found", id))
}
