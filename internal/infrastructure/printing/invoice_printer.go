package printing

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	tradeapp "github.com/grocery/backend/internal/application/trade"
	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/invoice.html
var templateFS embed.FS

const (
	invoiceTemplate = "templates/invoice.html"
	dateLayout      = "January 2, 2006"
)

// InvoicePrinter renders invoices as PDF documents
type InvoicePrinter struct {
	renderer PDFRenderer
	tmpl     *template.Template
	company  string
	currency string
	lang     language.Tag
	logger   *zap.Logger
}

// Ensure InvoicePrinter implements the trade printer port
var _ tradeapp.InvoicePrinter = (*InvoicePrinter)(nil)

// NewInvoicePrinter creates a printer from configuration.
// Unknown locales fall back to American English.
func NewInvoicePrinter(renderer PDFRenderer, cfg config.PrintingConfig, logger *zap.Logger) (*InvoicePrinter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(templateFS, invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}

	lang, err := language.Parse(cfg.Locale)
	if err != nil {
		lang = language.AmericanEnglish
	}

	return &InvoicePrinter{
		renderer: renderer,
		tmpl:     tmpl,
		company:  cfg.CompanyName,
		currency: cfg.Currency,
		lang:     lang,
		logger:   logger,
	}, nil
}

// RenderInvoicePDF renders the invoice as an A4 PDF
func (p *InvoicePrinter) RenderInvoicePDF(ctx context.Context, invoice *tradeapp.InvoiceResponse) ([]byte, error) {
	body, err := p.RenderInvoiceHTML(invoice)
	if err != nil {
		return nil, err
	}

	result, err := p.renderer.Render(ctx, &RenderRequest{
		HTML:       body,
		PaperSize:  PaperSizeA4,
		Margins:    DefaultMargins(),
		Title:      "Invoice " + invoiceNumber(invoice),
		FooterHTML: `<div style="font-size:8px;width:100%;text-align:center;"><span class="pageNumber"></span> / <span class="totalPages"></span></div>`,
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("invoice rendered",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int("pages", result.PageCount),
	)
	return result.PDFData, nil
}

// RenderInvoiceHTML renders the invoice document without converting it
func (p *InvoicePrinter) RenderInvoiceHTML(invoice *tradeapp.InvoiceResponse) (string, error) {
	if invoice == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "invoice is nil", nil)
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, p.view(invoice)); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute invoice template", err)
	}
	return buf.String(), nil
}

type invoiceView struct {
	Lang     string
	Company  string
	Number   string
	Date     string
	Status   string
	Customer string
	Lines    []lineView
	Quantity int
	Total    string
}

type lineView struct {
	Name     string
	Brand    string
	Category string
	Score    string
	Quantity int
	Price    string
	Amount   string
}

// view builds the template data. Casers are stateful, so each call gets its own.
func (p *InvoicePrinter) view(invoice *tradeapp.InvoiceResponse) invoiceView {
	title := cases.Title(p.lang)
	money := message.NewPrinter(p.lang)
	formatMoney := func(d decimal.Decimal) string {
		return p.formatMoney(money, d)
	}

	v := invoiceView{
		Lang:     p.lang.String(),
		Company:  p.company,
		Number:   invoiceNumber(invoice),
		Date:     invoice.CreatedAt.Format(dateLayout),
		Status:   title.String(invoice.Status),
		Customer: invoice.CustomerName,
		Total:    formatMoney(invoice.Total),
		Lines:    make([]lineView, 0, len(invoice.Items)),
	}
	for _, item := range invoice.Items {
		line := lineView{
			Quantity: item.Quantity,
			Price:    formatMoney(item.Price),
			Amount:   formatMoney(item.Amount),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Brand = item.Product.Brand
			line.Category = title.String(item.Product.Category)
			line.Score = item.Product.NutritionScore
		}
		if line.Name == "" {
			line.Name = item.ProductID.String()
		}
		v.Quantity += item.Quantity
		v.Lines = append(v.Lines, line)
	}
	return v
}

// formatMoney prints an amount with the locale's grouping and two decimals
func (p *InvoicePrinter) formatMoney(money *message.Printer, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	return sign + p.currency + money.Sprint(number.Decimal(f, number.Scale(2)))
}

// invoiceNumber is the short form of the invoice ID shown to customers
func invoiceNumber(invoice *tradeapp.InvoiceResponse) string {
	id := invoice.ID.String()
	return "INV-" + strings.ToUpper(id[:8])
}
