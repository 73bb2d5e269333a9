// Package printing renders invoices to PDF.
//
// An html/template document is filled from the invoice response and handed to
// a PDFRenderer. ChromedpRenderer drives a headless Chrome through the DevTools
// protocol; the number of concurrent tabs is bounded.
//
// Example usage:
//
//	renderer := NewChromedpRenderer(&ChromedpConfig{MaxConcurrent: 2})
//	defer renderer.Close()
//
//	printer, err := NewInvoicePrinter(renderer, cfg.Printing, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pdf, err := printer.RenderInvoicePDF(ctx, &invoice)
package printing
