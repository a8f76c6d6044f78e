package payments

import (
	"bytes"
	"context"
	"fmt"

	"tradedesk/lifecycle"
	"tradedesk/models"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// Invoice renders a PDF for an approved or completed payment. It is derived on
// every request and never stored.
func (s *Service) Invoice(ctx context.Context, company *models.Company, id string) ([]byte, *models.Payment, error) {
	p, err := s.store.Get(ctx, company.ID, id)
	if err != nil {
		return nil, nil, err
	}
	if !lifecycle.NormalizePayment(p.Status).IsAcceptedEquivalent() {
		return nil, nil, ErrNotInvoiceable
	}
	pdf, err := RenderInvoice(company, *p)
	if err != nil {
		return nil, nil, err
	}
	return pdf, p, nil
}

// RenderInvoice lays out the payment's line items with a QR code carrying the
// payment reference.
func RenderInvoice(company *models.Company, p models.Payment) ([]byte, error) {
	qrPayload := fmt.Sprintf("%s|%s|%s|%s", company.Slug, p.Reference, decimal.NewFromFloat(p.Amount).StringFixed(2), p.Currency)
	qrPNG, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+p.Reference, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, company.Name)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, "Invoice for payment "+p.Reference)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+p.CreatedAt.Format("2 Jan 2006"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status: "+lifecycle.NormalizePayment(p.Status).Label())
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Billed to")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{p.Payer.Name, p.Payer.Email, p.Payer.Phone} {
		if line != "" {
			pdf.Cell(0, 6, line)
			pdf.Ln(6)
		}
	}
	pdf.Ln(4)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 15, 35, 35, false, imageOpts, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	widths := []float64{90, 25, 35, 40}
	for i, h := range []string{"Item", "Qty", "Unit price", "Line total"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	total := decimal.Zero
	for _, it := range p.Metadata.CartItems {
		unit := decimal.NewFromFloat(it.UnitPrice)
		line := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
		pdf.CellFormat(widths[0], 7, it.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, unit.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, line.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if len(p.Metadata.CartItems) == 0 {
		total = decimal.NewFromFloat(p.Amount)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total ("+p.Currency+")", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, total.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 9)
	method := p.Method.Label
	if method == "" {
		method = p.Method.Type
	}
	pdf.Cell(0, 5, "Paid via "+method)
	if company.SupportEmail != "" {
		pdf.Ln(5)
		pdf.Cell(0, 5, "Questions: "+company.SupportEmail)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
