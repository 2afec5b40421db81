package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/techfix/techfix/internal/invoicing"
)

// PDF renders printable invoices.
type PDF struct {
	money   Money
	company string
}

// NewPDF constructs a renderer. company is printed in the page header.
func NewPDF(money Money, company string) *PDF {
	return &PDF{money: money, company: company}
}

var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"Description", 90, "L"},
	{"Type", 20, "C"},
	{"Qty", 15, "C"},
	{"Unit price", 30, "R"},
	{"Amount", 35, "R"},
}

// Render returns the invoice as a single A4 PDF document.
func (p *PDF) Render(inv invoicing.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+inv.ID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(p.company), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Invoice "+inv.ID, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	meta := [][2]string{
		{"Date", inv.Date.Format("2006-01-02")},
		{"Order", inv.OrderCode},
		{"Report", inv.ReportID},
		{"Client", inv.ClientName},
		{"Phone", inv.ClientPhone},
	}
	for _, kv := range meta {
		if kv[1] == "" {
			continue
		}
		pdf.CellFormat(30, 6, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range itemColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range inv.Items {
		cells := []string{
			tr(item.Description),
			string(item.Type),
			strconv.Itoa(item.Quantity),
			p.money.Format(item.Amount),
			p.money.Format(item.Total()),
		}
		for i, col := range itemColumns {
			pdf.CellFormat(col.width, 7, cells[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	totals := [][2]string{
		{"Subtotal", p.money.Format(inv.Subtotal)},
		{"Discount", p.money.Format(inv.Discount)},
		{fmt.Sprintf("Tax (%s%%)", inv.TaxRate.String()), p.money.Format(inv.Tax)},
		{"Total", p.money.Format(inv.Total)},
	}
	for i, kv := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Helvetica", "B", 11)
		}
		pdf.CellFormat(155, 7, kv[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, kv[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	status := "Payment: " + string(inv.PaymentStatus())
	if inv.PaymentMethod != "" {
		status += " (" + inv.PaymentMethod + ")"
	}
	if inv.PaymentDate != nil {
		status += " on " + inv.PaymentDate.Format("2006-01-02")
	}
	pdf.CellFormat(0, 6, tr(status), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: render pdf %s: %w", inv.ID, err)
	}
	return buf.Bytes(), nil
}
