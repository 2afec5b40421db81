package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/techfix/techfix/internal/invoicing"
)

const (
	invoiceSheet = "Invoices"
	itemSheet    = "Items"
)

var (
	invoiceHeader = []interface{}{
		"Invoice", "Date", "Report", "Client ID", "Client", "Phone", "Order",
		"Subtotal", "Discount", "Tax rate", "Tax", "Total", "Status", "Method", "Paid on", "Currency",
	}
	itemHeader = []interface{}{
		"Invoice", "Description", "Type", "Serial", "Unit ref", "Qty", "Amount", "Line total",
	}
)

// WriteWorkbook writes every invoice to an XLSX workbook with one sheet of invoices and one
// sheet of their line items. Money cells hold numbers; the currency code sits in its own column.
func WriteWorkbook(w io.Writer, money Money, invoices []invoicing.Invoice) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return fmt.Errorf("export: new sheet: %w", err)
	}

	if err := setRow(f, invoiceSheet, 1, invoiceHeader); err != nil {
		return err
	}
	if err := setRow(f, itemSheet, 1, itemHeader); err != nil {
		return err
	}

	itemRow := 2
	for i, inv := range invoices {
		paidOn := ""
		if inv.PaymentDate != nil {
			paidOn = inv.PaymentDate.Format("2006-01-02")
		}
		row := []interface{}{
			inv.ID, inv.Date.Format("2006-01-02"), inv.ReportID, inv.ClientID, inv.ClientName,
			inv.ClientPhone, inv.OrderCode,
			inv.Subtotal.InexactFloat64(), inv.Discount.InexactFloat64(), inv.TaxRate.InexactFloat64(),
			inv.Tax.InexactFloat64(), inv.Total.InexactFloat64(),
			string(inv.PaymentStatus()), inv.PaymentMethod, paidOn, money.Code(),
		}
		if err := setRow(f, invoiceSheet, i+2, row); err != nil {
			return err
		}
		for _, item := range inv.Items {
			line := []interface{}{
				inv.ID, item.Description, string(item.Type), item.SerialNumber, item.ReportID,
				item.Quantity, item.Amount.InexactFloat64(), item.Total().InexactFloat64(),
			}
			if err := setRow(f, itemSheet, itemRow, line); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: %s row %d: %w", sheet, row, err)
	}
	return nil
}
