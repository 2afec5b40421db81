package invoicing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func describeLaptop(name, serial string) string {
	if serial == "" {
		return name
	}
	return fmt.Sprintf("%s (SN: %s)", name, serial)
}

// ExpandLaptop turns one laptop lot into line items. A lot of one unit yields a
// single row. Larger lots yield one row per non-empty serial at the unit price, tagged
// with "<reportID>-<index+1>-<position>" where position counts the primary serial as 1.
// Blank serials are skipped, so a lot can produce fewer rows than its quantity.
func ExpandLaptop(reportID string, index int, entry LaptopEntry) []LineItem {
	if entry.Quantity <= 1 {
		return []LineItem{{
			Description:  describeLaptop(entry.Name, entry.Serial),
			Amount:       entry.Price,
			Quantity:     1,
			TotalAmount:  decimal.NewNullDecimal(entry.Price),
			Type:         TypeLaptop,
			SerialNumber: entry.Serial,
		}}
	}

	serials := make([]string, 0, len(entry.AdditionalSerials)+1)
	serials = append(serials, entry.Serial)
	serials = append(serials, entry.AdditionalSerials...)

	lines := make([]LineItem, 0, len(serials))
	for pos, serial := range serials {
		serial = strings.TrimSpace(serial)
		if serial == "" {
			continue
		}
		lines = append(lines, LineItem{
			Description:  describeLaptop(entry.Name, serial),
			Amount:       entry.Price,
			Quantity:     1,
			TotalAmount:  decimal.NewNullDecimal(entry.Price),
			Type:         TypeLaptop,
			SerialNumber: serial,
			ReportID:     reportID + "-" + strconv.Itoa(index+1) + "-" + strconv.Itoa(pos+1),
		})
	}
	return lines
}

// ItemLine converts an additional item 1:1. TotalAmount is taken from the item as-is.
func ItemLine(item AdditionalItem) LineItem {
	return LineItem{
		Description: item.Name,
		Amount:      item.Price,
		Quantity:    item.Quantity,
		TotalAmount: decimal.NewNullDecimal(item.TotalPrice),
		Type:        TypeItem,
	}
}

// NormalizeForm flattens a form payload into ordered line items: laptops first, then
// additional items. Rows are not re-validated here; zero-priced rows pass through.
func NormalizeForm(reportID string, form FormData) []LineItem {
	items := make([]LineItem, 0, len(form.Laptops)+len(form.AdditionalItems))
	for i, laptop := range form.Laptops {
		items = append(items, ExpandLaptop(reportID, i, laptop)...)
	}
	for _, item := range form.AdditionalItems {
		items = append(items, ItemLine(item))
	}
	return items
}

// NormalizeLegacy synthesises the single device line used when no form payload exists.
func NormalizeLegacy(report Report) []LineItem {
	return []LineItem{{
		Description:  describeLaptop(report.DeviceModel, report.SerialNumber),
		Amount:       decimal.Zero,
		Quantity:     1,
		TotalAmount:  decimal.NewNullDecimal(decimal.Zero),
		Type:         TypeLaptop,
		SerialNumber: report.SerialNumber,
	}}
}
