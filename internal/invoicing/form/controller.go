package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/techfix/techfix/internal/invoicing"
)

// ErrNoSuchRow is returned when a row or serial index is out of range.
var ErrNoSuchRow = errors.New("form: no such row")

// LaptopRow is one editable laptop lot.
type LaptopRow struct {
	Name              string
	Serial            string
	Price             decimal.Decimal
	Quantity          int
	AdditionalSerials []string
	// SerialsVisible mirrors the collapsed additional-serials panel.
	SerialsVisible bool
}

// ItemRow is one editable accessory or service row.
type ItemRow struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Summary holds the live figures shown under the form.
type Summary struct {
	PartsTotal decimal.Decimal `json:"partsTotal"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
}

// Collected is the normalized form payload plus the totals of the rows that survived filtering.
type Collected struct {
	invoicing.FormData
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Controller holds invoice form state.
type Controller struct {
	Laptops       []LaptopRow
	Items         []ItemRow
	Discount      decimal.Decimal
	TaxRate       decimal.Decimal
	PaymentStatus invoicing.PaymentStatus
	PaymentMethod string
}

// New returns an empty form taxed at invoicing.DefaultTaxRate.
func New() *Controller {
	return &Controller{
		TaxRate:       invoicing.DefaultTaxRate,
		PaymentStatus: invoicing.PaymentUnpaid,
	}
}

// AddLaptopRow appends a single-unit laptop row with the serial panel collapsed.
func (c *Controller) AddLaptopRow(name, serial string, price decimal.Decimal) int {
	c.Laptops = append(c.Laptops, LaptopRow{Name: name, Serial: serial, Price: price, Quantity: 1})
	return len(c.Laptops) - 1
}

// AddItemRow appends an item row.
func (c *Controller) AddItemRow(name string, price decimal.Decimal, quantity int) int {
	c.Items = append(c.Items, ItemRow{Name: name, Price: price, Quantity: quantity})
	return len(c.Items) - 1
}

// RemoveLaptopRow deletes the laptop row at i.
func (c *Controller) RemoveLaptopRow(i int) error {
	if i < 0 || i >= len(c.Laptops) {
		return ErrNoSuchRow
	}
	c.Laptops = append(c.Laptops[:i], c.Laptops[i+1:]...)
	return nil
}

// RemoveItemRow deletes the item row at i.
func (c *Controller) RemoveItemRow(i int) error {
	if i < 0 || i >= len(c.Items) {
		return ErrNoSuchRow
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

// SetLaptopQuantity changes a row's quantity. Above one unit the serial panel is shown with
// exactly quantity-1 fresh empty fields, discarding anything typed before. At one unit or
// less the panel is hidden and its fields are left as they were. Quantities above
// invoicing.MaxQuantity leave the row untouched.
func (c *Controller) SetLaptopQuantity(i, quantity int) error {
	if i < 0 || i >= len(c.Laptops) {
		return ErrNoSuchRow
	}
	if quantity > invoicing.MaxQuantity {
		return fmt.Errorf("laptop row %d quantity %d: %w", i, quantity, invoicing.ErrQuantityOutOfRange)
	}
	row := &c.Laptops[i]
	row.Quantity = quantity
	if quantity > 1 {
		row.AdditionalSerials = make([]string, quantity-1)
		row.SerialsVisible = true
		return nil
	}
	row.SerialsVisible = false
	return nil
}

// SetAdditionalSerial fills serial field j of laptop row i.
func (c *Controller) SetAdditionalSerial(i, j int, serial string) error {
	if i < 0 || i >= len(c.Laptops) {
		return ErrNoSuchRow
	}
	row := &c.Laptops[i]
	if j < 0 || j >= len(row.AdditionalSerials) {
		return ErrNoSuchRow
	}
	row.AdditionalSerials[j] = serial
	return nil
}

// Summary recomputes the displayed figures over every row currently on the form as
// Σ price × quantity, using each quantity exactly as entered.
func (c *Controller) Summary() Summary {
	parts := decimal.Zero
	for _, row := range c.Laptops {
		parts = parts.Add(row.Price.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}
	for _, row := range c.Items {
		parts = parts.Add(row.Price.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}
	totals := invoicing.TotalsFor(parts, c.Discount, c.TaxRate)
	return Summary{
		PartsTotal: parts,
		Subtotal:   totals.Subtotal,
		Discount:   totals.Discount,
		Tax:        totals.Tax,
		Total:      totals.Total,
	}
}

// Collect exports the form as invoice input. Rows with an empty name or a non-positive
// price are dropped.
func (c *Controller) Collect() Collected {
	data := invoicing.FormData{
		Laptops:         []invoicing.LaptopEntry{},
		AdditionalItems: []invoicing.AdditionalItem{},
		Discount:        c.Discount,
		TaxRate:         c.TaxRate,
		PaymentStatus:   c.PaymentStatus,
		PaymentMethod:   c.PaymentMethod,
	}

	parts := decimal.Zero
	for _, row := range c.Laptops {
		name := strings.TrimSpace(row.Name)
		if name == "" || !row.Price.IsPositive() {
			continue
		}
		qty := int(units(row.Quantity).IntPart())
		serials := make([]string, len(row.AdditionalSerials))
		for k, s := range row.AdditionalSerials {
			serials[k] = strings.TrimSpace(s)
		}
		entry := invoicing.NewLaptopEntry(name, strings.TrimSpace(row.Serial), serials, row.Price, qty)
		data.Laptops = append(data.Laptops, entry)
		parts = parts.Add(entry.TotalPrice)
	}
	for _, row := range c.Items {
		name := strings.TrimSpace(row.Name)
		if name == "" || !row.Price.IsPositive() {
			continue
		}
		item := invoicing.NewAdditionalItem(name, row.Price, int(units(row.Quantity).IntPart()))
		data.AdditionalItems = append(data.AdditionalItems, item)
		parts = parts.Add(item.TotalPrice)
	}

	totals := invoicing.TotalsFor(parts, c.Discount, c.TaxRate)
	return Collected{
		FormData: data,
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
	}
}

// units treats a missing or non-positive quantity as one unit when exporting rows.
func units(quantity int) decimal.Decimal {
	if quantity < 1 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(quantity))
}
