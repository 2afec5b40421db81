package invoicing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineType enumerates billable row kinds.
type LineType string

const (
	TypeLaptop  LineType = "laptop"
	TypeItem    LineType = "item"
	TypeService LineType = "service"
)

// PaymentStatus enumerates the payment states accepted by the form and the remote API.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentUnpaid  PaymentStatus = "unpaid"
)

// MaxQuantity bounds the units on a single laptop or item row. The validate tags on
// LaptopEntry and AdditionalItem carry the same number.
const MaxQuantity = 1000

// DefaultTaxRate applies when no form payload is supplied.
var DefaultTaxRate = decimal.NewFromInt(14)

// LineItem is one billable row on an invoice.
type LineItem struct {
	Description  string              `json:"description"`
	Amount       decimal.Decimal     `json:"amount"`
	Quantity     int                 `json:"quantity"`
	TotalAmount  decimal.NullDecimal `json:"totalAmount"`
	Type         LineType            `json:"type"`
	SerialNumber string              `json:"serialNumber,omitempty"`
	ReportID     string              `json:"reportId,omitempty"`
}

// Total returns TotalAmount when set, otherwise Amount × Quantity.
func (l LineItem) Total() decimal.Decimal {
	if l.TotalAmount.Valid {
		return l.TotalAmount.Decimal
	}
	return l.Amount.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LaptopEntry is a laptop lot: N units of one model sold at a single unit price.
// Build it with NewLaptopEntry so AdditionalSerials always holds Quantity-1 slots.
type LaptopEntry struct {
	Name              string          `json:"name"`
	Serial            string          `json:"serial"`
	AdditionalSerials []string        `json:"additionalSerials"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity" validate:"max=1000"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
}

// NewLaptopEntry returns an entry whose AdditionalSerials has exactly max(quantity-1, 0)
// slots. Missing slots are blank, extra serials are dropped. Slots never exceed
// MaxQuantity-1; callers reject larger quantities before building an entry.
func NewLaptopEntry(name, serial string, additional []string, price decimal.Decimal, quantity int) LaptopEntry {
	slots := min(quantity, MaxQuantity) - 1
	if slots < 0 {
		slots = 0
	}
	serials := make([]string, slots)
	copy(serials, additional)
	return LaptopEntry{
		Name:              name,
		Serial:            serial,
		AdditionalSerials: serials,
		Price:             price,
		Quantity:          quantity,
		TotalPrice:        price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// UnmarshalJSON decodes an entry through NewLaptopEntry.
func (e *LaptopEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name              string          `json:"name"`
		Serial            string          `json:"serial"`
		AdditionalSerials []string        `json:"additionalSerials"`
		Price             decimal.Decimal `json:"price"`
		Quantity          *int            `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	qty := 1
	if raw.Quantity != nil {
		qty = *raw.Quantity
	}
	if qty > MaxQuantity {
		return fmt.Errorf("laptop %q quantity %d: %w", raw.Name, qty, ErrQuantityOutOfRange)
	}
	*e = NewLaptopEntry(raw.Name, raw.Serial, raw.AdditionalSerials, raw.Price, qty)
	return nil
}

// AdditionalItem is an accessory or service row priced by the form.
type AdditionalItem struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity" validate:"max=1000"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// NewAdditionalItem computes TotalPrice from price and quantity.
func NewAdditionalItem(name string, price decimal.Decimal, quantity int) AdditionalItem {
	return AdditionalItem{
		Name:       name,
		Price:      price,
		Quantity:   quantity,
		TotalPrice: price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Report is the repair or inspection record an invoice is generated against.
type Report struct {
	ID           string `json:"id" validate:"required"`
	ClientID     string `json:"clientId"`
	ClientName   string `json:"clientName"`
	ClientPhone  string `json:"clientPhone"`
	DeviceModel  string `json:"deviceModel"`
	SerialNumber string `json:"serialNumber"`
	OrderCode    string `json:"orderCode"`
}

// FormData is the structured payload produced by the invoice form.
type FormData struct {
	Laptops         []LaptopEntry    `json:"laptops" validate:"dive"`
	AdditionalItems []AdditionalItem `json:"additionalItems" validate:"dive"`
	Discount        decimal.Decimal  `json:"discount"`
	TaxRate         decimal.Decimal  `json:"taxRate"`
	PaymentStatus   PaymentStatus    `json:"paymentStatus" validate:"omitempty,oneof=paid partial unpaid"`
	PaymentMethod   string           `json:"paymentMethod"`
}

// Invoice is a fully computed invoice.
type Invoice struct {
	ID              string           `json:"id"`
	Date            time.Time        `json:"date"`
	ReportID        string           `json:"reportId"`
	ClientID        string           `json:"clientId"`
	ClientName      string           `json:"clientName"`
	ClientPhone     string           `json:"clientPhone"`
	OrderCode       string           `json:"orderCode"`
	Items           []LineItem       `json:"items"`
	Laptops         []LaptopEntry    `json:"laptops"`
	AdditionalItems []AdditionalItem `json:"additionalItems"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Discount        decimal.Decimal  `json:"discount"`
	TaxRate         decimal.Decimal  `json:"taxRate"`
	Tax             decimal.Decimal  `json:"tax"`
	Total           decimal.Decimal  `json:"total"`
	Paid            bool             `json:"paid"`
	PartiallyPaid   bool             `json:"partiallyPaid"`
	PaymentMethod   string           `json:"paymentMethod"`
	PaymentDate     *time.Time       `json:"paymentDate"`
}

// PaymentStatus collapses Paid/PartiallyPaid into the API enum.
func (inv Invoice) PaymentStatus() PaymentStatus {
	switch {
	case inv.Paid:
		return PaymentPaid
	case inv.PartiallyPaid:
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// ApplyPayment sets the payment fields in place. PaymentDate is stamped when paid.
func (inv *Invoice) ApplyPayment(paid bool, method string, now time.Time) {
	inv.Paid = paid
	inv.PaymentMethod = method
	if paid {
		ts := now
		inv.PaymentDate = &ts
		return
	}
	inv.PaymentDate = nil
}
