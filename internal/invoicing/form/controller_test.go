package form

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/techfix/techfix/internal/invoicing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummaryRecomputesFromRows(t *testing.T) {
	c := New()
	i := c.AddLaptopRow("T480", "SN1", dec("400"))
	require.NoError(t, c.SetLaptopQuantity(i, 2))
	c.AddItemRow("Bag", dec("100"), 2)
	c.Discount = dec("100")
	c.TaxRate = dec("14")

	s := c.Summary()
	require.True(t, s.PartsTotal.Equal(dec("1000")), s.PartsTotal.String())
	require.True(t, s.Subtotal.Equal(dec("1000")))
	require.True(t, s.Discount.Equal(dec("100")))
	require.True(t, s.Tax.Equal(dec("126")))
	require.True(t, s.Total.Equal(dec("1026")))

	c.Discount = decimal.Zero
	require.True(t, c.Summary().Total.Equal(dec("1140")))
}

func TestSetLaptopQuantityRegeneratesSerials(t *testing.T) {
	c := New()
	i := c.AddLaptopRow("T480", "SN1", dec("400"))
	require.False(t, c.Laptops[i].SerialsVisible)

	require.NoError(t, c.SetLaptopQuantity(i, 3))
	require.True(t, c.Laptops[i].SerialsVisible)
	require.Equal(t, []string{"", ""}, c.Laptops[i].AdditionalSerials)

	require.NoError(t, c.SetAdditionalSerial(i, 0, "SN2"))
	require.NoError(t, c.SetAdditionalSerial(i, 1, "SN3"))

	require.NoError(t, c.SetLaptopQuantity(i, 2))
	require.Equal(t, []string{""}, c.Laptops[i].AdditionalSerials)

	require.NoError(t, c.SetLaptopQuantity(i, 3))
	require.Equal(t, []string{"", ""}, c.Laptops[i].AdditionalSerials)
}

func TestSetLaptopQuantityToOneHidesWithoutClearing(t *testing.T) {
	c := New()
	i := c.AddLaptopRow("T480", "SN1", dec("400"))
	require.NoError(t, c.SetLaptopQuantity(i, 2))
	require.NoError(t, c.SetAdditionalSerial(i, 0, "SN2"))

	require.NoError(t, c.SetLaptopQuantity(i, 1))
	require.False(t, c.Laptops[i].SerialsVisible)
	require.Equal(t, []string{"SN2"}, c.Laptops[i].AdditionalSerials)

	collected := c.Collect()
	require.Len(t, collected.Laptops, 1)
	require.Empty(t, collected.Laptops[0].AdditionalSerials)
}

func TestRowIndexErrors(t *testing.T) {
	c := New()
	require.ErrorIs(t, c.RemoveLaptopRow(0), ErrNoSuchRow)
	require.ErrorIs(t, c.RemoveItemRow(0), ErrNoSuchRow)
	require.ErrorIs(t, c.SetLaptopQuantity(0, 2), ErrNoSuchRow)

	i := c.AddLaptopRow("T480", "SN1", dec("400"))
	require.ErrorIs(t, c.SetAdditionalSerial(i, 0, "SN2"), ErrNoSuchRow)

	c.AddItemRow("Bag", dec("10"), 1)
	c.AddItemRow("Mouse", dec("5"), 1)
	require.NoError(t, c.RemoveItemRow(0))
	require.Len(t, c.Items, 1)
	require.Equal(t, "Mouse", c.Items[0].Name)

	require.NoError(t, c.RemoveLaptopRow(i))
	require.Empty(t, c.Laptops)
}

func TestCollectDropsEmptyNameAndNonPositivePrice(t *testing.T) {
	c := New()
	c.AddLaptopRow("T480", "SN1", dec("400"))
	c.AddLaptopRow("", "SN9", dec("300"))
	c.AddLaptopRow("X1", "SN8", decimal.Zero)
	c.AddItemRow("Bag", dec("50"), 2)
	c.AddItemRow("  ", dec("10"), 1)
	c.AddItemRow("Sticker", dec("-1"), 1)
	c.TaxRate = dec("14")
	c.PaymentStatus = invoicing.PaymentPaid
	c.PaymentMethod = "cash"

	got := c.Collect()
	require.Len(t, got.Laptops, 1)
	require.Equal(t, "T480", got.Laptops[0].Name)
	require.Len(t, got.AdditionalItems, 1)
	require.Equal(t, "Bag", got.AdditionalItems[0].Name)
	require.True(t, got.Subtotal.Equal(dec("500")))
	require.True(t, got.Tax.Equal(dec("70")))
	require.True(t, got.Total.Equal(dec("570")))
	require.Equal(t, invoicing.PaymentPaid, got.PaymentStatus)
	require.Equal(t, "cash", got.PaymentMethod)
}

func TestCollectKeepsLotInvariant(t *testing.T) {
	c := New()
	i := c.AddLaptopRow("T490", " SN1 ", dec("250"))
	require.NoError(t, c.SetLaptopQuantity(i, 3))
	require.NoError(t, c.SetAdditionalSerial(i, 0, " SN2 "))

	got := c.Collect()
	require.Len(t, got.Laptops, 1)
	lot := got.Laptops[0]
	require.Equal(t, "SN1", lot.Serial)
	require.Equal(t, []string{"SN2", ""}, lot.AdditionalSerials)
	require.True(t, lot.TotalPrice.Equal(dec("750")))

	lines := invoicing.NormalizeForm("R1", got.FormData)
	require.Len(t, lines, 2)
}

func TestFromValues(t *testing.T) {
	values := url.Values{
		"laptops[1][name]":       {"X1"},
		"laptops[1][serial]":     {"B1"},
		"laptops[1][price]":      {"900"},
		"laptops[1][quantity]":   {"1"},
		"laptops[0][name]":       {"T480"},
		"laptops[0][serial]":     {"A1"},
		"laptops[0][price]":      {"400"},
		"laptops[0][quantity]":   {"3"},
		"laptops[0][serials][0]": {"A2"},
		"laptops[0][serials][1]": {"A3"},
		"items[0][name]":         {"Bag"},
		"items[0][price]":        {"abc"},
		"items[0][quantity]":     {"2"},
		"discount":               {"50"},
		"taxRate":                {"10"},
		"paymentStatus":          {"partial"},
		"paymentMethod":          {"card"},
		"unrelated":              {"x"},
	}

	c, err := FromValues(values)
	require.NoError(t, err)
	require.Len(t, c.Laptops, 2)
	require.Equal(t, "T480", c.Laptops[0].Name)
	require.Equal(t, 3, c.Laptops[0].Quantity)
	require.Equal(t, []string{"A2", "A3"}, c.Laptops[0].AdditionalSerials)
	require.Equal(t, "X1", c.Laptops[1].Name)
	require.Len(t, c.Items, 1)
	require.True(t, c.Items[0].Price.IsZero())
	require.True(t, c.Discount.Equal(dec("50")))
	require.True(t, c.TaxRate.Equal(dec("10")))
	require.Equal(t, invoicing.PaymentPartial, c.PaymentStatus)
	require.Equal(t, "card", c.PaymentMethod)

	got := c.Collect()
	require.Len(t, got.AdditionalItems, 0)
	require.True(t, got.Subtotal.Equal(dec("2100")))
}

func TestFromValuesDefaults(t *testing.T) {
	c, err := FromValues(url.Values{})
	require.NoError(t, err)
	require.Empty(t, c.Laptops)
	require.True(t, c.TaxRate.Equal(invoicing.DefaultTaxRate))
	require.Equal(t, invoicing.PaymentUnpaid, c.PaymentStatus)
}

func TestSummaryUsesQuantityAsEntered(t *testing.T) {
	c := New()
	i := c.AddLaptopRow("T480", "SN1", dec("400"))
	require.NoError(t, c.SetLaptopQuantity(i, 0))
	c.AddItemRow("Bag", dec("100"), 0)
	c.AddItemRow("Mouse", dec("25"), 2)
	c.TaxRate = decimal.Zero

	s := c.Summary()
	require.True(t, s.PartsTotal.Equal(dec("50")), s.PartsTotal.String())
	require.True(t, s.Total.Equal(dec("50")))
}

func TestSetLaptopQuantityRejectsOversized(t *testing.T) {
	c := New()
	i := c.AddLaptopRow("T480", "SN1", dec("400"))
	require.NoError(t, c.SetLaptopQuantity(i, 2))

	err := c.SetLaptopQuantity(i, invoicing.MaxQuantity+1)
	require.ErrorIs(t, err, invoicing.ErrQuantityOutOfRange)
	require.Equal(t, 2, c.Laptops[i].Quantity)
	require.Len(t, c.Laptops[i].AdditionalSerials, 1)

	require.NoError(t, c.SetLaptopQuantity(i, invoicing.MaxQuantity))
	require.Len(t, c.Laptops[i].AdditionalSerials, invoicing.MaxQuantity-1)
}

func TestFromValuesRejectsOversizedQuantity(t *testing.T) {
	cases := map[string]url.Values{
		"laptop":   {"laptops[0][name]": {"T480"}, "laptops[0][quantity]": {"9000000000000000000"}},
		"overflow": {"laptops[0][name]": {"T480"}, "laptops[0][quantity]": {"99999999999999999999999"}},
		"item":     {"items[0][name]": {"Bag"}, "items[0][quantity]": {"1001"}},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromValues(values)
			require.ErrorIs(t, err, invoicing.ErrQuantityOutOfRange)
		})
	}
}

func TestFromValuesMissingQuantityKeepsOneUnit(t *testing.T) {
	c, err := FromValues(url.Values{"laptops[0][name]": {"T480"}, "laptops[0][price]": {"400"}})
	require.NoError(t, err)
	require.Equal(t, 1, c.Laptops[0].Quantity)
	require.True(t, c.Summary().PartsTotal.Equal(dec("400")))
}
