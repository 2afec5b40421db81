package invoicing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestExpandLaptopSingleUnit(t *testing.T) {
	entry := NewLaptopEntry("ThinkPad T480", "SN1", nil, dec("4500"), 1)

	lines := ExpandLaptop("R42", 0, entry)

	require.Len(t, lines, 1)
	require.Equal(t, "ThinkPad T480 (SN: SN1)", lines[0].Description)
	require.True(t, lines[0].Total().Equal(dec("4500")))
	require.True(t, lines[0].Amount.Equal(dec("4500")))
	require.Equal(t, TypeLaptop, lines[0].Type)
	require.Empty(t, lines[0].ReportID)
}

func TestExpandLaptopSingleUnitWithoutSerial(t *testing.T) {
	lines := ExpandLaptop("R42", 0, NewLaptopEntry("Dell 7490", "", nil, dec("3000"), 1))
	require.Len(t, lines, 1)
	require.Equal(t, "Dell 7490", lines[0].Description)
}

func TestExpandLaptopLotSkipsBlankSerials(t *testing.T) {
	entry := NewLaptopEntry("HP 840 G5", "SN1", []string{"SN2", ""}, dec("5000"), 3)

	lines := ExpandLaptop("R7", 1, entry)

	want := []LineItem{
		{
			Description:  "HP 840 G5 (SN: SN1)",
			Amount:       dec("5000"),
			Quantity:     1,
			TotalAmount:  decimal.NewNullDecimal(dec("5000")),
			Type:         TypeLaptop,
			SerialNumber: "SN1",
			ReportID:     "R7-2-1",
		},
		{
			Description:  "HP 840 G5 (SN: SN2)",
			Amount:       dec("5000"),
			Quantity:     1,
			TotalAmount:  decimal.NewNullDecimal(dec("5000")),
			Type:         TypeLaptop,
			SerialNumber: "SN2",
			ReportID:     "R7-2-2",
		},
	}
	if diff := cmp.Diff(want, lines, decimalComparer); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestExpandLaptopLotKeepsPositionsAfterBlank(t *testing.T) {
	entry := NewLaptopEntry("X1 Carbon", "", []string{"A", "B"}, dec("100"), 3)

	lines := ExpandLaptop("R1", 0, entry)

	require.Len(t, lines, 2)
	require.Equal(t, "R1-1-2", lines[0].ReportID)
	require.Equal(t, "R1-1-3", lines[1].ReportID)
}

func TestNewLaptopEntryEnforcesSerialSlots(t *testing.T) {
	short := NewLaptopEntry("A", "S", []string{"S2"}, dec("10"), 4)
	require.Equal(t, []string{"S2", "", ""}, short.AdditionalSerials)
	require.True(t, short.TotalPrice.Equal(dec("40")))

	long := NewLaptopEntry("A", "S", []string{"S2", "S3", "S4"}, dec("10"), 2)
	require.Equal(t, []string{"S2"}, long.AdditionalSerials)

	single := NewLaptopEntry("A", "S", []string{"S2"}, dec("10"), 1)
	require.Empty(t, single.AdditionalSerials)
}

func TestLaptopEntryUnmarshalUsesConstructor(t *testing.T) {
	var form FormData
	payload := `{"laptops":[{"name":"A","serial":"S1","additionalSerials":["S2"],"price":"10","quantity":3}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &form))
	require.Len(t, form.Laptops, 1)
	require.Equal(t, []string{"S2", ""}, form.Laptops[0].AdditionalSerials)
	require.True(t, form.Laptops[0].TotalPrice.Equal(dec("30")))
}

func TestNewLaptopEntryCapsSerialSlots(t *testing.T) {
	entry := NewLaptopEntry("A", "S", nil, dec("10"), math.MaxInt)
	require.Len(t, entry.AdditionalSerials, MaxQuantity-1)
}

func TestLaptopEntryUnmarshalRejectsOversizedQuantity(t *testing.T) {
	var form FormData
	payload := `{"laptops":[{"name":"A","price":"10","quantity":9000000000000000000}]}`
	err := json.Unmarshal([]byte(payload), &form)
	require.ErrorIs(t, err, ErrQuantityOutOfRange)

	payload = `{"laptops":[{"name":"A","price":"10","quantity":1000}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &form))
	require.Len(t, form.Laptops[0].AdditionalSerials, MaxQuantity-1)
}

func TestNormalizeFormOrdersLaptopsThenItems(t *testing.T) {
	form := FormData{
		Laptops: []LaptopEntry{
			NewLaptopEntry("A", "S1", nil, dec("100"), 1),
			NewLaptopEntry("Zero", "", nil, decimal.Zero, 1),
		},
		AdditionalItems: []AdditionalItem{
			{Name: "Charger", Price: dec("50"), Quantity: 2, TotalPrice: dec("99")},
		},
	}

	lines := NormalizeForm("R1", form)

	require.Len(t, lines, 3)
	require.Equal(t, TypeLaptop, lines[0].Type)
	require.Equal(t, "Zero", lines[1].Description)
	require.Equal(t, TypeItem, lines[2].Type)
	// the form's pre-computed total is kept as-is
	require.True(t, lines[2].Total().Equal(dec("99")))
}

func TestNormalizeLegacy(t *testing.T) {
	lines := NormalizeLegacy(Report{ID: "R1", DeviceModel: "MacBook Air", SerialNumber: "C02"})
	require.Len(t, lines, 1)
	require.Equal(t, "MacBook Air (SN: C02)", lines[0].Description)
	require.True(t, lines[0].Total().IsZero())
}
