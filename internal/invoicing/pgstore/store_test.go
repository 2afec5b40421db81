package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/techfix/techfix/internal/invoicing"
	"github.com/techfix/techfix/internal/platform/db"
)

// newTestStore connects to TECHFIX_TEST_PG_DSN and starts from empty tables.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TECHFIX_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TECHFIX_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := New(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `TRUNCATE invoices CASCADE`)
	require.NoError(t, err)
	return store
}

func sampleInvoice(id, clientID string) invoicing.Invoice {
	issued := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return invoicing.Invoice{
		ID:         id,
		Date:       issued,
		ReportID:   "R1",
		ClientID:   clientID,
		ClientName: "Ahmed",
		OrderCode:  "LP12345",
		Items: []invoicing.LineItem{
			{Description: "T480 (SN: A1)", Amount: decimal.RequireFromString("400.50"), Quantity: 1, Type: invoicing.TypeLaptop, SerialNumber: "A1", ReportID: "R1-1-1"},
			{Description: "Bag", Amount: decimal.NewFromInt(50), Quantity: 2, TotalAmount: decimal.NewNullDecimal(decimal.NewFromInt(100)), Type: invoicing.TypeItem},
		},
		Laptops:         []invoicing.LaptopEntry{invoicing.NewLaptopEntry("T480", "A1", nil, decimal.RequireFromString("400.50"), 1)},
		AdditionalItems: []invoicing.AdditionalItem{invoicing.NewAdditionalItem("Bag", decimal.NewFromInt(50), 2)},
		Subtotal:        decimal.RequireFromString("500.50"),
		Discount:        decimal.Zero,
		TaxRate:         decimal.NewFromInt(14),
		Tax:             decimal.RequireFromString("70.07"),
		Total:           decimal.RequireFromString("570.57"),
	}
}

func TestSaveAndFindRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inv := sampleInvoice("INV000001", "C1")
	_, err := store.Save(ctx, inv)
	require.NoError(t, err)

	got, err := store.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.ClientName, got.ClientName)
	require.True(t, got.Total.Equal(inv.Total))
	require.Len(t, got.Items, 2)
	require.Equal(t, "T480 (SN: A1)", got.Items[0].Description)
	require.False(t, got.Items[0].TotalAmount.Valid)
	require.True(t, got.Items[1].TotalAmount.Decimal.Equal(decimal.NewFromInt(100)))
	require.Len(t, got.Laptops, 1)
	require.Nil(t, got.PaymentDate)
}

func TestSaveDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, sampleInvoice("INV000002", "C1"))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleInvoice("INV000002", "C1"))
	require.ErrorIs(t, err, invoicing.ErrDuplicate)
}

func TestFindByClientAndPayment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, inv := range []invoicing.Invoice{
		sampleInvoice("INV000003", "C1"),
		sampleInvoice("INV000004", "C2"),
		sampleInvoice("INV000005", "C1"),
	} {
		_, err := store.Save(ctx, inv)
		require.NoError(t, err)
	}

	forC1, err := store.FindByClient(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, forC1, 2)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	updated, err := store.UpdatePaymentStatus(ctx, "INV000004", true, "card", at)
	require.NoError(t, err)
	require.True(t, updated.Paid)
	require.Equal(t, "card", updated.PaymentMethod)
	require.NotNil(t, updated.PaymentDate)
	require.True(t, updated.PaymentDate.Equal(at))

	_, err = store.UpdatePaymentStatus(ctx, "missing", true, "card", at)
	require.ErrorIs(t, err, invoicing.ErrNotFound)
}
