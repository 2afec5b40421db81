package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/techfix/techfix/internal/invoicing"
)

type failureCount int

func (f *failureCount) RemoteSaveFailed() { *f++ }

func TestOpenStoresRemoteFallsBackToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var failures failureCount

	cfg := &Config{
		RedisAddr:         mr.Addr(),
		InvoiceStore:      StoreRemote,
		InvoiceAPIURL:     "http://127.0.0.1:1",
		InvoiceAPITimeout: time.Second,
		InvoicePDFTTL:     time.Hour,
	}
	stores, err := OpenStores(context.Background(), cfg, logger, &failures)
	require.NoError(t, err)
	t.Cleanup(stores.Close)

	_, err = stores.Invoices.Save(context.Background(), invoicing.Invoice{ID: "INV1", ClientID: "C1"})
	require.NoError(t, err)
	require.Equal(t, failureCount(1), failures)

	got, err := stores.Invoices.FindByID(context.Background(), "INV1")
	require.NoError(t, err)
	require.Equal(t, "C1", got.ClientID)
}

func TestOpenStoresRejectsUnknownStrategy(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := OpenStores(context.Background(), &Config{RedisAddr: mr.Addr(), InvoiceStore: "ftp"}, logger, nil)
	require.Error(t, err)
}

func TestAsynqRedisMatchesConfig(t *testing.T) {
	cfg := &Config{RedisAddr: "redis:6379", RedisPassword: "pw", RedisDB: 2}
	opt := cfg.AsynqRedis()
	require.Equal(t, "redis:6379", opt.Addr)
	require.Equal(t, "pw", opt.Password)
	require.Equal(t, 2, opt.DB)
}
