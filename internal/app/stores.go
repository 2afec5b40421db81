package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/techfix/techfix/internal/invoicing"
	"github.com/techfix/techfix/internal/invoicing/localcache"
	"github.com/techfix/techfix/internal/invoicing/pgstore"
	"github.com/techfix/techfix/internal/invoicing/remote"
	"github.com/techfix/techfix/internal/platform/cache"
	"github.com/techfix/techfix/internal/platform/db"
)

// Stores holds the invoice store selected by INVOICE_STORE plus the Redis document cache.
type Stores struct {
	Invoices invoicing.Store
	PDFs     *localcache.Store
	Redis    *redis.Client
	pool     *pgxpool.Pool
}

// OpenStores connects to Redis (and PostgreSQL in postgres mode) and builds the store strategy:
//
//	remote   REST API first, Redis lists on failure
//	local    Redis lists only
//	postgres PostgreSQL as the system of record
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger, observer invoicing.SaveObserver) (*Stores, error) {
	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return nil, err
	}
	s := &Stores{Redis: client, PDFs: localcache.New(client, cfg.InvoicePDFTTL, logger)}

	switch cfg.InvoiceStore {
	case StoreRemote:
		api := remote.NewClient(remote.Config{
			BaseURL: cfg.InvoiceAPIURL,
			Token:   cfg.InvoiceAPIToken,
			Timeout: cfg.InvoiceAPITimeout,
		})
		s.Invoices = invoicing.NewFallbackStore(api, s.PDFs, logger, observer)
	case StoreLocal:
		s.Invoices = invoicing.NewFallbackStore(nil, s.PDFs, logger, observer)
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pool = pool
		store := pgstore.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Invoices = store
	default:
		s.Close()
		return nil, fmt.Errorf("unknown INVOICE_STORE %q", cfg.InvoiceStore)
	}

	logger.Info("invoice store ready", slog.String("strategy", cfg.InvoiceStore))
	return s, nil
}

// AsynqRedis returns the queue connection options matching the Redis store.
func (c *Config) AsynqRedis() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Close releases the connections opened by OpenStores.
func (s *Stores) Close() {
	if s == nil {
		return
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}
