// Package localcache keeps invoices in Redis as JSON-serialized lists: one global list and
// one list per client. It is the durable fallback when the remote API cannot take a save.
package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techfix/techfix/internal/invoicing"
)

const (
	globalKey       = "invoices"
	clientKeyPrefix = "invoices:client:"
	pdfKeyPrefix    = "invoices:pdf:"
	maxTxAttempts   = 5
)

// ErrContention is returned when a list keeps changing under concurrent writers.
var ErrContention = errors.New("localcache: too many concurrent writers")

// Store implements invoicing.Store on top of Redis.
type Store struct {
	client *redis.Client
	pdfTTL time.Duration
	logger *slog.Logger
}

// New constructs the store. A nil logger uses slog.Default.
func New(client *redis.Client, pdfTTL time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, pdfTTL: pdfTTL, logger: logger}
}

// ClientKey returns the list key for a client.
func ClientKey(clientID string) string {
	return clientKeyPrefix + clientID
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, g getter, key string) ([]invoicing.Invoice, error) {
	raw, err := g.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localcache: get %s: %w", key, err)
	}
	var list []invoicing.Invoice
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("localcache: decode %s: %w", key, err)
	}
	return list, nil
}

// mutate rewrites the list under key inside an optimistic transaction. fn reports
// whether the list changed; unchanged lists are not written back.
func (s *Store) mutate(ctx context.Context, key string, fn func([]invoicing.Invoice) ([]invoicing.Invoice, bool, error)) error {
	txf := func(tx *redis.Tx) error {
		list, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		next, changed, err := fn(list)
		if err != nil || !changed {
			return err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("localcache: encode %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

func appendInvoice(inv invoicing.Invoice) func([]invoicing.Invoice) ([]invoicing.Invoice, bool, error) {
	return func(list []invoicing.Invoice) ([]invoicing.Invoice, bool, error) {
		return append(list, inv), true, nil
	}
}

// Save appends the invoice to the global list and, when it has a client, to the
// client list. The global append decides the outcome: once it lands the invoice is
// saved, and a failed client-list append is logged so a retry cannot duplicate it.
func (s *Store) Save(ctx context.Context, inv invoicing.Invoice) (invoicing.Invoice, error) {
	if err := s.mutate(ctx, globalKey, appendInvoice(inv)); err != nil {
		return invoicing.Invoice{}, err
	}
	if inv.ClientID != "" {
		if err := s.mutate(ctx, ClientKey(inv.ClientID), appendInvoice(inv)); err != nil {
			s.logger.Error("append invoice to client list",
				slog.String("invoice_id", inv.ID),
				slog.String("client_id", inv.ClientID),
				slog.Any("error", err))
		}
	}
	return inv, nil
}

// List returns the global list.
func (s *Store) List(ctx context.Context) ([]invoicing.Invoice, error) {
	list, err := load(ctx, s.client, globalKey)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []invoicing.Invoice{}
	}
	return list, nil
}

// FindByClient returns entries of the client list whose stored clientId matches exactly.
func (s *Store) FindByClient(ctx context.Context, clientID string) ([]invoicing.Invoice, error) {
	list, err := load(ctx, s.client, ClientKey(clientID))
	if err != nil {
		return nil, err
	}
	out := make([]invoicing.Invoice, 0, len(list))
	for _, inv := range list {
		if inv.ClientID == clientID {
			out = append(out, inv)
		}
	}
	return out, nil
}

// FindByID scans the global list.
func (s *Store) FindByID(ctx context.Context, id string) (invoicing.Invoice, error) {
	list, err := load(ctx, s.client, globalKey)
	if err != nil {
		return invoicing.Invoice{}, err
	}
	for _, inv := range list {
		if inv.ID == id {
			return inv, nil
		}
	}
	return invoicing.Invoice{}, invoicing.ErrNotFound
}

// UpdatePaymentStatus rewrites the payment fields in the global list and then in the
// client list. A failure between the two writes leaves the copies out of step.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, paid bool, method string, at time.Time) (invoicing.Invoice, error) {
	var updated invoicing.Invoice
	err := s.mutate(ctx, globalKey, func(list []invoicing.Invoice) ([]invoicing.Invoice, bool, error) {
		for i := range list {
			if list[i].ID == id {
				list[i].ApplyPayment(paid, method, at)
				updated = list[i]
				return list, true, nil
			}
		}
		return nil, false, invoicing.ErrNotFound
	})
	if err != nil {
		return invoicing.Invoice{}, err
	}

	if updated.ClientID == "" {
		return updated, nil
	}
	err = s.mutate(ctx, ClientKey(updated.ClientID), func(list []invoicing.Invoice) ([]invoicing.Invoice, bool, error) {
		for i := range list {
			if list[i].ID == id {
				list[i].ApplyPayment(paid, method, at)
				return list, true, nil
			}
		}
		return list, false, nil
	})
	if err != nil {
		return invoicing.Invoice{}, err
	}
	return updated, nil
}

// PutPDF caches a rendered invoice document.
func (s *Store) PutPDF(ctx context.Context, id string, data []byte) error {
	return s.client.Set(ctx, pdfKeyPrefix+id, data, s.pdfTTL).Err()
}

// GetPDF returns a cached document; ok is false on a miss.
func (s *Store) GetPDF(ctx context.Context, id string) (data []byte, ok bool, err error) {
	data, err = s.client.Get(ctx, pdfKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
