package invoicing

import (
	"context"
	"log/slog"
	"time"
)

// Store persists invoices and answers read-side queries.
type Store interface {
	Save(ctx context.Context, inv Invoice) (Invoice, error)
	FindByID(ctx context.Context, id string) (Invoice, error)
	FindByClient(ctx context.Context, clientID string) ([]Invoice, error)
	List(ctx context.Context) ([]Invoice, error)
	UpdatePaymentStatus(ctx context.Context, id string, paid bool, method string, at time.Time) (Invoice, error)
}

// Creator creates invoices in an authoritative remote system.
type Creator interface {
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
}

// SaveObserver is notified when the primary creator fails and the local store takes over.
type SaveObserver interface {
	RemoteSaveFailed()
}

// FallbackStore writes through a primary Creator and falls back to a local Store when
// the primary is absent or fails. Reads and payment updates are served locally.
type FallbackStore struct {
	primary  Creator
	local    Store
	logger   *slog.Logger
	observer SaveObserver
}

// NewFallbackStore builds the store. primary may be nil, in which case every save is local.
func NewFallbackStore(primary Creator, local Store, logger *slog.Logger, observer SaveObserver) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{primary: primary, local: local, logger: logger, observer: observer}
}

// Save tries the primary creator first. A confirmed invoice is copied into the local store
// so reads can find it; a failed copy is only logged. A primary error is logged and never
// returned; the in-memory invoice is saved locally instead.
func (s *FallbackStore) Save(ctx context.Context, inv Invoice) (Invoice, error) {
	if s.primary != nil {
		saved, err := s.primary.CreateInvoice(ctx, inv)
		if err == nil {
			if _, err := s.local.Save(ctx, saved); err != nil {
				s.logger.Warn("cache confirmed invoice",
					slog.String("invoice_id", saved.ID),
					slog.Any("error", err))
			}
			return saved, nil
		}
		s.logger.Warn("remote invoice save failed, using local cache",
			slog.String("invoice_id", inv.ID),
			slog.Any("error", err))
		if s.observer != nil {
			s.observer.RemoteSaveFailed()
		}
	}
	return s.local.Save(ctx, inv)
}

// FindByID reads from the local store.
func (s *FallbackStore) FindByID(ctx context.Context, id string) (Invoice, error) {
	return s.local.FindByID(ctx, id)
}

// FindByClient reads from the local store.
func (s *FallbackStore) FindByClient(ctx context.Context, clientID string) ([]Invoice, error) {
	return s.local.FindByClient(ctx, clientID)
}

// List reads from the local store.
func (s *FallbackStore) List(ctx context.Context) ([]Invoice, error) {
	return s.local.List(ctx)
}

// UpdatePaymentStatus updates the local copies.
func (s *FallbackStore) UpdatePaymentStatus(ctx context.Context, id string, paid bool, method string, at time.Time) (Invoice, error) {
	return s.local.UpdatePaymentStatus(ctx, id, paid, method, at)
}
