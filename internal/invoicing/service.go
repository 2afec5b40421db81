package invoicing

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultClientName  = "Walk-in Customer"
	defaultDeviceModel = "Laptop"
)

// Enqueuer schedules follow-up work for a saved invoice.
type Enqueuer interface {
	EnqueueInvoiceRender(ctx context.Context, invoiceID string) error
}

// Metrics records invoice generation events.
type Metrics interface {
	InvoiceGenerated(source string)
}

// Options tunes a Service. Zero values fall back to wall clock and math/rand.
type Options struct {
	Now      func() time.Time
	Rand     *rand.Rand
	Enqueuer Enqueuer
	Metrics  Metrics
	Logger   *slog.Logger
}

// Service assembles invoices and hands them to the configured Store.
type Service struct {
	store    Store
	now      func() time.Time
	rndMu    sync.Mutex
	rnd      *rand.Rand
	enqueuer Enqueuer
	metrics  Metrics
	logger   *slog.Logger
}

// NewService builds a Service.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:    store,
		now:      opts.Now,
		rnd:      opts.Rand,
		enqueuer: opts.Enqueuer,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// InvoiceID derives "INV" followed by the last six digits of the epoch millis.
func InvoiceID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "INV" + ms
}

func (s *Service) orderCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return fmt.Sprintf("LP%05d", 10000+s.rnd.Intn(90000))
}

func (s *Service) withDefaults(report Report) Report {
	if strings.TrimSpace(report.ClientName) == "" {
		report.ClientName = defaultClientName
	}
	if strings.TrimSpace(report.DeviceModel) == "" {
		report.DeviceModel = defaultDeviceModel
	}
	if strings.TrimSpace(report.OrderCode) == "" {
		report.OrderCode = s.orderCode()
	}
	return report
}

// Assemble builds the invoice for a report without persisting it. A nil form selects the
// legacy single-device invoice taxed at DefaultTaxRate with no discount.
func (s *Service) Assemble(report Report, form *FormData) (Invoice, error) {
	if strings.TrimSpace(report.ID) == "" {
		return Invoice{}, ErrReportIDRequired
	}
	report = s.withDefaults(report)
	now := s.now()

	inv := Invoice{
		ID:              InvoiceID(now),
		Date:            now,
		ReportID:        report.ID,
		ClientID:        report.ClientID,
		ClientName:      report.ClientName,
		ClientPhone:     report.ClientPhone,
		OrderCode:       report.OrderCode,
		Laptops:         []LaptopEntry{},
		AdditionalItems: []AdditionalItem{},
	}

	var totals Totals
	if form == nil {
		inv.Items = NormalizeLegacy(report)
		totals = ComputeTotals(inv.Items, decimal.Zero, DefaultTaxRate)
	} else {
		inv.Items = NormalizeForm(report.ID, *form)
		if form.Laptops != nil {
			inv.Laptops = form.Laptops
		}
		if form.AdditionalItems != nil {
			inv.AdditionalItems = form.AdditionalItems
		}
		totals = ComputeTotals(inv.Items, form.Discount, form.TaxRate)
		inv.Paid = form.PaymentStatus == PaymentPaid
		inv.PartiallyPaid = form.PaymentStatus == PaymentPartial
		inv.PaymentMethod = form.PaymentMethod
	}

	inv.Subtotal = totals.Subtotal
	inv.Discount = totals.Discount
	inv.TaxRate = totals.TaxRate
	inv.Tax = totals.Tax
	inv.Total = totals.Total
	if inv.Paid || inv.PartiallyPaid {
		ts := now
		inv.PaymentDate = &ts
	}
	return inv, nil
}

// Generate assembles the invoice and saves it before returning the stored copy.
func (s *Service) Generate(ctx context.Context, report Report, form *FormData) (Invoice, error) {
	inv, err := s.Assemble(report, form)
	if err != nil {
		return Invoice{}, err
	}
	saved, err := s.store.Save(ctx, inv)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: save %s: %w", inv.ID, err)
	}

	source := "form"
	if form == nil {
		source = "legacy"
	}
	if s.metrics != nil {
		s.metrics.InvoiceGenerated(source)
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueInvoiceRender(ctx, saved.ID); err != nil {
			s.logger.Warn("enqueue invoice render", slog.String("invoice_id", saved.ID), slog.Any("error", err))
		}
	}
	return saved, nil
}

// Get returns an invoice by id.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	return s.store.FindByID(ctx, id)
}

// List returns every stored invoice.
func (s *Service) List(ctx context.Context) ([]Invoice, error) {
	return s.store.List(ctx)
}

// ListByClient returns the invoices stored for a client.
func (s *Service) ListByClient(ctx context.Context, clientID string) ([]Invoice, error) {
	return s.store.FindByClient(ctx, clientID)
}

// UpdatePaymentStatus marks an invoice paid or unpaid with the given method.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, paid bool, method string) (Invoice, error) {
	return s.store.UpdatePaymentStatus(ctx, id, paid, method, s.now())
}
