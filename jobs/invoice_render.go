package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/techfix/techfix/internal/invoicing"
	jobmetrics "github.com/techfix/techfix/internal/jobs"
)

// InvoiceSource loads invoices for rendering.
type InvoiceSource interface {
	FindByID(ctx context.Context, id string) (invoicing.Invoice, error)
}

// PDFRenderer turns an invoice into a document.
type PDFRenderer interface {
	Render(inv invoicing.Invoice) ([]byte, error)
}

// PDFCache stores rendered documents.
type PDFCache interface {
	PutPDF(ctx context.Context, id string, data []byte) error
}

// InvoiceRenderJob renders invoice PDFs ahead of download.
type InvoiceRenderJob struct {
	Invoices InvoiceSource
	Renderer PDFRenderer
	Cache    PDFCache
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewInvoiceRenderJob wires dependencies for the render handler.
func NewInvoiceRenderJob(invoices InvoiceSource, renderer PDFRenderer, cache PDFCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceRenderJob {
	return &InvoiceRenderJob{Invoices: invoices, Renderer: renderer, Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInvoiceRenderPDF tasks. Unknown invoices are not retried.
func (j *InvoiceRenderJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Invoices == nil || j.Renderer == nil || j.Cache == nil {
		return errors.New("invoice render: handler not configured")
	}
	var payload InvoiceRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.InvoiceID == "" {
		return fmt.Errorf("invoice render: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskInvoiceRenderPDF)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("invoice_id", payload.InvoiceID))

	inv, err := j.Invoices.FindByID(ctx, payload.InvoiceID)
	if errors.Is(err, invoicing.ErrNotFound) {
		logger.Warn("render invoice pdf: invoice not found")
		return fmt.Errorf("invoice render %s: %w", payload.InvoiceID, asynq.SkipRetry)
	}
	if err != nil {
		logger.Error("render invoice pdf", slog.Any("error", err))
		return err
	}

	doc, err := j.Renderer.Render(inv)
	if err != nil {
		logger.Error("render invoice pdf", slog.Any("error", err))
		return err
	}
	if err := j.Cache.PutPDF(ctx, inv.ID, doc); err != nil {
		logger.Error("cache invoice pdf", slog.Any("error", err))
		return err
	}

	j.Metrics.ObserveDocument(TaskInvoiceRenderPDF, len(doc))
	logger.Info("rendered invoice pdf", slog.Int("bytes", len(doc)))
	return nil
}

func (j *InvoiceRenderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
