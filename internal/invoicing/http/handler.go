package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/techfix/techfix/internal/invoicing"
	"github.com/techfix/techfix/internal/invoicing/export"
	"github.com/techfix/techfix/internal/invoicing/form"
	"github.com/techfix/techfix/internal/platform/httpx"
)

// PDFCache stores rendered invoice documents.
type PDFCache interface {
	GetPDF(ctx context.Context, id string) ([]byte, bool, error)
	PutPDF(ctx context.Context, id string, data []byte) error
}

// Renderer turns an invoice into a PDF.
type Renderer interface {
	Render(inv invoicing.Invoice) ([]byte, error)
}

// Metrics records PDF cache outcomes.
type Metrics interface {
	PDFServed(hit bool)
}

// Config groups Handler dependencies. Metrics is optional.
type Config struct {
	Logger   *slog.Logger
	Service  *invoicing.Service
	PDFs     PDFCache
	Renderer Renderer
	Money    export.Money
	Metrics  Metrics
}

// Handler serves the invoice API.
type Handler struct {
	logger    *slog.Logger
	service   *invoicing.Service
	pdfs      PDFCache
	renderer  Renderer
	money     export.Money
	metrics   Metrics
	validator *validator.Validate
	renders   singleflight.Group
}

// NewHandler builds a Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   cfg.Service,
		pdfs:      cfg.PDFs,
		renderer:  cfg.Renderer,
		money:     cfg.Money,
		metrics:   cfg.Metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers the invoice routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/form", h.createFromForm)
		r.Post("/preview", h.preview)
		r.Get("/export.xlsx", h.exportWorkbook)
		r.Get("/{id}", h.get)
		r.Post("/{id}/payment", h.updatePayment)
		r.Get("/{id}/pdf", h.pdf)
	})
	r.Get("/clients/{clientID}/invoices", h.listByClient)
}

type createInvoiceRequest struct {
	Report invoicing.Report    `json:"report"`
	Form   *invoicing.FormData `json:"form"`
}

type paymentRequest struct {
	Paid          *bool  `json:"paid" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"max=64"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.service.Generate(r.Context(), req.Report, req.Form)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// reportFromForm reads the report context submitted alongside the form rows.
func reportFromForm(r *http.Request) invoicing.Report {
	get := func(key string) string {
		return strings.TrimSpace(r.PostForm.Get(key))
	}
	return invoicing.Report{
		ID:           get("report_id"),
		ClientID:     get("client_id"),
		ClientName:   get("client_name"),
		ClientPhone:  get("client_phone"),
		DeviceModel:  get("device_model"),
		SerialNumber: get("serial_number"),
		OrderCode:    get("order_code"),
	}
}

func (h *Handler) createFromForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	report := reportFromForm(r)
	if err := h.validator.Struct(report); err != nil {
		h.fail(w, r, err)
		return
	}
	fc, err := form.FromValues(r.PostForm)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	collected := fc.Collect()
	if err := h.validator.Struct(collected.FormData); err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.service.Generate(r.Context(), report, &collected.FormData)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	fc, err := form.FromValues(r.PostForm)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fc.Summary())
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(invoices))
}

func (h *Handler) listByClient(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.ListByClient(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(invoices))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.service.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), *req.Paid, strings.TrimSpace(req.PaymentMethod))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, hit, err := h.pdfs.GetPDF(r.Context(), id)
	if err != nil {
		h.logger.Warn("read cached invoice pdf", slog.String("invoice_id", id), slog.Any("error", err))
	}
	if !hit {
		doc, err = h.renderOnce(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if h.metrics != nil {
		h.metrics.PDFServed(hit)
	}
	httpx.Attachment(w, "application/pdf", id+".pdf", doc)
}

// renderOnce coalesces concurrent renders of the same invoice.
func (h *Handler) renderOnce(ctx context.Context, id string) ([]byte, error) {
	ch := h.renders.DoChan(id, func() (interface{}, error) {
		// Shared by every waiter, so it must outlive the first caller.
		rctx := context.WithoutCancel(ctx)
		inv, err := h.service.Get(rctx, id)
		if err != nil {
			return nil, err
		}
		doc, err := h.renderer.Render(inv)
		if err != nil {
			return nil, err
		}
		if err := h.pdfs.PutPDF(rctx, id, doc); err != nil {
			h.logger.Warn("cache invoice pdf", slog.String("invoice_id", id), slog.Any("error", err))
		}
		return doc, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (h *Handler) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, h.money, invoices); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "invoices.xlsx", buf.Bytes())
}

// fail translates domain errors for httpx and logs anything that is not a client error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, invoicing.ErrNotFound):
		err = fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	case errors.Is(err, invoicing.ErrDuplicate):
		err = fmt.Errorf("%w: %w", httpx.ErrDuplicate, err)
	case errors.Is(err, invoicing.ErrReportIDRequired), errors.Is(err, invoicing.ErrQuantityOutOfRange):
		err = fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}

	var fieldErrs validator.ValidationErrors
	clientErr := errors.As(err, &fieldErrs) ||
		errors.Is(err, httpx.ErrNotFound) ||
		errors.Is(err, httpx.ErrDuplicate) ||
		errors.Is(err, httpx.ErrValidation)
	if !clientErr {
		h.logger.Error("invoice request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	httpx.RespondError(w, err)
}

func nonNil(invoices []invoicing.Invoice) []invoicing.Invoice {
	if invoices == nil {
		return []invoicing.Invoice{}
	}
	return invoices
}
