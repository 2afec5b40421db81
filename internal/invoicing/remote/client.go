// Package remote talks to the shop's REST API to create invoices.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/techfix/techfix/internal/invoicing"
)

var (
	// ErrRemoteRejected wraps non-2xx answers from the API.
	ErrRemoteRejected = errors.New("remote: invoice rejected")
	// ErrUnexpectedResponse is returned when a 2xx body does not look like an invoice.
	ErrUnexpectedResponse = errors.New("remote: unexpected response shape")
)

// Config describes how to reach the API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client creates invoices through the REST API.
type Client struct {
	http *resty.Client
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	return &Client{http: rc}
}

type itemPayload struct {
	Description  string      `json:"description"`
	Type         string      `json:"type"`
	Amount       json.Number `json:"amount"`
	Quantity     int         `json:"quantity"`
	TotalAmount  json.Number `json:"totalAmount"`
	SerialNumber string      `json:"serialNumber"`
}

type createPayload struct {
	ReportID      string        `json:"reportId"`
	ClientID      string        `json:"client_id"`
	Subtotal      json.Number   `json:"subtotal"`
	Discount      json.Number   `json:"discount"`
	TaxRate       json.Number   `json:"taxRate"`
	Tax           json.Number   `json:"tax"`
	Total         json.Number   `json:"total"`
	PaymentStatus string        `json:"paymentStatus"`
	PaymentMethod string        `json:"paymentMethod"`
	Items         []itemPayload `json:"items"`
}

type itemResponse struct {
	Description  string              `json:"description"`
	Type         string              `json:"type"`
	Amount       decimal.Decimal     `json:"amount"`
	Quantity     int                 `json:"quantity"`
	TotalAmount  decimal.NullDecimal `json:"totalAmount"`
	SerialNumber string              `json:"serialNumber"`
}

type invoiceResponse struct {
	ID            string           `json:"id"`
	CreatedAt     *time.Time       `json:"createdAt"`
	Subtotal      *decimal.Decimal `json:"subtotal"`
	Discount      *decimal.Decimal `json:"discount"`
	TaxRate       *decimal.Decimal `json:"taxRate"`
	Tax           *decimal.Decimal `json:"tax"`
	Total         *decimal.Decimal `json:"total"`
	PaymentStatus string           `json:"paymentStatus"`
	PaymentMethod *string          `json:"paymentMethod"`
	Items         []itemResponse   `json:"items"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toPayload(inv invoicing.Invoice) createPayload {
	items := make([]itemPayload, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, itemPayload{
			Description:  it.Description,
			Type:         string(it.Type),
			Amount:       number(it.Amount),
			Quantity:     it.Quantity,
			TotalAmount:  number(it.Total()),
			SerialNumber: it.SerialNumber,
		})
	}
	return createPayload{
		ReportID:      inv.ReportID,
		ClientID:      inv.ClientID,
		Subtotal:      number(inv.Subtotal),
		Discount:      number(inv.Discount),
		TaxRate:       number(inv.TaxRate),
		Tax:           number(inv.Tax),
		Total:         number(inv.Total),
		PaymentStatus: string(inv.PaymentStatus()),
		PaymentMethod: inv.PaymentMethod,
		Items:         items,
	}
}

func overlay(dst, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}

// merge overlays the server's answer on the submitted invoice. Fields the API does not
// echo, such as the laptop snapshot, are kept from the submission.
func merge(inv invoicing.Invoice, res invoiceResponse) invoicing.Invoice {
	inv.ID = res.ID
	if res.CreatedAt != nil {
		inv.Date = *res.CreatedAt
	}
	overlay(&inv.Subtotal, res.Subtotal)
	overlay(&inv.Discount, res.Discount)
	overlay(&inv.TaxRate, res.TaxRate)
	overlay(&inv.Tax, res.Tax)
	overlay(&inv.Total, res.Total)
	if res.PaymentMethod != nil {
		inv.PaymentMethod = *res.PaymentMethod
	}
	switch invoicing.PaymentStatus(res.PaymentStatus) {
	case invoicing.PaymentPaid:
		inv.Paid, inv.PartiallyPaid = true, false
	case invoicing.PaymentPartial:
		inv.Paid, inv.PartiallyPaid = false, true
	case invoicing.PaymentUnpaid:
		inv.Paid, inv.PartiallyPaid = false, false
	}
	if len(res.Items) > 0 {
		items := make([]invoicing.LineItem, 0, len(res.Items))
		for i, it := range res.Items {
			line := invoicing.LineItem{
				Description:  it.Description,
				Amount:       it.Amount,
				Quantity:     it.Quantity,
				TotalAmount:  it.TotalAmount,
				Type:         invoicing.LineType(it.Type),
				SerialNumber: it.SerialNumber,
			}
			// The API does not store lot tags; keep ours when the rows line up.
			if len(res.Items) == len(inv.Items) {
				line.ReportID = inv.Items[i].ReportID
			}
			items = append(items, line)
		}
		inv.Items = items
	}
	return inv
}

// CreateInvoice posts the invoice and returns the server-confirmed copy.
func (c *Client) CreateInvoice(ctx context.Context, inv invoicing.Invoice) (invoicing.Invoice, error) {
	var out invoiceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(toPayload(inv)).
		SetResult(&out).
		Post("/invoices")
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("remote: create invoice: %w", err)
	}
	if resp.IsError() {
		return invoicing.Invoice{}, fmt.Errorf("%w: status %d", ErrRemoteRejected, resp.StatusCode())
	}
	if out.ID == "" {
		return invoicing.Invoice{}, ErrUnexpectedResponse
	}
	return merge(inv, out), nil
}
