package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceRenderPDF renders an invoice PDF into the Redis document cache.
	TaskInvoiceRenderPDF = "invoice:render_pdf"
)

// InvoiceRenderPayload identifies the invoice to render.
type InvoiceRenderPayload struct {
	InvoiceID string `json:"invoiceId"`
}

// NewInvoiceRenderTask constructs a render task with a unique task id.
func NewInvoiceRenderTask(invoiceID string) (*asynq.Task, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("jobs: invoice id required")
	}
	body, err := json.Marshal(InvoiceRenderPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceRenderPDF, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(3),
	), nil
}
