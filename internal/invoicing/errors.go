package invoicing

import "errors"

var (
	// ErrNotFound indicates the invoice does not exist in the store.
	ErrNotFound = errors.New("invoicing: invoice not found")
	// ErrDuplicate indicates an invoice id collision.
	ErrDuplicate = errors.New("invoicing: duplicate invoice")
	// ErrReportIDRequired is returned when the report context has no id.
	ErrReportIDRequired = errors.New("invoicing: report id required")
	// ErrQuantityOutOfRange is returned when a row asks for more than MaxQuantity units.
	ErrQuantityOutOfRange = errors.New("invoicing: quantity out of range")
)
