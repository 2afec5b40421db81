package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/techfix/techfix/internal/invoicing"
	"github.com/techfix/techfix/internal/platform/db"
)

// Schema creates the invoice tables. Money columns are unconstrained NUMERIC so stored values
// round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS invoices (
	id               TEXT PRIMARY KEY,
	issued_at        TIMESTAMPTZ NOT NULL,
	report_id        TEXT NOT NULL,
	client_id        TEXT NOT NULL DEFAULT '',
	client_name      TEXT NOT NULL DEFAULT '',
	client_phone     TEXT NOT NULL DEFAULT '',
	order_code       TEXT NOT NULL DEFAULT '',
	laptops          JSONB NOT NULL DEFAULT '[]',
	additional_items JSONB NOT NULL DEFAULT '[]',
	subtotal         NUMERIC NOT NULL,
	discount         NUMERIC NOT NULL,
	tax_rate         NUMERIC NOT NULL,
	tax              NUMERIC NOT NULL,
	total            NUMERIC NOT NULL,
	paid             BOOLEAN NOT NULL DEFAULT FALSE,
	partially_paid   BOOLEAN NOT NULL DEFAULT FALSE,
	payment_method   TEXT NOT NULL DEFAULT '',
	payment_date     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS invoices_client_id_idx ON invoices (client_id);

CREATE TABLE IF NOT EXISTS invoice_items (
	invoice_id    TEXT NOT NULL REFERENCES invoices (id) ON DELETE CASCADE,
	line_no       INT NOT NULL,
	description   TEXT NOT NULL,
	item_type     TEXT NOT NULL,
	amount        NUMERIC NOT NULL,
	quantity      INT NOT NULL,
	total_amount  NUMERIC,
	serial_number TEXT NOT NULL DEFAULT '',
	report_ref    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (invoice_id, line_no)
);`

const uniqueViolation = "23505"

const selectInvoice = `
	SELECT id, issued_at, report_id, client_id, client_name, client_phone, order_code,
		laptops, additional_items,
		subtotal::text, discount::text, tax_rate::text, tax::text, total::text,
		paid, partially_paid, payment_method, payment_date
	FROM invoices`

// Store persists invoices in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies Schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	return nil
}

// CreateInvoice satisfies invoicing.Creator.
func (s *Store) CreateInvoice(ctx context.Context, inv invoicing.Invoice) (invoicing.Invoice, error) {
	return s.Save(ctx, inv)
}

// Save inserts the invoice and its line items in one transaction.
func (s *Store) Save(ctx context.Context, inv invoicing.Invoice) (invoicing.Invoice, error) {
	laptops, err := json.Marshal(nonNil(inv.Laptops))
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("pgstore: encode laptops: %w", err)
	}
	extras, err := json.Marshal(nonNil(inv.AdditionalItems))
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("pgstore: encode additional items: %w", err)
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoices (
				id, issued_at, report_id, client_id, client_name, client_phone, order_code,
				laptops, additional_items, subtotal, discount, tax_rate, tax, total,
				paid, partially_paid, payment_method, payment_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb,
				$10::numeric, $11::numeric, $12::numeric, $13::numeric, $14::numeric,
				$15, $16, $17, $18)`,
			inv.ID, inv.Date, inv.ReportID, inv.ClientID, inv.ClientName, inv.ClientPhone, inv.OrderCode,
			string(laptops), string(extras),
			inv.Subtotal.String(), inv.Discount.String(), inv.TaxRate.String(), inv.Tax.String(), inv.Total.String(),
			inv.Paid, inv.PartiallyPaid, inv.PaymentMethod, timestamptz(inv.PaymentDate),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return invoicing.ErrDuplicate
			}
			return fmt.Errorf("insert invoice: %w", err)
		}

		batch := &pgx.Batch{}
		for i, item := range inv.Items {
			var total pgtype.Text
			if item.TotalAmount.Valid {
				total = pgtype.Text{String: item.TotalAmount.Decimal.String(), Valid: true}
			}
			batch.Queue(`
				INSERT INTO invoice_items (
					invoice_id, line_no, description, item_type, amount, quantity,
					total_amount, serial_number, report_ref
				) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric, $8, $9)`,
				inv.ID, i, item.Description, string(item.Type), item.Amount.String(), item.Quantity,
				total, item.SerialNumber, item.ReportID,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert invoice items: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, invoicing.ErrDuplicate) {
			return invoicing.Invoice{}, err
		}
		return invoicing.Invoice{}, fmt.Errorf("pgstore: save %s: %w", inv.ID, err)
	}
	return inv, nil
}

// FindByID returns one invoice with its items.
func (s *Store) FindByID(ctx context.Context, id string) (invoicing.Invoice, error) {
	invoices, err := s.query(ctx, selectInvoice+` WHERE id = $1`, id)
	if err != nil {
		return invoicing.Invoice{}, err
	}
	if len(invoices) == 0 {
		return invoicing.Invoice{}, invoicing.ErrNotFound
	}
	return invoices[0], nil
}

// FindByClient returns the invoices of one client in issue order.
func (s *Store) FindByClient(ctx context.Context, clientID string) ([]invoicing.Invoice, error) {
	return s.query(ctx, selectInvoice+` WHERE client_id = $1 ORDER BY issued_at, id`, clientID)
}

// List returns all invoices in issue order.
func (s *Store) List(ctx context.Context) ([]invoicing.Invoice, error) {
	return s.query(ctx, selectInvoice+` ORDER BY issued_at, id`)
}

// UpdatePaymentStatus sets paid, method and payment date, returning the updated invoice.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, paid bool, method string, at time.Time) (invoicing.Invoice, error) {
	var inv invoicing.Invoice
	inv.ApplyPayment(paid, method, at)

	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices SET paid = $2, payment_method = $3, payment_date = $4
		WHERE id = $1`,
		id, inv.Paid, inv.PaymentMethod, timestamptz(inv.PaymentDate),
	)
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("pgstore: update payment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return invoicing.Invoice{}, invoicing.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]invoicing.Invoice, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []invoicing.Invoice{}
	index := map[string]int{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		index[inv.ID] = len(invoices)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate invoices: %w", err)
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	if err := s.attachItems(ctx, ids, invoices, index); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) attachItems(ctx context.Context, ids []string, invoices []invoicing.Invoice, index map[string]int) error {
	rows, err := s.pool.Query(ctx, `
		SELECT invoice_id, description, item_type, amount::text, quantity,
			total_amount::text, serial_number, report_ref
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("pgstore: query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			invoiceID, itemType, amount string
			total                       pgtype.Text
			item                        invoicing.LineItem
		)
		if err := rows.Scan(&invoiceID, &item.Description, &itemType, &amount, &item.Quantity,
			&total, &item.SerialNumber, &item.ReportID); err != nil {
			return fmt.Errorf("pgstore: scan item: %w", err)
		}
		item.Type = invoicing.LineType(itemType)
		if item.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("pgstore: item amount: %w", err)
		}
		if total.Valid {
			d, err := decimal.NewFromString(total.String)
			if err != nil {
				return fmt.Errorf("pgstore: item total: %w", err)
			}
			item.TotalAmount = decimal.NewNullDecimal(d)
		}
		i := index[invoiceID]
		invoices[i].Items = append(invoices[i].Items, item)
	}
	return rows.Err()
}

func scanInvoice(row pgx.Row) (invoicing.Invoice, error) {
	var (
		inv                                  invoicing.Invoice
		laptops, extras                      []byte
		subtotal, discount, rate, tax, total string
		paymentDate                          pgtype.Timestamptz
	)
	err := row.Scan(&inv.ID, &inv.Date, &inv.ReportID, &inv.ClientID, &inv.ClientName, &inv.ClientPhone,
		&inv.OrderCode, &laptops, &extras, &subtotal, &discount, &rate, &tax, &total,
		&inv.Paid, &inv.PartiallyPaid, &inv.PaymentMethod, &paymentDate)
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("pgstore: scan invoice: %w", err)
	}

	if err := json.Unmarshal(laptops, &inv.Laptops); err != nil {
		return invoicing.Invoice{}, fmt.Errorf("pgstore: decode laptops: %w", err)
	}
	if err := json.Unmarshal(extras, &inv.AdditionalItems); err != nil {
		return invoicing.Invoice{}, fmt.Errorf("pgstore: decode additional items: %w", err)
	}

	money := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&inv.Subtotal, subtotal},
		{&inv.Discount, discount},
		{&inv.TaxRate, rate},
		{&inv.Tax, tax},
		{&inv.Total, total},
	}
	for _, m := range money {
		d, err := decimal.NewFromString(m.src)
		if err != nil {
			return invoicing.Invoice{}, fmt.Errorf("pgstore: decode amount %q: %w", m.src, err)
		}
		*m.dst = d
	}

	if paymentDate.Valid {
		ts := paymentDate.Time
		inv.PaymentDate = &ts
	}
	inv.Items = []invoicing.LineItem{}
	return inv, nil
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
