package form

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/techfix/techfix/internal/invoicing"
)

// rowKey matches bracketed form keys such as laptops[0][name] or laptops[0][serials][1].
var rowKey = regexp.MustCompile(`^(laptops|items)\[(\d+)\]\[(\w+)\](?:\[(\d+)\])?$`)

type rawRow struct {
	fields  map[string]string
	serials map[int]string
}

// FromValues rebuilds a Controller from a submitted form. Row indices may be sparse; rows keep
// their index order. Numbers that fail to parse read as zero and a missing laptop quantity
// stays at one unit. A quantity above invoicing.MaxQuantity fails the whole form.
func FromValues(values url.Values) (*Controller, error) {
	c := New()

	laptops := map[int]*rawRow{}
	items := map[int]*rawRow{}
	for key, vals := range values {
		m := rowKey.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		rows := laptops
		if m[1] == "items" {
			rows = items
		}
		row, ok := rows[idx]
		if !ok {
			row = &rawRow{fields: map[string]string{}, serials: map[int]string{}}
			rows[idx] = row
		}
		if m[4] != "" {
			if m[3] != "serials" {
				continue
			}
			pos, err := strconv.Atoi(m[4])
			if err != nil {
				continue
			}
			row.serials[pos] = vals[0]
			continue
		}
		row.fields[m[3]] = vals[0]
	}

	for _, idx := range sortedKeys(laptops) {
		row := laptops[idx]
		i := c.AddLaptopRow(row.fields["name"], row.fields["serial"], parseDecimal(row.fields["price"]))
		if raw, ok := row.fields["quantity"]; ok {
			if err := c.SetLaptopQuantity(i, parseInt(raw)); err != nil {
				return nil, err
			}
		}
		for pos, serial := range row.serials {
			_ = c.SetAdditionalSerial(i, pos, serial)
		}
	}
	for _, idx := range sortedKeys(items) {
		row := items[idx]
		qty := parseInt(row.fields["quantity"])
		if qty > invoicing.MaxQuantity {
			return nil, fmt.Errorf("item row %d quantity %d: %w", idx, qty, invoicing.ErrQuantityOutOfRange)
		}
		c.AddItemRow(row.fields["name"], parseDecimal(row.fields["price"]), qty)
	}

	c.Discount = parseDecimal(values.Get("discount"))
	if raw := strings.TrimSpace(values.Get("taxRate")); raw != "" {
		c.TaxRate = parseDecimal(raw)
	}
	if status := invoicing.PaymentStatus(strings.TrimSpace(values.Get("paymentStatus"))); status != "" {
		c.PaymentStatus = status
	}
	c.PaymentMethod = strings.TrimSpace(values.Get("paymentMethod"))
	return c, nil
}

func sortedKeys(rows map[int]*rawRow) []int {
	keys := make([]int, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseInt reads garbage as zero. Out-of-range numbers keep the saturated value Atoi
// reports so the quantity bound still sees them.
func parseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}
