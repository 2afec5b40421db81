package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money formats amounts in a single ISO currency with English digit grouping.
type Money struct {
	unit currency.Unit
}

// NewMoney validates an ISO 4217 code such as "EGP" or "USD".
func NewMoney(code string) (Money, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Money{}, fmt.Errorf("export: currency %q: %w", code, err)
	}
	return Money{unit: unit}, nil
}

// Code returns the ISO code.
func (m Money) Code() string {
	return m.unit.String()
}

// Format renders an amount as "<CODE> 1,234.50". Digits come from the decimal itself,
// so large amounts keep every digit.
func (m Money) Format(amount decimal.Decimal) string {
	return m.unit.String() + " " + groupThousands(amount.StringFixed(2))
}

// groupThousands inserts commas into the integer part of a fixed-point string.
func groupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
