package fund

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCurrency converts strings like "$1,234.56" into a decimal amount.
// Accounting negatives such as "(500.00)" or "-500" are rejected: inputs to
// the waterfall are non-negative.
func ParseCurrency(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}

	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseFlowType accepts "contribution" or "distribution" in any case.
func ParseFlowType(s string) (FlowType, error) {
	f := FlowType(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFlow, s)
	}
	return f, nil
}
