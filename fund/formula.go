package fund

import (
	"math"

	"github.com/shopspring/decimal"
)

// DaysPerYear is the day-count basis for preferred-return compounding.
const DaysPerYear = 365

// CompoundedGrowth returns principal * (1 + rate) ^ (elapsedDays / 365).
// elapsedDays is expected to come from DaysBetween and is never negative.
func CompoundedGrowth(principal, rate decimal.Decimal, elapsedDays int) decimal.Decimal {
	return principal.Mul(growthFactor(rate, elapsedDays))
}

// growthFactor evaluates the fractional power in float64. The factor is
// exactly 1 when rate is 0.
func growthFactor(rate decimal.Decimal, elapsedDays int) decimal.Decimal {
	if rate.IsZero() || elapsedDays == 0 {
		return decimal.NewFromInt(1)
	}
	base := 1 + rate.InexactFloat64()
	return decimal.NewFromFloat(math.Pow(base, float64(elapsedDays)/DaysPerYear))
}

// CatchUpAmount returns the GP catch-up that restores the carried-interest
// share of profits after the LP received lpPreferred:
//
//	carried * lpPreferred / (catchUp - carried)
//
// Equal rates are outside the formula's domain and yield an ArithmeticError.
func CatchUpAmount(carried, lpPreferred, catchUp decimal.Decimal) (decimal.Decimal, error) {
	denom := catchUp.Sub(carried)
	if denom.IsZero() {
		return decimal.Zero, &ArithmeticError{Op: "catch-up", Reason: "catch-up rate equals carried-interest rate (division by zero)"}
	}
	return carried.Mul(lpPreferred).Div(denom), nil
}

// FormatCurrency renders amount with two decimals after symbol, e.g. "$1234.50".
// Output does not depend on locale.
func FormatCurrency(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// clampAllocation caps want at available and floors it at zero.
func clampAllocation(available, want decimal.Decimal) decimal.Decimal {
	if !want.IsPositive() || !available.IsPositive() {
		return decimal.Zero
	}
	return minDecimal(available, want)
}
