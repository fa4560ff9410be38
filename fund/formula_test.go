package fund_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5m/waterfall/fund"
)

func TestCompoundedGrowth_ZeroRateReturnsPrincipal(t *testing.T) {
	principal := dec(1234.56)
	for _, d := range []int{0, 1, 30, 365, 400, 10_000} {
		got := fund.CompoundedGrowth(principal, decimal.Zero, d)
		assert.True(t, got.Equal(principal), "d=%d: got %s", d, got)
	}
}

func TestCompoundedGrowth_OneYear(t *testing.T) {
	got := fund.CompoundedGrowth(dec(1000), dec(0.05), 365)
	assertDecimal(t, 1050, got, 1e-9, "one year at 5%")
}

func TestCompoundedGrowth_MonotonicInDays(t *testing.T) {
	rate := dec(0.08)
	prev := fund.CompoundedGrowth(dec(1000), rate, 0)
	for d := 25; d <= 5000; d += 25 {
		cur := fund.CompoundedGrowth(dec(1000), rate, d)
		require.True(t, cur.GreaterThan(prev), "growth at %d days (%s) not above %s", d, cur, prev)
		prev = cur
	}
}

func TestCatchUpAmount(t *testing.T) {
	got, err := fund.CatchUpAmount(dec(0.2), dec(100), dec(1))
	require.NoError(t, err)
	assertDecimal(t, 25, got, 1e-12, "0.2 * 100 / 0.8")

	got, err = fund.CatchUpAmount(dec(500), dec(0.1), dec(600))
	require.NoError(t, err)
	assertDecimal(t, 0.5, got, 1e-12, "500 * 0.1 / 100")
}

func TestCatchUpAmount_EqualRatesIsArithmeticError(t *testing.T) {
	_, err := fund.CatchUpAmount(dec(0.2), dec(100), dec(0.2))

	require.Error(t, err)
	assert.ErrorIs(t, err, fund.ErrArithmetic)
	var arith *fund.ArithmeticError
	assert.ErrorAs(t, err, &arith)
	assert.Equal(t, "catch-up", arith.Op)
}

func TestDaysBetween_Symmetric(t *testing.T) {
	pairs := [][2]fund.Date{
		{fund.NewDate(2023, time.May, 20), fund.NewDate(2023, time.June, 15)},
		{fund.NewDate(2024, time.February, 28), fund.NewDate(2024, time.March, 1)},
		{fund.NewDate(2019, time.December, 31), fund.NewDate(2025, time.January, 1)},
		{fund.NewDate(2022, time.July, 4), fund.NewDate(2022, time.July, 4)},
	}
	want := []int{26, 2, 1828, 0}

	for i, p := range pairs {
		assert.Equal(t, want[i], fund.DaysBetween(p[0], p[1]), "forward %d", i)
		assert.Equal(t, want[i], fund.DaysBetween(p[1], p[0]), "backward %d", i)
	}
}

func TestDaysBetween_SpansBeyondDurationRange(t *testing.T) {
	// More than 292 years apart, past the range of time.Duration.
	first := fund.MustParseDate("01/01/0001")
	last := fund.MustParseDate("12/31/9999")

	assert.Equal(t, 737_424, fund.DaysBetween(first, fund.NewDate(2020, time.January, 1)))
	assert.Equal(t, 3_652_058, fund.DaysBetween(first, last))
	assert.Equal(t, 3_652_058, fund.DaysBetween(last, first))
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		symbol string
		amount decimal.Decimal
		want   string
	}{
		{"$", dec(1234.56), "$1234.56"},
		{"€", dec(1234.56), "€1234.56"},
		{"$", dec(1234.5), "$1234.50"},
		{"$", decimal.Zero, "$0.00"},
		{"$", dec(0.125), "$0.13"},
		{"$", decimal.NewFromInt(1_000_000), "$1000000.00"},
		{"", dec(87999.693798), "87999.69"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, fund.FormatCurrency(tc.symbol, tc.amount))
	}
}
