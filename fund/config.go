package fund

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WATERFALL CONFIG - The three rates, validated once at construction
// =============================================================================

// WaterfallConfig is immutable after NewWaterfallConfig returns it, so a
// single value can be shared by concurrent runs.
type WaterfallConfig struct {
	preferredReturn decimal.Decimal
	catchUp         decimal.Decimal
	carriedInterest decimal.Decimal
}

var one = decimal.NewFromInt(1)

// NewWaterfallConfig validates the rates (fractions, not percentages):
//   - preferredReturn in [0, 1)
//   - catchUp in [0, 1]
//   - carriedInterest in [0, 1)
//   - catchUp strictly greater than carriedInterest
func NewWaterfallConfig(preferredReturn, catchUp, carriedInterest decimal.Decimal) (WaterfallConfig, error) {
	if err := checkRate("preferred_return_rate", preferredReturn, false); err != nil {
		return WaterfallConfig{}, err
	}
	if err := checkRate("catch_up_rate", catchUp, true); err != nil {
		return WaterfallConfig{}, err
	}
	if err := checkRate("carried_interest_rate", carriedInterest, false); err != nil {
		return WaterfallConfig{}, err
	}
	if !catchUp.GreaterThan(carriedInterest) {
		return WaterfallConfig{}, &ValidationError{
			Field:  "catch_up_rate",
			Value:  catchUp.String(),
			Reason: fmt.Sprintf("must be greater than carried_interest_rate %s", carriedInterest),
		}
	}
	return WaterfallConfig{
		preferredReturn: preferredReturn,
		catchUp:         catchUp,
		carriedInterest: carriedInterest,
	}, nil
}

// MustWaterfallConfig is NewWaterfallConfig for hard-coded rates.
func MustWaterfallConfig(preferredReturn, catchUp, carriedInterest float64) WaterfallConfig {
	cfg, err := NewWaterfallConfig(
		decimal.NewFromFloat(preferredReturn),
		decimal.NewFromFloat(catchUp),
		decimal.NewFromFloat(carriedInterest),
	)
	if err != nil {
		panic(err)
	}
	return cfg
}

// DefaultConfig is 8% preferred return, 100% catch-up, 20% carry.
func DefaultConfig() WaterfallConfig { return MustWaterfallConfig(0.08, 1.00, 0.20) }

func (c WaterfallConfig) PreferredReturnRate() decimal.Decimal { return c.preferredReturn }
func (c WaterfallConfig) CatchUpRate() decimal.Decimal         { return c.catchUp }
func (c WaterfallConfig) CarriedInterestRate() decimal.Decimal { return c.carriedInterest }

// IsZero reports whether c was built without NewWaterfallConfig.
func (c WaterfallConfig) IsZero() bool {
	return c.catchUp.IsZero() && c.carriedInterest.IsZero() && c.preferredReturn.IsZero()
}

func (c WaterfallConfig) String() string {
	return fmt.Sprintf("preferred=%s catch_up=%s carry=%s", c.preferredReturn, c.catchUp, c.carriedInterest)
}

func checkRate(field string, rate decimal.Decimal, inclusiveOne bool) error {
	if rate.IsNegative() {
		return &ValidationError{Field: field, Value: rate.String(), Reason: "must not be negative"}
	}
	if inclusiveOne && rate.GreaterThan(one) {
		return &ValidationError{Field: field, Value: rate.String(), Reason: "must not exceed 1"}
	}
	if !inclusiveOne && rate.GreaterThanOrEqual(one) {
		return &ValidationError{Field: field, Value: rate.String(), Reason: "must be less than 1"}
	}
	return nil
}
