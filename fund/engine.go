/*
engine.go - Four-tier distribution waterfall

PURPOSE:
  Splits an LP's total distributions between the LP and the GP by walking
  four tiers in a fixed order. Each tier takes what it is owed from the
  capital still available and passes the rest down.

TIERS:
  1. Return of Capital: LP gets back min(contributed, commitment)
  2. Preferred Return:  LP gets compounded growth on each contribution,
                        measured to the last distribution date
  3. Catch-Up:          GP gets enough to restore its carried-interest share
  4. Final Split:       Remainder split carry:(1-carry) between GP and LP

RUNNING CAPITAL:
  The available capital starts at total distributions and is the only state
  shared between tiers. It lives inside one Run call and never increases.
  After Final Split it is zero.

FAILURE:
  Preconditions (LP present, at least one distribution) are checked before
  the first tier. A failed run produces no TierResults.

EXAMPLE:
  engine, _ := fund.NewEngine(fund.DefaultConfig())
  res, err := engine.Run(lp)
  if err != nil {
      return err
  }
  for _, row := range res.Rows("$") {
      fmt.Println(row)
  }

SEE ALSO:
  - formula.go: CompoundedGrowth, CatchUpAmount
  - projection.go: Result to display rows
*/
package fund

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TIERS
// =============================================================================

type Tier int

const (
	TierReturnOfCapital Tier = iota
	TierPreferredReturn
	TierCatchUp
	TierFinalSplit

	tierCount = 4
)

var tierNames = [tierCount]string{
	TierReturnOfCapital: "Return of Capital",
	TierPreferredReturn: "Preferred Return",
	TierCatchUp:         "Catch Up",
	TierFinalSplit:      "Final Split",
}

func (t Tier) String() string {
	if t < 0 || t >= tierCount {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// Tiers returns all tiers in allocation order.
func Tiers() []Tier {
	return []Tier{TierReturnOfCapital, TierPreferredReturn, TierCatchUp, TierFinalSplit}
}

// TierResult records one tier's allocation.
// TotalDistribution == LPAllocation + GPAllocation and
// StartingCapital == TotalDistribution + RemainingCapital.
type TierResult struct {
	Tier              Tier
	StartingCapital   decimal.Decimal
	LPAllocation      decimal.Decimal
	GPAllocation      decimal.Decimal
	TotalDistribution decimal.Decimal
	RemainingCapital  decimal.Decimal
}

// Result is the outcome of one waterfall run.
type Result struct {
	RunID                uuid.UUID
	CommitmentID         CommitmentID
	EntityName           string
	CommitmentAmount     decimal.Decimal
	TotalContributed     decimal.Decimal
	TotalDistribution    decimal.Decimal
	LastDistributionDate Date
	Config               WaterfallConfig
	Tiers                [tierCount]TierResult
}

// Tier returns the result for t.
func (r *Result) Tier(t Tier) TierResult { return r.Tiers[t] }

// LPTotal is the LP's allocation summed over all tiers.
func (r *Result) LPTotal() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Tiers {
		total = total.Add(t.LPAllocation)
	}
	return total
}

// GPTotal is the GP's allocation summed over all tiers.
func (r *Result) GPTotal() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Tiers {
		total = total.Add(t.GPAllocation)
	}
	return total
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine holds only the immutable config and may be shared across goroutines.
type Engine struct {
	config WaterfallConfig
}

// NewEngine refuses a config that did not come from NewWaterfallConfig.
func NewEngine(config WaterfallConfig) (*Engine, error) {
	if config.IsZero() {
		return nil, &ValidationError{Field: "config", Value: "", Reason: "not initialized"}
	}
	return &Engine{config: config}, nil
}

func (e *Engine) Config() WaterfallConfig { return e.config }

// run is the per-call state threaded through the tiers.
type run struct {
	config           WaterfallConfig
	lp               *LP
	totalContributed decimal.Decimal
	lastDistribution Date
	available        decimal.Decimal
	results          [tierCount]TierResult
}

// step computes the LP and GP shares for one tier from the run state.
type step func(r *run) (lp, gp decimal.Decimal, err error)

// The order of this table is the order of the waterfall.
var steps = [tierCount]step{
	TierReturnOfCapital: returnOfCapital,
	TierPreferredReturn: preferredReturn,
	TierCatchUp:         catchUp,
	TierFinalSplit:      finalSplit,
}

// Run computes the waterfall for lp. lp is only read.
func (e *Engine) Run(lp *LP) (*Result, error) {
	if lp == nil {
		return nil, &PreconditionError{Err: ErrLPNotFound}
	}
	if !lp.HasDistributions() {
		return nil, &PreconditionError{CommitmentID: lp.ID, Err: ErrNoDistributions}
	}
	last, _ := lp.LastDistributionDate()

	totalDistribution := lp.TotalDistributed()
	r := &run{
		config:           e.config,
		lp:               lp,
		totalContributed: lp.TotalContributed(),
		lastDistribution: last,
		available:        totalDistribution,
	}

	for i, s := range steps {
		start := r.available
		lpShare, gpShare, err := s(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Tier(i), err)
		}
		total := lpShare.Add(gpShare)
		r.available = start.Sub(total)
		r.results[i] = TierResult{
			Tier:              Tier(i),
			StartingCapital:   start,
			LPAllocation:      lpShare,
			GPAllocation:      gpShare,
			TotalDistribution: total,
			RemainingCapital:  r.available,
		}
	}

	return &Result{
		RunID:                uuid.New(),
		CommitmentID:         lp.ID,
		EntityName:           lp.EntityName,
		CommitmentAmount:     lp.CommitmentAmount,
		TotalContributed:     r.totalContributed,
		TotalDistribution:    totalDistribution,
		LastDistributionDate: last,
		Config:               e.config,
		Tiers:                r.results,
	}, nil
}

// =============================================================================
// TIER STEPS
// =============================================================================

func returnOfCapital(r *run) (decimal.Decimal, decimal.Decimal, error) {
	eligible := minDecimal(r.totalContributed, r.lp.CommitmentAmount)
	return clampAllocation(r.available, eligible), decimal.Zero, nil
}

func preferredReturn(r *run) (decimal.Decimal, decimal.Decimal, error) {
	owed := PreferredReturnOwed(r.lp.Contributions, r.config.PreferredReturnRate(), r.lastDistribution)
	return clampAllocation(r.available, owed), decimal.Zero, nil
}

func catchUp(r *run) (decimal.Decimal, decimal.Decimal, error) {
	target, err := CatchUpAmount(
		r.config.CarriedInterestRate(),
		r.results[TierPreferredReturn].LPAllocation,
		r.config.CatchUpRate(),
	)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return decimal.Zero, clampAllocation(r.available, target), nil
}

func finalSplit(r *run) (decimal.Decimal, decimal.Decimal, error) {
	if !r.available.IsPositive() {
		return decimal.Zero, decimal.Zero, nil
	}
	gp := r.config.CarriedInterestRate().Mul(r.available)
	return r.available.Sub(gp), gp, nil
}

// PreferredReturnOwed is the growth-only part of compounding every
// contribution up to asOf. It is never negative.
func PreferredReturnOwed(contributions []Transaction, rate decimal.Decimal, asOf Date) decimal.Decimal {
	accrued := decimal.Zero
	principal := decimal.Zero
	for _, c := range contributions {
		accrued = accrued.Add(CompoundedGrowth(c.Amount, rate, DaysBetween(c.Date, asOf)))
		principal = principal.Add(c.Amount)
	}
	owed := accrued.Sub(principal)
	if owed.IsNegative() {
		return decimal.Zero
	}
	return owed
}
