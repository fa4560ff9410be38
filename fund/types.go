/*
Package fund provides the distribution waterfall engine.

PURPOSE:
  This package contains the domain entities (LP, Transaction, WaterfallConfig),
  the pure formula library, and the four-tier waterfall engine that splits an
  LP's distributed cash between the LP and the GP.

KEY CONCEPTS IN THIS FILE (types.go):
  - CommitmentID: Identifier of one LP commitment
  - FlowType: Contribution (cash in) or Distribution (cash out)
  - Transaction: Immutable dated cash flow owned by one LP
  - LP: Commitment header plus ordered contribution/distribution lists

DESIGN PRINCIPLES:
  1. Immutability: Transactions are created once at ingestion and never change
  2. Precision: Money uses decimal.Decimal, never float64
  3. Ownership: An LP only accepts transactions carrying its own ID

USAGE:
  lp := fund.NewLP(7, "Acme Pension", decimal.NewFromInt(1_000_000))
  err := lp.AddTransaction(fund.Transaction{
      CommitmentID: 7,
      Date:         fund.NewDate(2020, time.January, 1),
      Amount:       decimal.NewFromInt(250_000),
      Flow:         fund.Contribution,
  })

SEE ALSO:
  - config.go: WaterfallConfig and its validation
  - engine.go: The four-tier allocation
  - store.go: Registry interface for LP lookup
*/
package fund

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// CommitmentID identifies an LP commitment.
type CommitmentID int64

func (id CommitmentID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseCommitmentID parses a decimal commitment identifier.
func ParseCommitmentID(s string) (CommitmentID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "commitment_id", Value: s, Reason: "must be an integer"}
	}
	return CommitmentID(n), nil
}

// =============================================================================
// TRANSACTION - Dated cash flow between LP and fund
// =============================================================================

type FlowType string

const (
	Contribution FlowType = "contribution" // LP pays capital into the fund
	Distribution FlowType = "distribution" // Fund pays cash out to the LP
)

func (f FlowType) Valid() bool { return f == Contribution || f == Distribution }

// Transaction is immutable once created.
type Transaction struct {
	CommitmentID CommitmentID
	Date         Date
	Amount       decimal.Decimal
	Flow         FlowType
}

// =============================================================================
// LP - Limited partner commitment and its cash flows
// =============================================================================

type LP struct {
	ID               CommitmentID
	EntityName       string
	CommitmentAmount decimal.Decimal
	Contributions    []Transaction
	Distributions    []Transaction
}

func NewLP(id CommitmentID, entityName string, commitment decimal.Decimal) *LP {
	return &LP{ID: id, EntityName: entityName, CommitmentAmount: commitment}
}

// Validate checks the LP header.
func (lp *LP) Validate() error {
	if lp.EntityName == "" {
		return &ValidationError{Field: "entity_name", Value: "", Reason: "cannot be empty"}
	}
	if lp.CommitmentAmount.IsNegative() {
		return &ValidationError{Field: "commitment_amount", Value: lp.CommitmentAmount.String(), Reason: "cannot be negative"}
	}
	return nil
}

// AddTransaction appends tx to the list matching its flow type.
// Rejects transactions owned by another LP, unknown flows, and negative amounts.
func (lp *LP) AddTransaction(tx Transaction) error {
	if tx.CommitmentID != lp.ID {
		return fmt.Errorf("transaction for commitment %s added to LP %s: %w", tx.CommitmentID, lp.ID, ErrValidation)
	}
	if tx.Amount.IsNegative() {
		return &ValidationError{Field: "transaction_amount", Value: tx.Amount.String(), Reason: "cannot be negative"}
	}
	if tx.Date.IsZero() {
		return &ValidationError{Field: "transaction_date", Value: "", Reason: "is required"}
	}

	switch tx.Flow {
	case Contribution:
		lp.Contributions = append(lp.Contributions, tx)
	case Distribution:
		lp.Distributions = append(lp.Distributions, tx)
	default:
		return fmt.Errorf("flow %q: %w", tx.Flow, ErrInvalidFlow)
	}
	return nil
}

func (lp *LP) TotalContributed() decimal.Decimal { return sumAmounts(lp.Contributions) }
func (lp *LP) TotalDistributed() decimal.Decimal { return sumAmounts(lp.Distributions) }
func (lp *LP) HasDistributions() bool            { return len(lp.Distributions) > 0 }

// LastDistributionDate returns the latest distribution date by calendar
// order, not list position. ok is false when there are no distributions.
func (lp *LP) LastDistributionDate() (last Date, ok bool) {
	for i, d := range lp.Distributions {
		if i == 0 || d.Date.After(last) {
			last = d.Date
		}
	}
	return last, len(lp.Distributions) > 0
}

// Transactions returns contributions followed by distributions.
func (lp *LP) Transactions() []Transaction {
	all := make([]Transaction, 0, len(lp.Contributions)+len(lp.Distributions))
	all = append(all, lp.Contributions...)
	return append(all, lp.Distributions...)
}

// Rebuild validates the header and every transaction of lp and returns a
// fresh copy assembled through AddTransaction.
func (lp *LP) Rebuild() (*LP, error) {
	if err := lp.Validate(); err != nil {
		return nil, err
	}
	fresh := NewLP(lp.ID, lp.EntityName, lp.CommitmentAmount)
	for _, tx := range lp.Transactions() {
		if err := fresh.AddTransaction(tx); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (lp *LP) Clone() *LP {
	c := *lp
	c.Contributions = append([]Transaction(nil), lp.Contributions...)
	c.Distributions = append([]Transaction(nil), lp.Distributions...)
	return &c
}

func sumAmounts(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
