/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the fund domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Money and rates are decimal.Decimal, which encodes as a JSON string
  ("1300000.5") so clients never see float rounding. Request bodies take
  amounts as strings and accept "$1,000.00" as well as "1000".

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/i5m/waterfall/factory"
	"github.com/i5m/waterfall/fund"
)

// =============================================================================
// CONFIG
// =============================================================================

// ConfigDTO shows the terms every waterfall on this server uses.
type ConfigDTO struct {
	PreferredReturnRate decimal.Decimal `json:"preferred_return_rate"`
	CatchUpRate         decimal.Decimal `json:"catch_up_rate"`
	CarriedInterestRate decimal.Decimal `json:"carried_interest_rate"`
	CurrencySymbol      string          `json:"currency_symbol"`
}

// ConfigResponse adds the terms in config-file form, ready to save as a
// fund file for another server.
type ConfigResponse struct {
	ConfigDTO
	File factory.ConfigJSON `json:"file"`
}

// =============================================================================
// LPs AND TRANSACTIONS
// =============================================================================

// LPSummaryDTO is an LP header with totals.
type LPSummaryDTO struct {
	ID               int64           `json:"id"`
	EntityName       string          `json:"entity_name"`
	CommitmentAmount decimal.Decimal `json:"commitment_amount"`
	TotalContributed decimal.Decimal `json:"total_contributed"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
}

// LPDTO is an LP with its cash flows.
type LPDTO struct {
	LPSummaryDTO
	Contributions []TransactionDTO `json:"contributions"`
	Distributions []TransactionDTO `json:"distributions"`
}

// TransactionDTO is one cash flow. Dates use MM/DD/YYYY like the CSV files.
type TransactionDTO struct {
	TransactionDate            string          `json:"transaction_date"`
	TransactionAmount          decimal.Decimal `json:"transaction_amount"`
	ContributionOrDistribution string          `json:"contribution_or_distribution"`
}

// CreateLPRequest is the body for POST /api/lps.
type CreateLPRequest struct {
	ID               int64  `json:"id"`
	EntityName       string `json:"entity_name"`
	CommitmentAmount string `json:"commitment_amount"`
}

// CreateTransactionRequest is the body for POST /api/lps/{id}/transactions.
type CreateTransactionRequest struct {
	TransactionDate            string `json:"transaction_date"`
	TransactionAmount          string `json:"transaction_amount"`
	ContributionOrDistribution string `json:"contribution_or_distribution"`
}

// =============================================================================
// WATERFALL
// =============================================================================

// TierDTO is one tier of a computed waterfall.
type TierDTO struct {
	Name              string          `json:"name"`
	StartingCapital   decimal.Decimal `json:"starting_capital"`
	LPAllocation      decimal.Decimal `json:"lp_allocation"`
	GPAllocation      decimal.Decimal `json:"gp_allocation"`
	TotalDistribution decimal.Decimal `json:"total_distribution"`
	RemainingCapital  decimal.Decimal `json:"remaining_capital"`
}

// WaterfallResponse is a computed waterfall plus its display table.
type WaterfallResponse struct {
	RunID                string          `json:"run_id"`
	CommitmentID         int64           `json:"commitment_id"`
	EntityName           string          `json:"entity_name"`
	CommitmentAmount     decimal.Decimal `json:"commitment_amount"`
	TotalContributed     decimal.Decimal `json:"total_contributed"`
	TotalDistribution    decimal.Decimal `json:"total_distribution"`
	LastDistributionDate string          `json:"last_distribution_date"`
	LPTotal              decimal.Decimal `json:"lp_total"`
	GPTotal              decimal.Decimal `json:"gp_total"`
	Config               ConfigDTO       `json:"config"`
	Tiers                []TierDTO       `json:"tiers"`
	Headers              []string        `json:"headers"`
	Rows                 [][]string      `json:"rows"`
}

// =============================================================================
// ADMIN
// =============================================================================

// ImportRequest selects the sample (test_-prefixed) files when Example is set.
type ImportRequest struct {
	Example bool `json:"example"`
}

// ImportResponse reports what an import loaded.
type ImportResponse struct {
	Commitments  int `json:"commitments"`
	Transactions int `json:"transactions"`
	Skipped      int `json:"skipped"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toConfigDTO(cfg fund.WaterfallConfig, symbol string) ConfigDTO {
	return ConfigDTO{
		PreferredReturnRate: cfg.PreferredReturnRate(),
		CatchUpRate:         cfg.CatchUpRate(),
		CarriedInterestRate: cfg.CarriedInterestRate(),
		CurrencySymbol:      symbol,
	}
}

func toSummaryDTO(lp *fund.LP) LPSummaryDTO {
	return LPSummaryDTO{
		ID:               int64(lp.ID),
		EntityName:       lp.EntityName,
		CommitmentAmount: lp.CommitmentAmount,
		TotalContributed: lp.TotalContributed(),
		TotalDistributed: lp.TotalDistributed(),
	}
}

func toLPDTO(lp *fund.LP) LPDTO {
	return LPDTO{
		LPSummaryDTO:  toSummaryDTO(lp),
		Contributions: toTransactionDTOs(lp.Contributions),
		Distributions: toTransactionDTOs(lp.Distributions),
	}
}

func toTransactionDTOs(txs []fund.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			TransactionDate:            tx.Date.String(),
			TransactionAmount:          tx.Amount,
			ContributionOrDistribution: string(tx.Flow),
		}
	}
	return dtos
}

func toWaterfallResponse(res *fund.Result, symbol string) WaterfallResponse {
	tiers := make([]TierDTO, len(res.Tiers))
	for i, t := range res.Tiers {
		tiers[i] = TierDTO{
			Name:              t.Tier.String(),
			StartingCapital:   t.StartingCapital,
			LPAllocation:      t.LPAllocation,
			GPAllocation:      t.GPAllocation,
			TotalDistribution: t.TotalDistribution,
			RemainingCapital:  t.RemainingCapital,
		}
	}
	return WaterfallResponse{
		RunID:                res.RunID.String(),
		CommitmentID:         int64(res.CommitmentID),
		EntityName:           res.EntityName,
		CommitmentAmount:     res.CommitmentAmount,
		TotalContributed:     res.TotalContributed,
		TotalDistribution:    res.TotalDistribution,
		LastDistributionDate: res.LastDistributionDate.String(),
		LPTotal:              res.LPTotal(),
		GPTotal:              res.GPTotal(),
		Config:               toConfigDTO(res.Config, symbol),
		Tiers:                tiers,
		Headers:              fund.TierHeaders(),
		Rows:                 res.Rows(symbol),
	}
}

