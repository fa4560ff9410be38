package fund

// TierHeaders are the column titles for Result.Rows.
func TierHeaders() []string {
	return []string{
		"Tier Name",
		"Starting Tier Capital",
		"LP Allocation",
		"GP Allocation",
		"Total Tier Distribution",
		"Remaining Capital for Next Tier",
	}
}

// Row formats one tier for display. Values are rendered, never recomputed.
func (t TierResult) Row(symbol string) []string {
	return []string{
		t.Tier.String(),
		FormatCurrency(symbol, t.StartingCapital),
		FormatCurrency(symbol, t.LPAllocation),
		FormatCurrency(symbol, t.GPAllocation),
		FormatCurrency(symbol, t.TotalDistribution),
		FormatCurrency(symbol, t.RemainingCapital),
	}
}

// Rows returns one display row per tier in allocation order.
func (r *Result) Rows(symbol string) [][]string {
	rows := make([][]string, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		rows = append(rows, t.Row(symbol))
	}
	return rows
}

// TransactionHeaders are the column titles for TransactionRows.
func TransactionHeaders() []string {
	return []string{"Transaction Date", "Transaction Amount"}
}

// TransactionRows formats a contribution or distribution list for display.
func TransactionRows(symbol string, txs []Transaction) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{tx.Date.String(), FormatCurrency(symbol, tx.Amount)})
	}
	return rows
}
