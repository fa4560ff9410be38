package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5m/waterfall/fund"
	"github.com/i5m/waterfall/fund/store"
	"github.com/i5m/waterfall/logger"
)

const commitmentsCSV = `id,entity_name,commitment_amount
1,Alpha Pension,"$1,000,000.00"
2,Beta Endowment,500000
`

func loadedRegistry(t *testing.T) *store.Memory {
	t.Helper()
	reg := store.NewMemory()
	n, err := LoadCommitments(context.Background(), strings.NewReader(commitmentsCSV), reg)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	return reg
}

func TestPaths(t *testing.T) {
	prod := Paths("data", false)
	assert.Equal(t, filepath.Join("data", "commitments.csv"), prod.Commitments)
	assert.Equal(t, filepath.Join("data", "transactions.csv"), prod.Transactions)

	example := Paths("data", true)
	assert.Equal(t, filepath.Join("data", "test_commitments.csv"), example.Commitments)
	assert.Equal(t, filepath.Join("data", "test_transactions.csv"), example.Transactions)
}

func TestLoadCommitments(t *testing.T) {
	reg := loadedRegistry(t)

	lp, err := reg.GetLP(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Pension", lp.EntityName)
	assert.Equal(t, "1000000", lp.CommitmentAmount.String())
}

func TestLoadTransactions_ColumnOrderAndSkips(t *testing.T) {
	// GIVEN: Columns in a different order and one row for an unknown commitment
	reg := loadedRegistry(t)
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))
	csv := `transaction_date,transaction_amount,contribution_or_distribution,commitment_id
01/01/2020,"$1,000,000.00",contribution,1
02/04/2021,"$1,300,000.00",Distribution,1
03/01/2021,$10.00,distribution,99
`

	// WHEN: Loading
	loaded, skipped, err := LoadTransactions(ctx, strings.NewReader(csv), reg)

	// THEN: Known rows land on the LP, the unknown one is counted and logged
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 1, skipped)
	assert.Contains(t, buf.String(), "unknown commitment")
	assert.Contains(t, buf.String(), `"commitment_id":99`)

	lp, err := reg.GetLP(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lp.Contributions, 1)
	require.Len(t, lp.Distributions, 1)
	assert.Equal(t, "02/04/2021", lp.Distributions[0].Date.String())
	assert.Equal(t, "1300000", lp.Distributions[0].Amount.String())
}

func TestLoadTransactions_RowErrors(t *testing.T) {
	header := "commitment_id,transaction_date,transaction_amount,contribution_or_distribution\n"
	cases := []struct {
		name   string
		row    string
		column string
		target error
	}{
		{"bad id", "x,01/01/2020,$1,contribution\n", "commitment_id", fund.ErrValidation},
		{"bad date", "1,31/01/2020,$1,contribution\n", "transaction_date", fund.ErrInvalidDate},
		{"bad amount", "1,01/01/2020,(5.00),contribution\n", "transaction_amount", fund.ErrInvalidAmount},
		{"bad flow", "1,01/01/2020,$1,refund\n", "contribution_or_distribution", fund.ErrInvalidFlow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := loadedRegistry(t)
			_, _, err := LoadTransactions(context.Background(), strings.NewReader(header+"\n"+tc.row), reg)

			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 3, rowErr.Line, "blank line 2 is skipped but counted")
			assert.Equal(t, tc.column, rowErr.Column)
			assert.ErrorIs(t, err, tc.target)
		})
	}
}

func TestLoadCommitments_MissingColumn(t *testing.T) {
	_, err := LoadCommitments(context.Background(), strings.NewReader("id,entity_name\n1,Alpha\n"), store.NewMemory())

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "commitment_amount", rowErr.Column)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadCommitments_EmptyFile(t *testing.T) {
	_, err := LoadCommitments(context.Background(), strings.NewReader(""), store.NewMemory())
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadCommitments_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadCommitments(ctx, strings.NewReader(commitmentsCSV), store.NewMemory())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFiles_SampleData(t *testing.T) {
	// GIVEN: The sample files shipped with the repo
	reg := store.NewMemory()
	ctx := logger.WithContext(context.Background(), zerolog.Nop())

	// WHEN: Loading the example set
	stats, err := LoadFiles(ctx, Paths(filepath.Join("..", "data"), true), reg)

	// THEN: Everything loads except the row for commitment 4
	require.NoError(t, err)
	assert.Equal(t, Stats{Commitments: 3, Transactions: 7, Skipped: 1}, stats)

	lp, err := reg.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1000000", lp.TotalContributed().String())
	assert.Equal(t, "1300000", lp.TotalDistributed().String())
}

func TestLoadFiles_RowErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	files := Paths(dir, false)
	require.NoError(t, os.WriteFile(files.Commitments, []byte("id,entity_name,commitment_amount\n1,,100\n"), 0o600))
	require.NoError(t, os.WriteFile(files.Transactions, []byte(""), 0o600))

	_, err := LoadFiles(context.Background(), files, store.NewMemory())

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, files.Commitments, rowErr.File)
	assert.Equal(t, "entity_name", rowErr.Column)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadFiles_MissingFile(t *testing.T) {
	_, err := LoadFiles(context.Background(), Paths(t.TempDir(), false), store.NewMemory())
	assert.Error(t, err)
}

func TestLoadFiles_TwiceIsIdempotent(t *testing.T) {
	// GIVEN: The sample files loaded once
	reg := store.NewMemory()
	ctx := context.Background()
	files := Paths(filepath.Join("..", "data"), true)
	first, err := LoadFiles(ctx, files, reg)
	require.NoError(t, err)

	// WHEN: Loading them again
	second, err := LoadFiles(ctx, files, reg)

	// THEN: Same stats, and no transaction is stored twice
	require.NoError(t, err)
	assert.Equal(t, first, second)

	lp, err := reg.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1000000", lp.TotalContributed().String())
	assert.Equal(t, "1300000", lp.TotalDistributed().String())
}

func TestLoadTransactions_BadRowStoresNothing(t *testing.T) {
	// GIVEN: Two good rows followed by a bad date on line 4
	reg := loadedRegistry(t)
	csv := `commitment_id,transaction_date,transaction_amount,contribution_or_distribution
1,01/01/2020,$100,contribution
2,01/01/2020,$50,contribution
1,13/45/2020,$10,distribution
`

	// WHEN
	_, _, err := LoadTransactions(context.Background(), strings.NewReader(csv), reg)

	// THEN: The error names line 4 and the good rows were not appended
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 4, rowErr.Line)

	lps, err := reg.ListLPs(context.Background())
	require.NoError(t, err)
	for _, lp := range lps {
		assert.Empty(t, lp.Contributions, "LP %s", lp.ID)
		assert.Empty(t, lp.Distributions, "LP %s", lp.ID)
	}
}

func TestLoadFiles_BadRowStoresNothing(t *testing.T) {
	dir := t.TempDir()
	files := Paths(dir, false)
	require.NoError(t, os.WriteFile(files.Commitments, []byte(commitmentsCSV), 0o600))
	require.NoError(t, os.WriteFile(files.Transactions, []byte(
		"commitment_id,transaction_date,transaction_amount,contribution_or_distribution\n"+
			"1,01/01/2020,$100,contribution\n"+
			"2,01/01/2020,$50,contribution\n"+
			"1,13/45/2020,$10,distribution\n"), 0o600))
	reg := store.NewMemory()

	_, err := LoadFiles(context.Background(), files, reg)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, files.Transactions, rowErr.File)
	assert.Equal(t, 4, rowErr.Line)

	lps, err := reg.ListLPs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lps, "commitments are not stored when transactions fail")
}
