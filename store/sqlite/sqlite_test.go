package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5m/waterfall/fund"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func flow(id fund.CommitmentID, f fund.FlowType, date fund.Date, amount string) fund.Transaction {
	return fund.Transaction{CommitmentID: id, Date: date, Amount: decimal.RequireFromString(amount), Flow: f}
}

func TestStore_RoundTripsLPAndTransactions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	start := fund.NewDate(2020, time.January, 1)

	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(7, "Acme Pension", decimal.RequireFromString("1000000.25"))))
	require.NoError(t, s.AppendTransaction(ctx, flow(7, fund.Contribution, start, "1000000.25")))
	require.NoError(t, s.AppendTransaction(ctx, flow(7, fund.Distribution, start.AddDays(400), "1300000.10")))
	require.NoError(t, s.AppendTransaction(ctx, flow(7, fund.Distribution, start.AddDays(10), "5")))

	lp, err := s.GetLP(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, "Acme Pension", lp.EntityName)
	assert.True(t, lp.CommitmentAmount.Equal(decimal.RequireFromString("1000000.25")))
	require.Len(t, lp.Contributions, 1)
	require.Len(t, lp.Distributions, 2)
	assert.Equal(t, start, lp.Contributions[0].Date)
	assert.Equal(t, start.AddDays(400), lp.Distributions[0].Date, "insertion order kept")
	assert.Equal(t, "1300000.1", lp.Distributions[0].Amount.String())
}

func TestStore_UnknownCommitment(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.AppendTransaction(ctx, flow(1, fund.Contribution, fund.NewDate(2020, 1, 1), "1"))
	assert.True(t, fund.IsNotFound(err))

	_, err = s.GetLP(ctx, 1)
	assert.True(t, fund.IsNotFound(err))
}

func TestStore_SaveLPUpdateKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(1, "Old Name", decimal.NewFromInt(10))))
	require.NoError(t, s.AppendTransaction(ctx, flow(1, fund.Contribution, fund.NewDate(2020, 1, 1), "10")))

	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(1, "New Name", decimal.NewFromInt(20))))

	lp, err := s.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New Name", lp.EntityName)
	assert.Equal(t, "20", lp.CommitmentAmount.String())
	assert.Len(t, lp.Contributions, 1)
}

func TestStore_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(1, "LP", decimal.NewFromInt(10))))

	assert.ErrorIs(t, s.SaveLP(ctx, *fund.NewLP(2, "", decimal.NewFromInt(1))), fund.ErrValidation)
	assert.ErrorIs(t, s.AppendTransaction(ctx, flow(1, fund.Contribution, fund.NewDate(2020, 1, 1), "-1")), fund.ErrValidation)
	assert.ErrorIs(t, s.AppendTransaction(ctx, flow(1, "refund", fund.NewDate(2020, 1, 1), "1")), fund.ErrInvalidFlow)
}

func TestStore_AppendBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(1, "LP", decimal.NewFromInt(10))))
	day := fund.NewDate(2021, 6, 1)

	err := s.AppendBatch(ctx, []fund.Transaction{
		flow(1, fund.Contribution, day, "5"),
		flow(2, fund.Contribution, day, "5"),
	})
	assert.True(t, fund.IsNotFound(err))

	lp, err := s.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lp.Contributions, "partial batch was committed")

	require.NoError(t, s.AppendBatch(ctx, []fund.Transaction{
		flow(1, fund.Contribution, day, "5"),
		flow(1, fund.Distribution, day.AddDays(1), "7"),
	}))
	lp, err = s.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lp.Contributions, 1)
	assert.Len(t, lp.Distributions, 1)
}

func TestStore_ListLPs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, id := range []fund.CommitmentID{3, 1, 2} {
		require.NoError(t, s.SaveLP(ctx, *fund.NewLP(id, "LP "+id.String(), decimal.NewFromInt(100))))
	}
	require.NoError(t, s.AppendTransaction(ctx, flow(2, fund.Distribution, fund.NewDate(2022, 1, 1), "50")))

	lps, err := s.ListLPs(ctx)
	require.NoError(t, err)

	require.Len(t, lps, 3)
	assert.Equal(t, fund.CommitmentID(1), lps[0].ID)
	assert.Equal(t, fund.CommitmentID(3), lps[2].ID)
	assert.Len(t, lps[1].Distributions, 1)
	assert.Empty(t, lps[0].Distributions)
}

func TestStore_CreateLP_Conflict(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: LP 1 already created
	require.NoError(t, s.CreateLP(ctx, *fund.NewLP(1, "First", decimal.NewFromInt(10))))

	// WHEN: the same ID is created again
	err := s.CreateLP(ctx, *fund.NewLP(1, "Second", decimal.NewFromInt(20)))

	// THEN: conflict, original header kept
	require.Error(t, err)
	assert.ErrorIs(t, err, fund.ErrLPExists)
	assert.True(t, fund.IsConflict(err))

	lp, err := s.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "First", lp.EntityName)
}

func importable(id fund.CommitmentID, start fund.Date) fund.LP {
	lp := fund.NewLP(id, "Imported", decimal.NewFromInt(1_000_000))
	_ = lp.AddTransaction(flow(id, fund.Contribution, start, "1000000"))
	_ = lp.AddTransaction(flow(id, fund.Distribution, start.AddDays(400), "1300000"))
	return *lp
}

func TestStore_Import_TwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	start := fund.NewDate(2020, time.January, 1)

	// GIVEN: an LP outside the import
	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(2, "Untouched", decimal.NewFromInt(5))))
	require.NoError(t, s.AppendTransaction(ctx, flow(2, fund.Contribution, start, "5")))

	// WHEN: the same LP is imported twice
	batch := []fund.LP{importable(1, start)}
	require.NoError(t, s.Import(ctx, batch))
	require.NoError(t, s.Import(ctx, batch))

	// THEN: its transactions are stored once
	lp, err := s.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lp.Contributions, 1)
	assert.Len(t, lp.Distributions, 1)
	assert.Equal(t, "1000000", lp.TotalContributed().String())
	assert.Equal(t, "1300000", lp.TotalDistributed().String())

	other, err := s.GetLP(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "5", other.TotalContributed().String())
}

func TestStore_Import_RollsBackOnInvalid(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	start := fund.NewDate(2020, time.January, 1)

	// GIVEN: a valid LP followed by one with a negative amount
	bad := fund.LP{ID: 2, EntityName: "Bad", CommitmentAmount: decimal.NewFromInt(10)}
	bad.Contributions = []fund.Transaction{flow(2, fund.Contribution, start, "-1")}

	// WHEN
	err := s.Import(ctx, []fund.LP{importable(1, start), bad})

	// THEN: nothing is stored
	require.Error(t, err)
	assert.ErrorIs(t, err, fund.ErrValidation)

	lps, err := s.ListLPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, lps)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(1, "LP", decimal.NewFromInt(10))))
	require.NoError(t, s.AppendTransaction(ctx, flow(1, fund.Contribution, fund.NewDate(2020, 1, 1), "10")))

	require.NoError(t, s.Reset(ctx))

	lps, err := s.ListLPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, lps)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "waterfall.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveLP(ctx, *fund.NewLP(1, "Durable LP", decimal.NewFromInt(10))))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	lp, err := s.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Durable LP", lp.EntityName)
}
