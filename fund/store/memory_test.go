package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5m/waterfall/fund"
	"github.com/i5m/waterfall/fund/store"
)

func tx(id fund.CommitmentID, flow fund.FlowType, amount int64) fund.Transaction {
	return fund.Transaction{
		CommitmentID: id,
		Date:         fund.NewDate(2021, time.March, 1),
		Amount:       decimal.NewFromInt(amount),
		Flow:         flow,
	}
}

func TestMemory_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(1, "Alpha", decimal.NewFromInt(500))))
	require.NoError(t, m.AppendTransaction(ctx, tx(1, fund.Contribution, 300)))
	require.NoError(t, m.AppendTransaction(ctx, tx(1, fund.Distribution, 100)))

	lp, err := m.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", lp.EntityName)
	assert.Len(t, lp.Contributions, 1)
	assert.Len(t, lp.Distributions, 1)
}

func TestMemory_UnknownCommitment(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	err := m.AppendTransaction(ctx, tx(9, fund.Contribution, 1))
	assert.True(t, fund.IsNotFound(err))

	_, err = m.GetLP(ctx, 9)
	assert.True(t, fund.IsNotFound(err))
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(1, "Alpha", decimal.NewFromInt(500))))

	lp, err := m.GetLP(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, lp.AddTransaction(tx(1, fund.Contribution, 5)))

	again, err := m.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again.Contributions, "caller mutation leaked into registry")
}

func TestMemory_SaveLP_UpdateKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(1, "Alpha", decimal.NewFromInt(500))))
	require.NoError(t, m.AppendTransaction(ctx, tx(1, fund.Contribution, 5)))

	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(1, "Alpha Renamed", decimal.NewFromInt(600))))

	lp, err := m.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Renamed", lp.EntityName)
	assert.Len(t, lp.Contributions, 1)
}

func TestMemory_SaveLP_Invalid(t *testing.T) {
	err := store.NewMemory().SaveLP(context.Background(), *fund.NewLP(1, "", decimal.NewFromInt(5)))
	assert.ErrorIs(t, err, fund.ErrValidation)
}

func TestMemory_ListSortedByID(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	for _, id := range []fund.CommitmentID{3, 1, 2} {
		require.NoError(t, m.SaveLP(ctx, *fund.NewLP(id, "LP", decimal.NewFromInt(1))))
	}

	lps, err := m.ListLPs(ctx)
	require.NoError(t, err)
	require.Len(t, lps, 3)
	assert.Equal(t, []fund.CommitmentID{1, 2, 3}, []fund.CommitmentID{lps[0].ID, lps[1].ID, lps[2].ID})
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(1, "Alpha", decimal.NewFromInt(1))))

	require.NoError(t, m.Reset(ctx))

	lps, err := m.ListLPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, lps)
}

func TestMemory_CreateLP_Conflict(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.CreateLP(ctx, *fund.NewLP(1, "Alpha", decimal.NewFromInt(500))))

	err := m.CreateLP(ctx, *fund.NewLP(1, "Intruder", decimal.NewFromInt(1)))

	assert.ErrorIs(t, err, fund.ErrLPExists)
	lp, err := m.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", lp.EntityName, "existing LP was overwritten")
}

func TestMemory_CreateLP_ConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	const writers = 16
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.CreateLP(ctx, *fund.NewLP(1, "Alpha", decimal.NewFromInt(500)))
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, fund.ErrLPExists)
	}
	assert.Equal(t, 1, created)
}

func TestMemory_AppendBatch_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(1, "Alpha", decimal.NewFromInt(500))))

	err := m.AppendBatch(ctx, []fund.Transaction{
		tx(1, fund.Contribution, 300),
		tx(2, fund.Contribution, 300),
	})
	assert.True(t, fund.IsNotFound(err))

	lp, err := m.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lp.Contributions, "partial batch was applied")

	require.NoError(t, m.AppendBatch(ctx, []fund.Transaction{
		tx(1, fund.Contribution, 300),
		tx(1, fund.Distribution, 400),
	}))
	lp, err = m.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lp.Contributions, 1)
	assert.Len(t, lp.Distributions, 1)
}

func importable(id fund.CommitmentID) fund.LP {
	lp := fund.NewLP(id, "Alpha", decimal.NewFromInt(500))
	lp.Contributions = []fund.Transaction{tx(id, fund.Contribution, 300)}
	lp.Distributions = []fund.Transaction{tx(id, fund.Distribution, 400)}
	return *lp
}

func TestMemory_Import_ReplacesTransactions(t *testing.T) {
	// GIVEN: An LP that already holds a stray contribution
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(1, "Old", decimal.NewFromInt(1))))
	require.NoError(t, m.AppendTransaction(ctx, tx(1, fund.Contribution, 9)))
	require.NoError(t, m.SaveLP(ctx, *fund.NewLP(2, "Untouched", decimal.NewFromInt(1))))

	// WHEN: Importing the same LP twice
	require.NoError(t, m.Import(ctx, []fund.LP{importable(1)}))
	require.NoError(t, m.Import(ctx, []fund.LP{importable(1)}))

	// THEN: Only the imported flows remain, once
	lp, err := m.GetLP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", lp.EntityName)
	assert.Equal(t, "300", lp.TotalContributed().String())
	assert.Equal(t, "400", lp.TotalDistributed().String())

	_, err = m.GetLP(ctx, 2)
	assert.NoError(t, err, "unlisted LP was removed")
}

func TestMemory_Import_InvalidLeavesRegistryUnchanged(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	bad := importable(2)
	bad.Distributions[0].Amount = decimal.NewFromInt(-1)

	err := m.Import(ctx, []fund.LP{importable(1), bad})

	assert.ErrorIs(t, err, fund.ErrValidation)
	lps, err := m.ListLPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, lps)
}
