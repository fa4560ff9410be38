// Package store provides Registry implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i5m/waterfall/fund"
)

// =============================================================================
// MEMORY REGISTRY - In-memory implementation (CLI, testing)
// =============================================================================

type Memory struct {
	mu  sync.RWMutex
	lps map[fund.CommitmentID]*fund.LP
}

func NewMemory() *Memory {
	return &Memory{lps: make(map[fund.CommitmentID]*fund.LP)}
}

// CreateLP inserts a new LP. The existence check and the insert happen
// under one lock.
func (m *Memory) CreateLP(_ context.Context, lp fund.LP) error {
	if err := lp.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lps[lp.ID]; ok {
		return fund.AlreadyExists(lp.ID)
	}
	m.lps[lp.ID] = fund.NewLP(lp.ID, lp.EntityName, lp.CommitmentAmount)
	return nil
}

// SaveLP creates the LP or replaces its header, keeping transactions.
func (m *Memory) SaveLP(_ context.Context, lp fund.LP) error {
	if err := lp.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.lps[lp.ID]; ok {
		existing.EntityName = lp.EntityName
		existing.CommitmentAmount = lp.CommitmentAmount
		return nil
	}
	m.lps[lp.ID] = fund.NewLP(lp.ID, lp.EntityName, lp.CommitmentAmount)
	return nil
}

// AppendTransaction adds tx to its LP's contribution or distribution list.
func (m *Memory) AppendTransaction(_ context.Context, tx fund.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lp, ok := m.lps[tx.CommitmentID]
	if !ok {
		return fund.NotFound(tx.CommitmentID)
	}
	return lp.AddTransaction(tx)
}

// AppendBatch stages txs on copies and swaps them in only if all succeed.
func (m *Memory) AppendBatch(_ context.Context, txs []fund.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[fund.CommitmentID]*fund.LP)
	for _, tx := range txs {
		lp, ok := staged[tx.CommitmentID]
		if !ok {
			current, found := m.lps[tx.CommitmentID]
			if !found {
				return fund.NotFound(tx.CommitmentID)
			}
			lp = current.Clone()
			staged[tx.CommitmentID] = lp
		}
		if err := lp.AddTransaction(tx); err != nil {
			return err
		}
	}

	for id, lp := range staged {
		m.lps[id] = lp
	}
	return nil
}

// Import replaces each listed LP wholesale once every one has validated.
func (m *Memory) Import(_ context.Context, lps []fund.LP) error {
	staged := make([]*fund.LP, 0, len(lps))
	for i := range lps {
		lp, err := lps[i].Rebuild()
		if err != nil {
			return err
		}
		staged = append(staged, lp)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, lp := range staged {
		m.lps[lp.ID] = lp
	}
	return nil
}

// GetLP returns a copy of the LP.
func (m *Memory) GetLP(_ context.Context, id fund.CommitmentID) (*fund.LP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lp, ok := m.lps[id]
	if !ok {
		return nil, fund.NotFound(id)
	}
	return lp.Clone(), nil
}

func (m *Memory) ListLPs(_ context.Context) ([]fund.LP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]fund.LP, 0, len(m.lps))
	for _, lp := range m.lps {
		result = append(result, *lp.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Reset removes every LP.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lps = make(map[fund.CommitmentID]*fund.LP)
	return nil
}

var _ fund.Registry = (*Memory)(nil)
