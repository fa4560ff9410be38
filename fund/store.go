/*
store.go - Registry interface for LP lookup

PURPOSE:
  The registry holds LP commitments and their transactions between ingestion
  and waterfall runs. It is a lookup store: LPs are added and transactions
  appended, nothing is deleted during a run.

IMPLEMENTATIONS:
  - fund/store/memory.go: In-memory, used by the CLI and tests
  - store/sqlite/sqlite.go: SQLite, used by the HTTP server

WRITE PATHS:
  - CreateLP:          Insert only; ErrLPExists when the ID is taken
  - SaveLP:            Upsert of the header; transactions kept
  - AppendTransaction: One cash flow
  - AppendBatch:       Many cash flows, all or none
  - Import:            Whole LPs replacing what is stored under their IDs,
                       all or none. Re-importing the same files is a no-op.

ORDERING:
  Transactions come back in the order they were appended. The engine does
  not rely on that order (see LP.LastDistributionDate).
*/
package fund

import "context"

// Registry stores LPs and their transactions.
type Registry interface {
	// CreateLP inserts a new LP header. Returns ErrLPExists if the ID is taken.
	CreateLP(ctx context.Context, lp LP) error

	// SaveLP creates or updates the LP header. Existing transactions are kept.
	SaveLP(ctx context.Context, lp LP) error

	// AppendTransaction adds tx to its LP. Returns ErrLPNotFound if the
	// commitment is unknown.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// AppendBatch adds every tx or none of them.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Import upserts each LP header and replaces that LP's transactions with
	// the ones carried by lp. LPs not listed are untouched. All or nothing.
	Import(ctx context.Context, lps []LP) error

	// GetLP returns the LP with all transactions, or ErrLPNotFound.
	GetLP(ctx context.Context, id CommitmentID) (*LP, error)

	// ListLPs returns all LPs ordered by ID.
	ListLPs(ctx context.Context) ([]LP, error)
}
