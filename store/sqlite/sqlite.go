/*
Package sqlite provides a SQLite-backed fund.Registry.

PURPOSE:
  Persists LP commitments and their transactions so the HTTP server
  survives restarts. The in-memory registry in fund/store serves the CLI
  and tests. Waterfall results are never stored.

KEY TABLES:
  commitments:  One row per LP (id, entity_name, commitment_amount)
  transactions: Cash flows, ordered by insertion sequence

STORAGE FORMATS:
  - Amounts are decimal strings (decimal.Decimal implements sql.Scanner and
    driver.Valuer), never REAL, so no precision is lost.
  - Dates are YYYY-MM-DD.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.
  ":memory:" databases are pinned to one connection so every query sees the
  same data.

USAGE:
  store, err := sqlite.New("./data/waterfall.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  lp, err := store.GetLP(ctx, 7)

SEE ALSO:
  - fund/store.go: Registry interface
  - fund/store/memory.go: In-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i5m/waterfall/fund"
)

const dateFormat = "2006-01-02"

// Store implements fund.Registry using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ fund.Registry = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commitments (
		id INTEGER PRIMARY KEY,
		entity_name TEXT NOT NULL,
		commitment_amount TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Rows are only deleted by Import (per commitment) and Reset.
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		commitment_id INTEGER NOT NULL REFERENCES commitments(id) ON DELETE CASCADE,
		transaction_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		flow TEXT NOT NULL CHECK (flow IN ('contribution', 'distribution')),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_commitment
		ON transactions(commitment_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REGISTRY (fund.Registry interface)
// =============================================================================

// CreateLP inserts a new LP. A taken ID yields fund.ErrLPExists; the
// check is the insert itself, so concurrent creates cannot both succeed.
func (s *Store) CreateLP(ctx context.Context, lp fund.LP) error {
	if err := lp.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO commitments (id, entity_name, commitment_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, query, int64(lp.ID), lp.EntityName, lp.CommitmentAmount, now, now)
	if err != nil {
		return fmt.Errorf("failed to create commitment %s: %w", lp.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create commitment %s: %w", lp.ID, err)
	}
	if n == 0 {
		return fund.AlreadyExists(lp.ID)
	}
	return nil
}

// SaveLP inserts or renames an LP. Existing transactions are kept.
func (s *Store) SaveLP(ctx context.Context, lp fund.LP) error {
	if err := lp.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return upsertLP(ctx, s.db, lp)
}

func upsertLP(ctx context.Context, db execQuerier, lp fund.LP) error {
	query := `
		INSERT INTO commitments (id, entity_name, commitment_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entity_name = excluded.entity_name,
			commitment_amount = excluded.commitment_amount,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query, int64(lp.ID), lp.EntityName, lp.CommitmentAmount, now, now)
	if err != nil {
		return fmt.Errorf("failed to save commitment %s: %w", lp.ID, err)
	}
	return nil
}

// AppendTransaction adds one cash flow to an existing LP.
func (s *Store) AppendTransaction(ctx context.Context, tx fund.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTx(ctx, s.db, tx)
}

// AppendBatch adds transactions atomically: either all are stored or none.
func (s *Store) AppendBatch(ctx context.Context, txs []fund.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, tx := range txs {
		if err := s.appendTx(ctx, sqlTx, tx); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// Import upserts each LP and replaces its transactions inside one SQL
// transaction, so importing the same files twice stores them once.
func (s *Store) Import(ctx context.Context, lps []fund.LP) error {
	for i := range lps {
		if _, err := lps[i].Rebuild(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, lp := range lps {
		if err := upsertLP(ctx, sqlTx, lp); err != nil {
			return err
		}
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM transactions WHERE commitment_id = ?", int64(lp.ID)); err != nil {
			return fmt.Errorf("failed to clear transactions for commitment %s: %w", lp.ID, err)
		}
		for _, tx := range lp.Transactions() {
			if err := s.appendTx(ctx, sqlTx, tx); err != nil {
				return err
			}
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) appendTx(ctx context.Context, db execQuerier, tx fund.Transaction) error {
	if tx.Amount.IsNegative() {
		return &fund.ValidationError{Field: "transaction_amount", Value: tx.Amount.String(), Reason: "cannot be negative"}
	}
	if tx.Date.IsZero() {
		return &fund.ValidationError{Field: "transaction_date", Reason: "is required"}
	}
	if !tx.Flow.Valid() {
		return fmt.Errorf("flow %q: %w", tx.Flow, fund.ErrInvalidFlow)
	}

	var exists int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM commitments WHERE id = ?", int64(tx.CommitmentID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up commitment %s: %w", tx.CommitmentID, err)
	}
	if exists == 0 {
		return fund.NotFound(tx.CommitmentID)
	}

	query := `
		INSERT INTO transactions (commitment_id, transaction_date, amount, flow, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		int64(tx.CommitmentID),
		tx.Date.ISO(),
		tx.Amount,
		string(tx.Flow),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// GetLP loads an LP and its transactions in insertion order.
func (s *Store) GetLP(ctx context.Context, id fund.CommitmentID) (*fund.LP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lp := fund.LP{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT entity_name, commitment_amount FROM commitments WHERE id = ?",
		int64(id),
	).Scan(&lp.EntityName, &lp.CommitmentAmount)
	if err == sql.ErrNoRows {
		return nil, fund.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load commitment %s: %w", id, err)
	}

	txs, err := s.queryTransactions(ctx,
		"SELECT commitment_id, transaction_date, amount, flow FROM transactions WHERE commitment_id = ? ORDER BY seq ASC",
		int64(id),
	)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if err := lp.AddTransaction(tx); err != nil {
			return nil, fmt.Errorf("corrupt transaction for commitment %s: %w", id, err)
		}
	}
	return &lp, nil
}

// ListLPs returns every LP with its transactions, ordered by ID.
func (s *Store) ListLPs(ctx context.Context) ([]fund.LP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, entity_name, commitment_amount FROM commitments ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}

	var lps []fund.LP
	index := make(map[fund.CommitmentID]int)
	for rows.Next() {
		var (
			lp fund.LP
			id int64
		)
		if err := rows.Scan(&id, &lp.EntityName, &lp.CommitmentAmount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan commitment: %w", err)
		}
		lp.ID = fund.CommitmentID(id)
		index[lp.ID] = len(lps)
		lps = append(lps, lp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	txs, err := s.queryTransactions(ctx,
		"SELECT commitment_id, transaction_date, amount, flow FROM transactions ORDER BY seq ASC",
	)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		i, ok := index[tx.CommitmentID]
		if !ok {
			continue
		}
		if err := lps[i].AddTransaction(tx); err != nil {
			return nil, fmt.Errorf("corrupt transaction for commitment %s: %w", tx.CommitmentID, err)
		}
	}
	return lps, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]fund.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []fund.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (fund.Transaction, error) {
	var (
		tx           fund.Transaction
		commitmentID int64
		date         string
		flow         string
	)

	if err := rows.Scan(&commitmentID, &date, &tx.Amount, &flow); err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t, err := time.Parse(dateFormat, date)
	if err != nil {
		return tx, fmt.Errorf("failed to parse transaction date %q: %w", date, err)
	}
	tx.CommitmentID = fund.CommitmentID(commitmentID)
	tx.Date = fund.DateOf(t)
	tx.Flow = fund.FlowType(flow)
	return tx, nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "commitments"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
