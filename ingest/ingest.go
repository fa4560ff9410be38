/*
Package ingest loads commitments and transactions from CSV into a registry.

FILE FORMATS (header row required, column order free):
  commitments.csv:  id, entity_name, commitment_amount
  transactions.csv: commitment_id, transaction_date, transaction_amount,
                    contribution_or_distribution

  Amounts accept "$" and "," ("$1,000,000.00"). Dates are MM/DD/YYYY.

BEHAVIOR:
  - Every file is parsed in full before the registry is touched. A malformed
    row stops the load with a *RowError naming line and column, and nothing
    from that load is stored.
  - LoadFiles hands the parsed LPs to Registry.Import, which replaces each
    listed LP's transactions. Loading the same files twice leaves the
    registry as it was after the first load.
  - A transaction for a commitment that is not known is skipped, counted in
    Stats and logged at warn level; the rest of the file still loads. For
    LoadFiles "known" means present in the commitments file.

SEE ALSO:
  - fund/parse.go: Currency and flow parsing
  - fund/store.go: Registry interface
*/
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/i5m/waterfall/fund"
	"github.com/i5m/waterfall/logger"
)

// =============================================================================
// FILE LOCATIONS
// =============================================================================

const (
	CommitmentsFile  = "commitments.csv"
	TransactionsFile = "transactions.csv"
	examplePrefix    = "test_"
)

// Files locates the two input files.
type Files struct {
	Commitments  string
	Transactions string
}

// Paths returns the input files under dataDir. With example set the
// test_-prefixed sample files are used instead.
func Paths(dataDir string, example bool) Files {
	prefix := ""
	if example {
		prefix = examplePrefix
	}
	return Files{
		Commitments:  filepath.Join(dataDir, prefix+CommitmentsFile),
		Transactions: filepath.Join(dataDir, prefix+TransactionsFile),
	}
}

// =============================================================================
// ERRORS AND STATS
// =============================================================================

// RowError reports a rejected CSV row. Line is 1-based and counts the header.
type RowError struct {
	File   string
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	if e.Column != "" {
		loc += " column " + e.Column
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// Stats counts what a load did.
type Stats struct {
	Commitments  int
	Transactions int
	Skipped      int // transactions whose commitment was unknown
}

// =============================================================================
// LOADERS
// =============================================================================

var (
	commitmentColumns  = []string{"id", "entity_name", "commitment_amount"}
	transactionColumns = []string{"commitment_id", "transaction_date", "transaction_amount", "contribution_or_distribution"}
)

// LoadCommitments saves one LP per row and returns how many were saved.
// Existing transactions of those LPs are kept.
func LoadCommitments(ctx context.Context, r io.Reader, reg fund.Registry) (int, error) {
	lps, err := parseCommitments(ctx, r)
	if err != nil {
		return 0, err
	}

	for i, lp := range lps {
		if err := reg.SaveLP(ctx, lp); err != nil {
			return i, fmt.Errorf("failed to save commitment %s: %w", lp.ID, err)
		}
	}
	return len(lps), nil
}

// LoadTransactions appends every row to its LP in one batch. Rows naming an
// unknown commitment are skipped and counted.
func LoadTransactions(ctx context.Context, r io.Reader, reg fund.Registry) (loaded, skipped int, err error) {
	log := logger.FromContext(ctx)

	rows, err := parseTransactions(ctx, r)
	if err != nil {
		return 0, 0, err
	}

	known := make(map[fund.CommitmentID]bool)
	batch := make([]fund.Transaction, 0, len(rows))
	for _, row := range rows {
		id := row.tx.CommitmentID
		ok, seen := known[id]
		if !seen {
			_, err := reg.GetLP(ctx, id)
			switch {
			case err == nil:
				ok = true
			case fund.IsNotFound(err):
				ok = false
			default:
				return 0, 0, err
			}
			known[id] = ok
		}
		if !ok {
			skipped++
			warnUnknown(log, row)
			continue
		}
		batch = append(batch, row.tx)
	}

	if err := reg.AppendBatch(ctx, batch); err != nil {
		return 0, 0, err
	}
	return len(batch), skipped, nil
}

// LoadFiles parses both files and imports the result in one step.
// Transactions are attached to the LPs of the commitments file.
func LoadFiles(ctx context.Context, files Files, reg fund.Registry) (Stats, error) {
	log := logger.FromContext(ctx)
	var stats Stats

	lps, err := readFile(files.Commitments, func(f io.Reader) ([]fund.LP, error) {
		return parseCommitments(ctx, f)
	})
	if err != nil {
		return stats, err
	}
	rows, err := readFile(files.Transactions, func(f io.Reader) ([]txRow, error) {
		return parseTransactions(ctx, f)
	})
	if err != nil {
		return stats, err
	}

	index := make(map[fund.CommitmentID]int, len(lps))
	for i, lp := range lps {
		index[lp.ID] = i
	}
	for _, row := range rows {
		i, ok := index[row.tx.CommitmentID]
		if !ok {
			stats.Skipped++
			warnUnknown(log, row)
			continue
		}
		if err := lps[i].AddTransaction(row.tx); err != nil {
			return Stats{}, &RowError{File: files.Transactions, Line: row.line, Err: err}
		}
		stats.Transactions++
	}

	if err := reg.Import(ctx, lps); err != nil {
		return Stats{}, fmt.Errorf("failed to import: %w", err)
	}
	stats.Commitments = len(lps)

	log.Info().
		Int("commitments", stats.Commitments).
		Int("transactions", stats.Transactions).
		Int("skipped", stats.Skipped).
		Msg("data loaded")
	return stats, nil
}

func warnUnknown(log zerolog.Logger, row txRow) {
	log.Warn().
		Int("line", row.line).
		Int64("commitment_id", int64(row.tx.CommitmentID)).
		Msg("skipping transaction for unknown commitment")
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	v, err := parse(f)
	var rowErr *RowError
	if errors.As(err, &rowErr) && rowErr.File == "" {
		rowErr.File = path
	}
	return v, err
}

// =============================================================================
// PARSERS
// =============================================================================

// parseCommitments returns one LP per distinct ID in file order. A repeated
// ID replaces the earlier row's header.
func parseCommitments(ctx context.Context, r io.Reader) ([]fund.LP, error) {
	rows, err := newTable(r, commitmentColumns)
	if err != nil {
		return nil, err
	}

	var lps []fund.LP
	index := make(map[fund.CommitmentID]int)
	for {
		row, err := rows.next(ctx)
		if err == io.EOF {
			return lps, nil
		}
		if err != nil {
			return nil, err
		}

		id, err := fund.ParseCommitmentID(row.get("id"))
		if err != nil {
			return nil, row.fail("id", err)
		}
		name := row.get("entity_name")
		if name == "" {
			return nil, row.fail("entity_name", &fund.ValidationError{Field: "entity_name", Reason: "cannot be empty"})
		}
		amount, err := fund.ParseCurrency(row.get("commitment_amount"))
		if err != nil {
			return nil, row.fail("commitment_amount", err)
		}

		lp := *fund.NewLP(id, name, amount)
		if i, ok := index[id]; ok {
			lps[i] = lp
			continue
		}
		index[id] = len(lps)
		lps = append(lps, lp)
	}
}

// txRow keeps the source line for warnings and errors raised after parsing.
type txRow struct {
	line int
	tx   fund.Transaction
}

func parseTransactions(ctx context.Context, r io.Reader) ([]txRow, error) {
	rows, err := newTable(r, transactionColumns)
	if err != nil {
		return nil, err
	}

	var out []txRow
	for {
		row, err := rows.next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		tx, err := parseTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, txRow{line: row.line, tx: tx})
	}
}

func parseTransaction(row record) (fund.Transaction, error) {
	id, err := fund.ParseCommitmentID(row.get("commitment_id"))
	if err != nil {
		return fund.Transaction{}, row.fail("commitment_id", err)
	}
	date, err := fund.ParseDate(row.get("transaction_date"))
	if err != nil {
		return fund.Transaction{}, row.fail("transaction_date", err)
	}
	amount, err := fund.ParseCurrency(row.get("transaction_amount"))
	if err != nil {
		return fund.Transaction{}, row.fail("transaction_amount", err)
	}
	flow, err := fund.ParseFlowType(row.get("contribution_or_distribution"))
	if err != nil {
		return fund.Transaction{}, row.fail("contribution_or_distribution", err)
	}
	return fund.Transaction{CommitmentID: id, Date: date, Amount: amount, Flow: flow}, nil
}

// =============================================================================
// HEADER-KEYED CSV
// =============================================================================

type table struct {
	r       *csv.Reader
	columns map[string]int
}

type record struct {
	line    int
	fields  []string
	columns map[string]int
}

func newTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &RowError{Line: 1, Err: fmt.Errorf("%w: empty file", ErrMissingColumn)}
	}
	if err != nil {
		return nil, &RowError{Line: 1, Err: err}
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, &RowError{Line: 1, Column: name, Err: ErrMissingColumn}
		}
	}
	return &table{r: cr, columns: columns}, nil
}

// next returns the next non-blank record or io.EOF.
func (t *table) next(ctx context.Context) (record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return record{}, err
		}
		fields, err := t.r.Read()
		if err == io.EOF {
			return record{}, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return record{}, &RowError{Line: perr.Line, Err: err}
			}
			return record{}, &RowError{Err: err}
		}
		if blank(fields) {
			continue
		}
		line, _ := t.r.FieldPos(0)
		return record{line: line, fields: fields, columns: t.columns}, nil
	}
}

func (r record) get(column string) string {
	i := r.columns[column]
	if i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) fail(column string, err error) error {
	return &RowError{Line: r.line, Column: column, Err: err}
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
