/*
main.go - Interactive waterfall calculator

PURPOSE:
  Loads commitments and transactions from CSV, asks for a commitment ID
  and prints the LP report with its four-tier waterfall.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse flags
  2. Resolve waterfall terms (config file, then environment)
  3. Load CSV files into an in-memory registry
  4. Prompt for a commitment ID (skipped when -id is set)
  5. Run the engine and print the report

COMMAND-LINE FLAGS:
  -example   Use test_commitments.csv / test_transactions.csv
  -data-dir  Directory holding the CSV files (default: ./data)
  -config    Optional YAML or JSON file with waterfall terms
  -id        Commitment ID; skips the prompt
  -format    table (default) or csv

ENVIRONMENT:
  WATERFALL_LOG_LEVEL            zerolog level (default: info)
  WATERFALL_PREFERRED_RETURN_PCT Overrides the config file
  WATERFALL_CATCH_UP_PCT         Overrides the config file
  WATERFALL_CARRIED_INTEREST_PCT Overrides the config file
  WATERFALL_CURRENCY_SYMBOL      Overrides the config file

EXAMPLES:
  ./waterfall -example
  ./waterfall -example -id=2 -format=csv

SEE ALSO:
  - report/report.go: Report layout
  - cmd/server/main.go: HTTP front end over the same engine
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/i5m/waterfall/factory"
	"github.com/i5m/waterfall/fund"
	"github.com/i5m/waterfall/fund/store"
	"github.com/i5m/waterfall/ingest"
	"github.com/i5m/waterfall/logger"
	"github.com/i5m/waterfall/report"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
)

type options struct {
	example    bool
	dataDir    string
	configPath string
	id         string
	format     string
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var opts options
	flag.BoolVar(&opts.example, "example", false, "use the test_ sample CSV files")
	flag.StringVar(&opts.dataDir, "data-dir", "./data", "directory holding the CSV files")
	flag.StringVar(&opts.configPath, "config", "", "YAML or JSON file with waterfall terms")
	flag.StringVar(&opts.id, "id", "", "commitment ID (skips the prompt)")
	flag.StringVar(&opts.format, "format", formatTable, "output format: table or csv")
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("waterfall failed")
	}
}

// run is main without process globals.
func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	if opts.format != formatTable && opts.format != formatCSV {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	settings, err := factory.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	engine, err := fund.NewEngine(settings.Waterfall)
	if err != nil {
		return err
	}

	reg := store.NewMemory()
	if _, err := ingest.LoadFiles(ctx, ingest.Paths(opts.dataDir, opts.example), reg); err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}

	raw := opts.id
	if raw == "" {
		if raw, err = prompt(in, out, "Enter Commitment ID: "); err != nil {
			return err
		}
	}

	id, err := fund.ParseCommitmentID(raw)
	if err != nil {
		return err
	}
	lp, err := reg.GetLP(ctx, id)
	if fund.IsNotFound(err) {
		fmt.Fprintln(out, "No Limited Partner found")
		return nil
	}
	if err != nil {
		return err
	}

	res, err := engine.Run(lp)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Str("run_id", res.RunID.String()).
		Int64("commitment_id", int64(id)).
		Msg("waterfall computed")

	if opts.format == formatCSV {
		return report.WriteCSV(out, res, settings.CurrencySymbol)
	}
	return report.Write(out, res, lp, settings.CurrencySymbol)
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read commitment ID: %w", err)
	}
	return strings.TrimSpace(line), nil
}
