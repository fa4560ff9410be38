package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/i5m/waterfall/fund"
)

var divider = strings.Repeat("=", 40)

// Write prints the full console report for one LP: header, contributions,
// distributions, last distribution date and the tier table.
func Write(w io.Writer, res *fund.Result, lp *fund.LP, symbol string) error {
	p := &printer{w: w}

	p.section()
	p.line("Name: %s", lp.EntityName)
	p.line("Commitment Amount: %s", fund.FormatCurrency(symbol, lp.CommitmentAmount))
	p.section()

	p.line("Contributions:")
	p.table(fund.TransactionHeaders(), fund.TransactionRows(symbol, lp.Contributions))
	p.section()

	p.line("Total Distribution: %s", fund.FormatCurrency(symbol, res.TotalDistribution))
	p.line("Distributions:")
	p.table(fund.TransactionHeaders(), fund.TransactionRows(symbol, lp.Distributions))
	p.section()

	p.line("Last distribution was on: %s", res.LastDistributionDate)
	p.section()

	p.line("The following table represents the calculations for final distribution")
	p.table(fund.TierHeaders(), res.Rows(symbol))
	p.line("LP Total: %s  GP Total: %s",
		fund.FormatCurrency(symbol, res.LPTotal()),
		fund.FormatCurrency(symbol, res.GPTotal()))

	return p.err
}

// WriteCSV writes the tier table with a header row.
func WriteCSV(w io.Writer, res *fund.Result, symbol string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fund.TierHeaders()); err != nil {
		return err
	}
	if err := cw.WriteAll(res.Rows(symbol)); err != nil {
		return fmt.Errorf("failed to write tier rows: %w", err)
	}
	return nil
}

// printer keeps the first write error so Write can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section() {
	p.line("\n%s\n", divider)
}

func (p *printer) table(headers []string, rows [][]string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, Table{Headers: headers, Rows: rows}.Render())
}
