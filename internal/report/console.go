// Package report contains the bundled observers: console progress and
// summary, per-statement AST dumps, and the persisted error log.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/querysmith/internal/fuzz"
	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
)

// Console counts outcomes and, in verbose mode, emits one progress
// glyph per statement: '.' executed, 'e' statement failure, 'B' broken
// session. Close prints the summary table.
type Console struct {
	w       io.Writer
	verbose bool

	generated  uint64
	executed   uint64
	failures   uint64
	broken     uint64
	column     int
	started    time.Time
	slowest    time.Duration
	slowestSQL string
}

var _ fuzz.Observer = (*Console)(nil)

// NewConsole builds a console observer writing to w.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose, started: time.Now()}
}

// Generated counts a freshly built statement.
func (c *Console) Generated(grammar.Stmt) {
	c.generated++
}

// Executed counts a success and tracks the slowest statement seen.
func (c *Console) Executed(stmt grammar.Stmt, out dut.Outcome) {
	c.executed++
	if out.Elapsed > c.slowest {
		c.slowest = out.Elapsed
		c.slowestSQL = grammar.SQL(stmt)
	}
	c.glyph('.')
}

// Error counts a classified failure.
func (c *Console) Error(_ grammar.Stmt, engErr *dut.EngineError) {
	if engErr.Kind == dut.BrokenSession {
		c.broken++
		c.glyph('B')
		return
	}
	c.failures++
	c.glyph('e')
}

// Close renders the final report.
func (c *Console) Close() error {
	if c.verbose && c.column > 0 {
		fmt.Fprintln(c.w)
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"statements generated", c.generated},
		{"statements executed", c.executed},
		{"statement failures", c.failures},
		{"broken sessions", c.broken},
		{"elapsed", time.Since(c.started).Round(time.Millisecond)},
	})
	if c.slowestSQL != "" {
		t.AppendRow(table.Row{"slowest statement", fmt.Sprintf("%s (%s)",
			truncate(c.slowestSQL, 60), c.slowest.Round(time.Millisecond))})
	}
	t.Render()
	return nil
}

func (c *Console) glyph(g byte) {
	if !c.verbose {
		return
	}
	fmt.Fprintf(c.w, "%c", g)
	c.column++
	if c.column >= 80 {
		fmt.Fprintln(c.w)
		c.column = 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
