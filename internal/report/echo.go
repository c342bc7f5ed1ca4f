package report

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/querysmith/internal/fuzz"
	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
)

// Echo prints every generated statement, semicolon-terminated, as it is
// built. It is the output path of a dry run, where nothing is executed
// and the statements themselves are the product.
type Echo struct {
	w io.Writer
}

var _ fuzz.Observer = (*Echo)(nil)

// NewEcho builds an echo observer writing to w.
func NewEcho(w io.Writer) *Echo {
	return &Echo{w: w}
}

func (e *Echo) Generated(stmt grammar.Stmt) {
	fmt.Fprintf(e.w, "%s;\n", grammar.SQL(stmt))
}

func (e *Echo) Executed(grammar.Stmt, dut.Outcome) {}

func (e *Echo) Error(grammar.Stmt, *dut.EngineError) {}

func (e *Echo) Close() error { return nil }
