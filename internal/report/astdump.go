package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/querysmith/internal/fuzz"
	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
)

// ASTDump writes every generated statement's production tree as one
// YAML document, for offline inspection of what the grammar produced.
type ASTDump struct {
	w   io.WriteCloser
	enc *yaml.Encoder
	n   uint64
}

var _ fuzz.Observer = (*ASTDump)(nil)

// NewASTDump creates (truncating) the dump file at path.
func NewASTDump(path string) (*ASTDump, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create AST dump file: %w", err)
	}
	return &ASTDump{w: f, enc: yaml.NewEncoder(f)}, nil
}

type dumpDoc struct {
	Seq  uint64   `yaml:"seq"`
	SQL  string   `yaml:"sql"`
	Tree dumpNode `yaml:"tree"`
}

type dumpNode struct {
	Kind     string     `yaml:"kind"`
	Depth    int        `yaml:"depth"`
	Children []dumpNode `yaml:"children,omitempty"`
}

// Generated encodes one statement tree.
func (d *ASTDump) Generated(stmt grammar.Stmt) {
	d.n++
	_ = d.enc.Encode(dumpDoc{
		Seq:  d.n,
		SQL:  grammar.SQL(stmt),
		Tree: describe(stmt),
	})
}

// Executed is a no-op: the dump records what was generated.
func (d *ASTDump) Executed(grammar.Stmt, dut.Outcome) {}

// Error is a no-op: failures are the error log's concern.
func (d *ASTDump) Error(grammar.Stmt, *dut.EngineError) {}

// Close flushes the encoder and the file.
func (d *ASTDump) Close() error {
	encErr := d.enc.Close()
	if err := d.w.Close(); err != nil {
		return err
	}
	return encErr
}

func describe(p grammar.Prod) dumpNode {
	n := dumpNode{Kind: kindName(p), Depth: p.Depth()}
	for _, c := range p.Children() {
		n.Children = append(n.Children, describe(c))
	}
	return n
}

func kindName(p grammar.Prod) string {
	name := fmt.Sprintf("%T", p)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
