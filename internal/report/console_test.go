package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
	"github.com/leapstack-labs/querysmith/pkg/schema"
)

func testStmt(sql string) grammar.Stmt {
	return &grammar.Literal{T: schema.Numeric, Text: sql}
}

func TestConsoleSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	for i := 0; i < 3; i++ {
		stmt := testStmt("select 1")
		c.Generated(stmt)
		c.Executed(stmt, dut.Outcome{Elapsed: time.Duration(i) * time.Millisecond})
	}
	c.Generated(testStmt("select broken"))
	c.Error(testStmt("select broken"), &dut.EngineError{Kind: dut.StatementFailure, Err: errors.New("no")})
	c.Generated(testStmt("select gone"))
	c.Error(testStmt("select gone"), &dut.EngineError{Kind: dut.BrokenSession, Err: errors.New("gone")})

	require.NoError(t, c.Close())

	out := buf.String()
	assert.Contains(t, out, "statements generated")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "statements executed")
	assert.Contains(t, out, "statement failures")
	assert.Contains(t, out, "broken sessions")
	assert.Contains(t, out, "slowest statement")
}

func TestConsoleQuietModeEmitsNoGlyphs(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.Executed(testStmt("select 1"), dut.Outcome{})
	assert.Empty(t, buf.String(), "glyphs only appear in verbose mode")
}

func TestConsoleVerboseGlyphs(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.Executed(testStmt("select 1"), dut.Outcome{})
	c.Error(testStmt("x"), &dut.EngineError{Kind: dut.StatementFailure, Err: errors.New("no")})
	c.Error(testStmt("x"), &dut.EngineError{Kind: dut.BrokenSession, Err: errors.New("gone")})

	assert.Equal(t, ".eB", buf.String())
}

func TestConsoleVerboseWrapsAtEighty(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	for i := 0; i < 85; i++ {
		c.Executed(testStmt("select 1"), dut.Outcome{})
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 80)
	assert.Len(t, lines[1], 5)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
