package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

func TestEchoPrintsEachGeneratedStatement(t *testing.T) {
	var buf bytes.Buffer
	e := NewEcho(&buf)

	e.Generated(testStmt("select 1"))
	e.Generated(testStmt("select 2"))
	require.NoError(t, e.Close())

	assert.Equal(t, "select 1;\nselect 2;\n", buf.String())
}

func TestEchoIgnoresOutcomes(t *testing.T) {
	var buf bytes.Buffer
	e := NewEcho(&buf)

	e.Executed(testStmt("select 1"), dut.Outcome{})
	e.Error(testStmt("select 1"), &dut.EngineError{Kind: dut.StatementFailure, Err: errors.New("no")})

	assert.Empty(t, buf.String(), "only generation is echoed")
}
