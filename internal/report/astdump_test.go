package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/querysmith/pkg/grammar"
	"github.com/leapstack-labs/querysmith/pkg/schema"
)

func TestASTDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asts.yaml")
	d, err := NewASTDump(path)
	require.NoError(t, err)

	stmt := &grammar.CastExpr{
		To:  schema.Numeric,
		Arg: &grammar.Literal{T: schema.Text, Text: "'42'"},
	}
	d.Generated(stmt)
	d.Generated(&grammar.Literal{T: schema.Boolean, Text: "true"})
	require.NoError(t, d.Close())

	r, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var docs []dumpDoc
	decoder := yaml.NewDecoder(r)
	for {
		var doc dumpDoc
		if err := decoder.Decode(&doc); err != nil {
			break
		}
		docs = append(docs, doc)
	}

	require.Len(t, docs, 2)
	assert.Equal(t, uint64(1), docs[0].Seq)
	assert.Equal(t, "cast('42' as NUMERIC)", docs[0].SQL)
	assert.Equal(t, "CastExpr", docs[0].Tree.Kind)
	require.Len(t, docs[0].Tree.Children, 1)
	assert.Equal(t, "Literal", docs[0].Tree.Children[0].Kind)

	assert.Equal(t, uint64(2), docs[1].Seq)
	assert.Equal(t, "true", docs[1].SQL)
	assert.Empty(t, docs[1].Tree.Children)
}

func TestASTDumpCreateFailure(t *testing.T) {
	_, err := NewASTDump(filepath.Join(t.TempDir(), "missing", "asts.yaml"))
	assert.Error(t, err)
}
