package commands

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapconnect/internal/config"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func newTestRenderer(format string, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, format), out, errOut
}

func TestRenderer_AutoFormat(t *testing.T) {
	r, _, _ := newTestRenderer(config.OutputAuto, true)
	assert.Equal(t, config.OutputTable, r.Format())

	r, _, _ = newTestRenderer(config.OutputAuto, false)
	assert.Equal(t, config.OutputJSON, r.Format())

	r, _, _ = newTestRenderer("", false)
	assert.Equal(t, config.OutputJSON, r.Format())

	r, _, _ = newTestRenderer(config.OutputCSV, true)
	assert.Equal(t, config.OutputCSV, r.Format())
}

func TestRenderer_RowsTable(t *testing.T) {
	r, out, _ := newTestRenderer(config.OutputTable, true)
	require.NoError(t, r.Rows([]string{"id"}, []map[string]any{
		{"id": 1, "extra": "x"},
		{"id": nil, "extra": "y"},
	}))

	s := out.String()
	assert.Contains(t, s, "NULL")
	assert.Contains(t, s, "EXTRA")
	assert.Contains(t, s, "(2 rows)")
}

func TestRenderer_RowsEmpty(t *testing.T) {
	r, out, _ := newTestRenderer(config.OutputTable, true)
	require.NoError(t, r.Rows([]string{"id"}, nil))
	assert.Equal(t, "(0 rows)\n", out.String())
}

func TestRenderer_RowsCSVQuotes(t *testing.T) {
	r, out, _ := newTestRenderer(config.OutputCSV, false)
	require.NoError(t, r.Rows([]string{"name"}, []map[string]any{{"name": "a,b"}}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"a,b"`, lines[1])
}

func TestRenderer_YAML(t *testing.T) {
	r, out, _ := newTestRenderer(config.OutputYAML, false)
	require.NoError(t, renderSchema(r, &core.Schema{Tables: []core.Table{{
		Name: "users", Schema: "public", Type: core.TableTypeTable,
		Columns: []core.Column{core.NewColumn("id", "integer", 1)},
	}}}))

	s := out.String()
	assert.Contains(t, s, "name: users")
	assert.Contains(t, s, "typeName: integer")
	assert.Contains(t, s, "ordinalPosition: 1")
}

func TestRenderSchema_TableMarksKeys(t *testing.T) {
	r, out, _ := newTestRenderer(config.OutputTable, true)
	id := core.NewColumn("id", "integer", 1)
	id.PrimaryKey = true
	id.PrimaryKeySequenceID = 1
	id.Autoincrement = true

	require.NoError(t, renderSchema(r, &core.Schema{Tables: []core.Table{{
		Name: "users", Schema: "public", Type: core.TableTypeTable, Columns: []core.Column{id},
	}}}))
	assert.Contains(t, out.String(), "Table: public.users")
	assert.Contains(t, out.String(), "PK 1 auto")
}

func TestRenderSchema_Empty(t *testing.T) {
	r, out, _ := newTestRenderer(config.OutputTable, true)
	require.NoError(t, renderSchema(r, &core.Schema{}))
	assert.Equal(t, "(no tables)\n", out.String())
}

func TestRenderer_Errorf(t *testing.T) {
	r, out, errOut := newTestRenderer(config.OutputTable, true)
	r.Errorf("bad %s\n", "thing")
	assert.Empty(t, out.String())
	assert.Equal(t, "bad thing\n", errOut.String())
}
