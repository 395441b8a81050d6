package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortColumns(t *testing.T) {
	cols := []Column{
		NewColumn("c", "int", 3),
		NewColumn("a", "int", 1),
		NewColumn("b", "int", 2),
	}
	SortColumns(cols)

	var names []string
	for _, c := range cols {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestColumn_WireNames(t *testing.T) {
	data, err := json.Marshal(NewColumn("id", "integer", 1))
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	for _, key := range []string{
		"name", "typeName", "ordinalPosition", "nullable", "primaryKey",
		"primaryKeySequenceId", "autoincrement", "columnDisplaySize",
		"precision", "scale", "columnProperties",
	} {
		assert.Contains(t, flat, key)
	}
	assert.Equal(t, []any{}, flat["columnProperties"])
}

func TestQueryResult_FailedOmitsData(t *testing.T) {
	data, err := json.Marshal(FailedResult("syntax error at or near \"SELEC\""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"syntax error at or near \"SELEC\""}`, string(data))
}

func TestQueryResult_RowCount(t *testing.T) {
	res := SucceededResult([]map[string]any{{"a": 1}}, []Field{{Name: "a", Type: 23}}).WithRowCount(1)
	require.NotNil(t, res.RowCount)
	assert.Equal(t, 1, *res.RowCount)
	assert.True(t, res.Success)
}
