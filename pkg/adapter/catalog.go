package adapter

import (
	"database/sql"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// CatalogColumn is one row of an information_schema.columns style query.
type CatalogColumn struct {
	Name         string
	DataType     string
	IsNullable   string
	Ordinal      int
	Default      sql.NullString
	CharMaxLen   sql.NullInt64
	NumPrecision sql.NullInt64
	NumScale     sql.NullInt64
	// PrimaryKey and KeySequence are filled only by engines that join the
	// key-usage catalog.
	PrimaryKey  bool
	KeySequence sql.NullInt64
}

// ScanTargets returns pointers for the standard eight catalog fields in
// order: name, type, nullable, ordinal, default, char length, precision, scale.
func (c *CatalogColumn) ScanTargets() []any {
	return []any{
		&c.Name, &c.DataType, &c.IsNullable, &c.Ordinal,
		&c.Default, &c.CharMaxLen, &c.NumPrecision, &c.NumScale,
	}
}

// Column converts the row to the canonical model. The default expression is
// matched case-insensitively against autoincrementMarkers.
func (c CatalogColumn) Column(autoincrementMarkers ...string) core.Column {
	col := core.NewColumn(c.Name, c.DataType, c.Ordinal)
	col.Nullable = strings.EqualFold(c.IsNullable, "YES")
	col.PrimaryKey = c.PrimaryKey
	if c.PrimaryKey && c.KeySequence.Valid {
		col.PrimaryKeySequenceID = int(c.KeySequence.Int64)
	}
	if c.Default.Valid {
		def := strings.ToLower(c.Default.String)
		for _, marker := range autoincrementMarkers {
			if strings.Contains(def, marker) {
				col.Autoincrement = true
				break
			}
		}
	}
	switch {
	case c.CharMaxLen.Valid:
		col.ColumnDisplaySize = int(c.CharMaxLen.Int64)
	case c.NumPrecision.Valid:
		col.ColumnDisplaySize = int(c.NumPrecision.Int64)
	}
	if c.NumPrecision.Valid {
		col.Precision = int(c.NumPrecision.Int64)
	}
	if c.NumScale.Valid {
		col.Scale = int(c.NumScale.Int64)
	}
	return col
}

// QuoteIdent quotes an identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBacktick quotes an identifier with backticks.
func QuoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
