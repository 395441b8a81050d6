package core

import "sort"

// TableType distinguishes base tables from views.
type TableType string

// Table types.
const (
	TableTypeTable TableType = "TABLE"
	TableTypeView  TableType = "VIEW"
)

// Schema is the result of a full catalog extraction.
type Schema struct {
	Tables []Table `json:"tables" yaml:"tables"`
}

// Table is a table or view. Name and Schema together identify it; the same
// name in two schemas is two tables.
type Table struct {
	Name    string    `json:"name" yaml:"name"`
	Schema  string    `json:"schema" yaml:"schema"`
	Type    TableType `json:"type" yaml:"type"`
	Columns []Column  `json:"columns" yaml:"columns"`
}

// Column describes one column of a Table.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	TypeName string `json:"typeName" yaml:"typeName"`

	// OrdinalPosition is 1-based and unique within the table.
	OrdinalPosition int  `json:"ordinalPosition" yaml:"ordinalPosition"`
	Nullable        bool `json:"nullable" yaml:"nullable"`
	PrimaryKey      bool `json:"primaryKey" yaml:"primaryKey"`

	// PrimaryKeySequenceID is 0 when the column is not part of the primary
	// key, otherwise its 1-based position within the key.
	PrimaryKeySequenceID int  `json:"primaryKeySequenceId" yaml:"primaryKeySequenceId"`
	Autoincrement        bool `json:"autoincrement" yaml:"autoincrement"`
	ColumnDisplaySize    int  `json:"columnDisplaySize" yaml:"columnDisplaySize"`
	Precision            int  `json:"precision" yaml:"precision"`
	Scale                int  `json:"scale" yaml:"scale"`

	// ColumnProperties is reserved and always empty.
	ColumnProperties []string `json:"columnProperties" yaml:"columnProperties"`
}

// NewColumn returns a column with the reserved fields initialised.
func NewColumn(name, typeName string, position int) Column {
	return Column{
		Name:             name,
		TypeName:         typeName,
		OrdinalPosition:  position,
		ColumnProperties: []string{},
	}
}

// SortColumns orders columns by ascending ordinal position.
func SortColumns(cols []Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].OrdinalPosition < cols[j].OrdinalPosition
	})
}

// QualifiedName returns schema.name.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
