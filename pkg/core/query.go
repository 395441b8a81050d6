package core

// QueryResult is the outcome of an ad-hoc query. When Success is false only
// Error is meaningful; otherwise Data, Fields and RowCount are.
type QueryResult struct {
	Success  bool             `json:"success" yaml:"success"`
	Data     []map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Fields   []Field          `json:"fields,omitempty" yaml:"fields,omitempty"`
	RowCount *int             `json:"rowCount,omitempty" yaml:"rowCount,omitempty"`
	Error    string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Field describes one result column. Type is an engine-defined code: a type
// OID for Postgres and Redshift, a lookup-table code for Snowflake, a numeric
// hint for BigQuery and the column index elsewhere.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Type int    `json:"type" yaml:"type"`
}

// FailedResult builds an unsuccessful result carrying msg.
func FailedResult(msg string) *QueryResult {
	return &QueryResult{Success: false, Error: msg}
}

// SucceededResult builds a successful result. Nil data is replaced with an
// empty slice so callers can always range over it.
func SucceededResult(data []map[string]any, fields []Field) *QueryResult {
	if data == nil {
		data = []map[string]any{}
	}
	if fields == nil {
		fields = []Field{}
	}
	return &QueryResult{Success: true, Data: data, Fields: fields}
}

// WithRowCount sets RowCount to n.
func (r *QueryResult) WithRowCount(n int) *QueryResult {
	r.RowCount = &n
	return r
}
