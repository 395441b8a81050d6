// Package typemap converts engine-native type names into the numeric type
// codes carried by core.Field.
//
// Only Snowflake needs an explicit table; Postgres codes are the server's
// type OIDs, and the remaining engines use a display hint or the column index.
package typemap

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Unknown is the code for types with no mapping.
const Unknown = 0

// snowflakeCodes maps Snowflake type names to Postgres-compatible OIDs so the
// UI can treat both engines alike.
var snowflakeCodes = map[string]int{
	"TEXT":          25,
	"VARCHAR":       1043,
	"CHAR":          18,
	"BOOLEAN":       16,
	"NUMBER":        1700,
	"FIXED":         1700,
	"FLOAT":         701,
	"REAL":          701,
	"INTEGER":       23,
	"INT":           23,
	"BIGINT":        20,
	"SMALLINT":      21,
	"DATE":          1082,
	"TIMESTAMP_NTZ": 1114,
	"TIMESTAMP_LTZ": 1184,
	"TIMESTAMP_TZ":  1186,
	"VARIANT":       2950,
	"OBJECT":        114,
	"ARRAY":         1007,
	"BINARY":        17,
	"UNKNOWN":       Unknown,
}

// Snowflake returns the code for a Snowflake type name. Names are matched
// case-insensitively and any precision suffix such as "(38,0)" is ignored.
func Snowflake(typeName string) int {
	name := strings.ToUpper(strings.TrimSpace(typeName))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if code, ok := snowflakeCodes[name]; ok {
		return code
	}
	return Unknown
}

var pgTypes = pgtype.NewMap()

// PostgresOID returns the type OID for a Postgres type name as reported by the
// pgx database/sql driver (e.g. "INT4", "VARCHAR", "_TEXT").
func PostgresOID(typeName string) int {
	if typeName == "" {
		return Unknown
	}
	if t, ok := pgTypes.TypeForName(strings.ToLower(typeName)); ok {
		return int(t.OID)
	}
	return Unknown
}

// bigQueryNumeric lists BigQuery field types reported as numeric.
var bigQueryNumeric = map[string]bool{
	"INTEGER":    true,
	"INT64":      true,
	"FLOAT":      true,
	"FLOAT64":    true,
	"NUMERIC":    true,
	"BIGNUMERIC": true,
}

// BigQuery returns 1 for numeric BigQuery field types and 0 for everything else.
func BigQuery(fieldType string) int {
	if bigQueryNumeric[strings.ToUpper(fieldType)] {
		return 1
	}
	return 0
}

// Positional returns the column index as the type code. Engines whose
// drivers expose no stable numeric type identifier use this.
func Positional(index int) int {
	return index
}
