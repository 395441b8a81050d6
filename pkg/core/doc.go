// Package core defines the shared language of the connector layer.
//
// This package contains:
//   - Connection configuration (ConnectionConfig and the per-engine structs)
//   - The canonical catalog model (Schema, Table, Column)
//   - The canonical query result model (QueryResult, Field)
//
// These types are the wire contract with callers: field names and JSON tags
// must stay stable because callers persist and redisplay them.
//
// The Golden Rule: pkg/core imports only mapstructure and stdlib.
// All other packages depend on core, not the reverse.
package core
