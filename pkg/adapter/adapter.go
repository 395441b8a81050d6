// Package adapter defines the capability set every engine connector
// implements, the database/sql plumbing shared by the SQL-driver based
// connectors, and the registry that maps an engine tag to its connector.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// Connection establishment timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	// SlowConnectTimeout applies to Redshift and Databricks, whose clusters
	// can take longer to accept a session.
	SlowConnectTimeout = 15 * time.Second
)

// ReachabilityQuery is the trivial probe used by TestQuery.
const ReachabilityQuery = "SELECT 1 AS connection_test"

// Adapter is one engine's implementation of the connector capability set.
// An Adapter instance serves a single call: Connect, any number of catalog
// or query operations, then Disconnect.
type Adapter interface {
	// Engine returns the tag this adapter serves.
	Engine() core.Engine

	// Connect establishes a session. Failures are connerr.KindConnection
	// errors (or curated user-facing errors).
	Connect(ctx context.Context, cfg core.ConnectionConfig) error

	// Disconnect releases every handle opened by Connect, inner first. It is
	// idempotent; a returned error is a cleanup warning only, already logged
	// by the adapter.
	Disconnect() error

	// TestQuery runs the reachability probe and reports whether it returned 1.
	TestQuery(ctx context.Context) (bool, error)

	// ListSchemas returns the schemas to extract.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTables returns base table names in schema.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// ListViews returns view names in schema.
	ListViews(ctx context.Context, schema string) ([]string, error)

	// DescribeColumns returns the columns of schema.object.
	DescribeColumns(ctx context.Context, schema, object string) ([]core.Column, error)

	// RunQuery executes sql verbatim and returns rows normalized to
	// name->value maps. A query failure is returned as an error; the caller
	// turns it into a failed QueryResult.
	RunQuery(ctx context.Context, sql string) (*core.QueryResult, error)
}
