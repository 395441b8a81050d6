// Package duckdb provides the embedded DuckDB adapter.
//
// A DuckDB file can be held open for writing by one process only; lock
// contention surfaces as a driver error that connerr.Classify turns into a
// message naming the holder's PID.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/fallback"
	"github.com/marcboeker/go-duckdb"
)

// ErrNoPath is returned by Connect when database_path is empty.
var ErrNoPath = fmt.Errorf("no database path provided")

// Adapter implements adapter.Adapter for DuckDB. The database instance and
// the connection pinned on it are released connection first.
type Adapter struct {
	adapter.BaseSQLAdapter

	cfg core.DuckDBConfig
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Engine returns core.EngineDuckDB.
func (a *Adapter) Engine() core.Engine {
	return core.EngineDuckDB
}

// Connect opens the database file (":memory:" for an in-memory database)
// and pins a connection on it. A directory path is rejected before DuckDB
// is touched.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	if cfg.DuckDB == nil {
		return connerr.Connection("connect", fmt.Errorf("missing duckdb settings"))
	}
	a.cfg = *cfg.DuckDB
	if a.cfg.DatabasePath == "" {
		return connerr.Connection("connect", ErrNoPath)
	}
	if info, err := os.Stat(a.cfg.DatabasePath); err == nil && info.IsDir() {
		return connerr.UserFacing(connerr.MsgDirectory, fmt.Errorf("%s: is a directory", a.cfg.DatabasePath))
	}

	stmts, err := sessionStatements(a.cfg)
	if err != nil {
		return connerr.Connection("connect", err)
	}

	a.Logger.Debug("opening duckdb",
		slog.String("path", a.cfg.DatabasePath),
		slog.Bool("read_only", a.cfg.ReadOnly))

	connector, err := duckdb.NewConnector(dsn(a.cfg), sessionInit(stmts))
	if err != nil {
		return connerr.Connection("connect", fmt.Errorf("failed to open duckdb: %w", err))
	}
	// Closing the pool closes the connector and with it the instance.
	a.Attach("duckdb instance", sql.OpenDB(connector))

	if err := a.AttachConn(ctx, "duckdb connection"); err != nil {
		return connerr.Connection("connect", err)
	}
	return nil
}

// ListSchemas returns the configured schema.
func (a *Adapter) ListSchemas(context.Context) ([]string, error) {
	schema := a.cfg.Schema
	if schema == "" {
		schema = core.DefaultDuckDBSchema
	}
	return []string{schema}, nil
}

// ListTables returns base tables in schema, falling back to duckdb_tables().
// When both fail the list is empty.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]string, error) {
	chain := fallback.Chain[[]string]{
		Op: "list tables",
		Strategies: []fallback.Strategy[[]string]{
			{Name: "information_schema.tables", Run: func(ctx context.Context) ([]string, error) {
				return a.QueryNames(ctx, `SELECT table_name FROM information_schema.tables
					WHERE table_schema = ? AND table_type = 'BASE TABLE'
					ORDER BY table_name`, schema)
			}},
			{Name: "duckdb_tables()", Run: func(ctx context.Context) ([]string, error) {
				return a.catalogTables(ctx, schema)
			}},
		},
		Logger: a.Logger,
	}
	return chain.Or(ctx, []string{}), nil
}

// ListViews returns views in schema, or an empty list when the catalog
// cannot be read.
func (a *Adapter) ListViews(ctx context.Context, schema string) ([]string, error) {
	chain := fallback.Chain[[]string]{
		Op: "list views",
		Strategies: []fallback.Strategy[[]string]{
			{Name: "information_schema.tables", Run: func(ctx context.Context) ([]string, error) {
				return a.QueryNames(ctx, `SELECT table_name FROM information_schema.tables
					WHERE table_schema = ? AND table_type = 'VIEW'
					ORDER BY table_name`, schema)
			}},
		},
		Logger: a.Logger,
	}
	return chain.Or(ctx, []string{}), nil
}

// catalogTables lists base tables of schema from DuckDB's own catalog
// function; views live in duckdb_views() and are not included.
func (a *Adapter) catalogTables(ctx context.Context, schema string) ([]string, error) {
	return a.QueryNames(ctx, `SELECT table_name FROM duckdb_tables()
		WHERE schema_name = ? AND NOT internal
		ORDER BY table_name`, schema)
}

// DescribeColumns reads information_schema.columns and falls back to
// DESCRIBE. Primary keys are not reported.
func (a *Adapter) DescribeColumns(ctx context.Context, schema, object string) ([]core.Column, error) {
	chain := fallback.Chain[[]core.Column]{
		Op: "describe " + schema + "." + object,
		Strategies: []fallback.Strategy[[]core.Column]{
			{Name: "information_schema.columns", Run: func(ctx context.Context) ([]core.Column, error) {
				return a.catalogColumns(ctx, schema, object)
			}},
			{Name: "describe", Run: func(ctx context.Context) ([]core.Column, error) {
				return a.describe(ctx, schema, object)
			}},
		},
		Accept: fallback.NonEmpty[core.Column],
		Logger: a.Logger,
	}
	cols, _, err := chain.Run(ctx)
	return cols, err
}

func (a *Adapter) catalogColumns(ctx context.Context, schema, object string) ([]core.Column, error) {
	q := a.Session()
	if q == nil {
		return nil, adapter.ErrNotConnected
	}
	rows, err := q.QueryContext(ctx, `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position,
			column_default,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schema, object)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var c adapter.CatalogColumn
		if err := rows.Scan(c.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		columns = append(columns, c.Column("nextval"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

func (a *Adapter) describe(ctx context.Context, schema, object string) ([]core.Column, error) {
	q := a.Session()
	if q == nil {
		return nil, adapter.ErrNotConnected
	}
	rows, err := q.QueryContext(ctx, "DESCRIBE "+adapter.QuoteIdent(schema)+"."+adapter.QuoteIdent(object))
	if err != nil {
		return nil, fmt.Errorf("failed to describe: %w", err)
	}
	defer func() { _ = rows.Close() }()

	data, _, err := adapter.ScanMaps(rows)
	if err != nil {
		return nil, err
	}
	columns := make([]core.Column, 0, len(data))
	for i, row := range data {
		name, _ := row["column_name"].(string)
		typeName, _ := row["column_type"].(string)
		col := core.NewColumn(name, typeName, i+1)
		nullable, _ := row["null"].(string)
		col.Nullable = strings.EqualFold(nullable, "YES")
		columns = append(columns, col)
	}
	return columns, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
