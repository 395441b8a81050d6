// Package databricks provides the Databricks SQL warehouse adapter built on
// databricks-sql-go.
package databricks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	dbsql "github.com/databricks/databricks-sql-go"
	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/fallback"
)

// DefaultSchema is the schema used when the connection names none.
const DefaultSchema = "default"

// Adapter implements adapter.Adapter for Databricks. The client pool and the
// session pinned from it are released session first.
type Adapter struct {
	adapter.BaseSQLAdapter

	cfg    core.DatabricksConfig
	openDB func(core.DatabricksConfig) (*sql.DB, error)
}

// New creates a Databricks adapter. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		BaseSQLAdapter: adapter.NewBase(logger),
		openDB:         openDB,
	}
}

func openDB(cfg core.DatabricksConfig) (*sql.DB, error) {
	opts := []dbsql.ConnOption{
		dbsql.WithServerHostname(Hostname(cfg.Host)),
		dbsql.WithPort(443),
		dbsql.WithHTTPPath(cfg.HTTPPath),
		dbsql.WithAccessToken(cfg.Token),
	}
	if cfg.Catalog != "" || cfg.Schema != "" {
		opts = append(opts, dbsql.WithInitialNamespace(cfg.Catalog, cfg.Schema))
	}
	connector, err := dbsql.NewConnector(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create databricks connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Hostname strips a URL scheme and trailing slash from a workspace host.
func Hostname(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// Engine returns core.EngineDatabricks.
func (a *Adapter) Engine() core.Engine {
	return core.EngineDatabricks
}

// Connect opens the client and pins one session on it.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	if cfg.Databricks == nil {
		return connerr.Connection("connect", fmt.Errorf("missing databricks settings"))
	}
	a.cfg = *cfg.Databricks

	a.Logger.Debug("connecting to databricks",
		slog.String("host", Hostname(a.cfg.Host)),
		slog.String("http_path", a.cfg.HTTPPath))

	db, err := a.openDB(a.cfg)
	if err != nil {
		return connerr.Connection("connect", err)
	}
	a.Attach("databricks client", db)

	sessionCtx, cancel := context.WithTimeout(ctx, adapter.SlowConnectTimeout)
	defer cancel()
	if err := a.AttachConn(sessionCtx, "databricks session"); err != nil {
		return connerr.Connection("connect", err)
	}
	return a.Ping(ctx, adapter.SlowConnectTimeout)
}

// ListSchemas returns the configured schema or "default".
func (a *Adapter) ListSchemas(context.Context) ([]string, error) {
	if a.cfg.Schema != "" {
		return []string{a.cfg.Schema}, nil
	}
	return []string{DefaultSchema}, nil
}

func (a *Adapter) namesChain(op string, strategies ...fallback.Strategy[[]string]) fallback.Chain[[]string] {
	return fallback.Chain[[]string]{Op: op, Strategies: strategies, Logger: a.Logger}
}

func (a *Adapter) query(name, q string, args ...any) fallback.Strategy[[]string] {
	return fallback.Strategy[[]string]{
		Name: name,
		Run: func(ctx context.Context) ([]string, error) {
			return a.QueryNames(ctx, q, args...)
		},
	}
}

// ListTables returns non-view tables in schema, using SHOW TABLES when
// information_schema is unavailable (Hive metastore workspaces).
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]string, error) {
	chain := a.namesChain("list tables",
		a.query("information_schema.tables", `SELECT table_name FROM information_schema.tables
			WHERE table_schema = ? AND table_type NOT IN ('VIEW', 'MATERIALIZED_VIEW')
			ORDER BY table_name`, schema),
		fallback.Strategy[[]string]{Name: "show tables", Run: func(ctx context.Context) ([]string, error) {
			return a.showTables(ctx, schema)
		}},
	)
	names, _, err := chain.Run(ctx)
	return names, err
}

// ListViews returns views in schema.
func (a *Adapter) ListViews(ctx context.Context, schema string) ([]string, error) {
	chain := a.namesChain("list views",
		a.query("information_schema.views", `SELECT table_name FROM information_schema.views
			WHERE table_schema = ?
			ORDER BY table_name`, schema),
		fallback.Strategy[[]string]{Name: "show views", Run: func(ctx context.Context) ([]string, error) {
			return a.showColumn(ctx, "SHOW VIEWS IN "+adapter.QuoteBacktick(schema), "viewName")
		}},
	)
	names, _, err := chain.Run(ctx)
	return names, err
}

// showTables lists SHOW TABLES minus SHOW VIEWS, since the former includes views.
func (a *Adapter) showTables(ctx context.Context, schema string) ([]string, error) {
	all, err := a.showColumn(ctx, "SHOW TABLES IN "+adapter.QuoteBacktick(schema), "tableName")
	if err != nil {
		return nil, err
	}
	views, err := a.showColumn(ctx, "SHOW VIEWS IN "+adapter.QuoteBacktick(schema), "viewName")
	if err != nil {
		a.Logger.Debug("failed to list views for table filtering", slog.String("error", err.Error()))
		return all, nil
	}
	isView := make(map[string]bool, len(views))
	for _, v := range views {
		isView[v] = true
	}
	tables := make([]string, 0, len(all))
	for _, t := range all {
		if !isView[t] {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// showColumn runs a SHOW command and returns one named column.
func (a *Adapter) showColumn(ctx context.Context, query, column string) ([]string, error) {
	q := a.Session()
	if q == nil {
		return nil, adapter.ErrNotConnected
	}
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	data, _, err := adapter.ScanMaps(rows)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(data))
	for _, row := range data {
		if name, ok := row[column].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// DescribeColumns derives columns from the result schema of an empty
// statement over the object, falling back to DESCRIBE TABLE. Primary keys
// are not reported.
func (a *Adapter) DescribeColumns(ctx context.Context, schema, object string) ([]core.Column, error) {
	target := adapter.QuoteBacktick(schema) + "." + adapter.QuoteBacktick(object)
	chain := fallback.Chain[[]core.Column]{
		Op: "describe " + schema + "." + object,
		Strategies: []fallback.Strategy[[]core.Column]{
			{Name: "statement schema", Run: func(ctx context.Context) ([]core.Column, error) {
				return a.statementColumns(ctx, target)
			}},
			{Name: "describe table", Run: func(ctx context.Context) ([]core.Column, error) {
				return a.describeTable(ctx, target)
			}},
		},
		Accept: fallback.NonEmpty[core.Column],
		Logger: a.Logger,
	}
	cols, _, err := chain.Run(ctx)
	return cols, err
}

func (a *Adapter) statementColumns(ctx context.Context, target string) ([]core.Column, error) {
	q := a.Session()
	if q == nil {
		return nil, adapter.ErrNotConnected
	}
	rows, err := q.QueryContext(ctx, "SELECT * FROM "+target+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}
	columns := make([]core.Column, 0, len(types))
	for i, ct := range types {
		col := core.NewColumn(ct.Name(), ct.DatabaseTypeName(), i+1)
		if nullable, ok := ct.Nullable(); ok {
			col.Nullable = nullable
		} else {
			col.Nullable = true
		}
		if precision, scale, ok := ct.DecimalSize(); ok {
			col.Precision = int(precision)
			col.Scale = int(scale)
			col.ColumnDisplaySize = int(precision)
		}
		if length, ok := ct.Length(); ok {
			col.ColumnDisplaySize = int(length)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (a *Adapter) describeTable(ctx context.Context, target string) ([]core.Column, error) {
	q := a.Session()
	if q == nil {
		return nil, adapter.ErrNotConnected
	}
	rows, err := q.QueryContext(ctx, "DESCRIBE TABLE "+target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	data, _, err := adapter.ScanMaps(rows)
	if err != nil {
		return nil, err
	}
	var columns []core.Column
	for _, row := range data {
		name, _ := row["col_name"].(string)
		// Partition and detail sections follow a blank or '#' row.
		if name == "" || strings.HasPrefix(name, "#") {
			break
		}
		dataType, _ := row["data_type"].(string)
		col := core.NewColumn(name, dataType, len(columns)+1)
		col.Nullable = true
		columns = append(columns, col)
	}
	return columns, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
