// Package snowflake provides the Snowflake adapter built on gosnowflake.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/fallback"
	"github.com/leapstack-labs/leapconnect/pkg/typemap"
	sf "github.com/snowflakedb/gosnowflake"
)

// DefaultSchema is used when neither the config nor the session names one.
const DefaultSchema = "PUBLIC"

// Adapter implements adapter.Adapter for Snowflake.
type Adapter struct {
	adapter.BaseSQLAdapter

	cfg    core.SnowflakeConfig
	openDB func(sf.Config) *sql.DB
}

// New creates a Snowflake adapter. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	a := &Adapter{
		BaseSQLAdapter: adapter.NewBase(logger),
		openDB: func(c sf.Config) *sql.DB {
			return sql.OpenDB(sf.NewConnector(sf.SnowflakeDriver{}, c))
		},
	}
	a.FieldType = fieldType
	return a
}

// Engine returns core.EngineSnowflake.
func (a *Adapter) Engine() core.Engine {
	return core.EngineSnowflake
}

// Connect opens a session. The driver is blocking, so login completes (or
// fails within the login timeout) before Connect returns; the session is
// destroyed exactly once by Disconnect.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	if cfg.Snowflake == nil {
		return connerr.Connection("connect", fmt.Errorf("missing snowflake settings"))
	}
	a.cfg = *cfg.Snowflake

	a.Logger.Debug("connecting to snowflake",
		slog.String("account", AccountIdentifier(a.cfg.Account)),
		slog.String("warehouse", a.cfg.Warehouse),
		slog.String("database", a.cfg.Database))

	a.Attach("snowflake connection", a.openDB(driverConfig(a.cfg)))
	return a.Ping(ctx, adapter.DefaultConnectTimeout)
}

// AccountIdentifier strips region and cloud suffixes from an account locator,
// keeping the part before the first dot.
func AccountIdentifier(account string) string {
	id, _, _ := strings.Cut(account, ".")
	return id
}

func driverConfig(cfg core.SnowflakeConfig) sf.Config {
	return sf.Config{
		Account:      AccountIdentifier(cfg.Account),
		User:         cfg.Username,
		Password:     cfg.Password,
		Warehouse:    cfg.Warehouse,
		Database:     cfg.Database,
		Schema:       cfg.Schema,
		Role:         cfg.Role,
		LoginTimeout: adapter.DefaultConnectTimeout,
	}
}

// ListSchemas returns the configured schema, else the session's current one.
func (a *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	if a.cfg.Schema != "" {
		return []string{a.cfg.Schema}, nil
	}
	chain := fallback.Chain[[]string]{
		Op: "list schemas",
		Strategies: []fallback.Strategy[[]string]{{
			Name: "current_schema",
			Run: func(ctx context.Context) ([]string, error) {
				return a.QueryNames(ctx, "SELECT CURRENT_SCHEMA()")
			},
		}},
		Accept: fallback.NonEmpty[string],
		Logger: a.Logger,
	}
	return chain.Or(ctx, []string{DefaultSchema}), nil
}

// ListTables returns base tables in schema.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]string, error) {
	names, err := a.QueryNames(ctx, `SELECT table_name FROM information_schema.tables
		WHERE UPPER(table_schema) = UPPER(?) AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, connerr.CatalogQuery("list tables", err)
	}
	return names, nil
}

// ListViews returns views in schema.
func (a *Adapter) ListViews(ctx context.Context, schema string) ([]string, error) {
	names, err := a.QueryNames(ctx, `SELECT table_name FROM information_schema.views
		WHERE UPPER(table_schema) = UPPER(?)
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, connerr.CatalogQuery("list views", err)
	}
	return names, nil
}

// DescribeColumns reads information_schema.columns and falls back to
// DESCRIBE TABLE, which carries no key or precision details.
func (a *Adapter) DescribeColumns(ctx context.Context, schema, object string) ([]core.Column, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}
	chain := fallback.Chain[[]core.Column]{
		Op: "describe " + schema + "." + object,
		Strategies: []fallback.Strategy[[]core.Column]{
			{Name: "information_schema.columns", Run: func(ctx context.Context) ([]core.Column, error) {
				return a.catalogColumns(ctx, schema, object)
			}},
			{Name: "describe table", Run: func(ctx context.Context) ([]core.Column, error) {
				return a.describeTable(ctx, schema, object)
			}},
		},
		Accept: fallback.NonEmpty[core.Column],
		Logger: a.Logger,
	}
	cols, _, err := chain.Run(ctx)
	return cols, err
}

func (a *Adapter) catalogColumns(ctx context.Context, schema, object string) ([]core.Column, error) {
	rows, err := a.DB.QueryContext(ctx, `
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
		WHERE UPPER(table_schema) = UPPER(?) AND UPPER(table_name) = UPPER(?)
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
		columns = append(columns, c.Column("autoincrement"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

func (a *Adapter) describeTable(ctx context.Context, schema, object string) ([]core.Column, error) {
	query := fmt.Sprintf("DESCRIBE TABLE %s.%s", adapter.QuoteIdent(schema), adapter.QuoteIdent(object))
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}
	defer func() { _ = rows.Close() }()

	data, _, err := adapter.ScanMaps(rows)
	if err != nil {
		return nil, err
	}

	columns := make([]core.Column, 0, len(data))
	for i, row := range data {
		col := core.NewColumn(stringValue(row["name"]), stringValue(row["type"]), i+1)
		col.Nullable = strings.EqualFold(stringValue(row["null?"]), "Y")
		col.Autoincrement = strings.Contains(strings.ToLower(stringValue(row["default"])), "autoincrement")
		columns = append(columns, col)
	}
	return columns, nil
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func fieldType(ct *sql.ColumnType, _ int) int {
	return typemap.Snowflake(ct.DatabaseTypeName())
}

var _ adapter.Adapter = (*Adapter)(nil)
