// Package postgres provides the PostgreSQL and Amazon Redshift adapters.
// Both speak the Postgres wire protocol through pgx.
package postgres

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/fallback"
	"github.com/leapstack-labs/leapconnect/pkg/typemap"
)

// Adapter implements adapter.Adapter for PostgreSQL and Redshift.
type Adapter struct {
	adapter.BaseSQLAdapter

	engine  core.Engine
	cfg     core.PostgresConfig
	timeout time.Duration

	// openDB turns a parsed connection config into a *sql.DB.
	openDB func(*pgx.ConnConfig) *sql.DB
}

// New creates a PostgreSQL adapter. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return newAdapter(core.EnginePostgres, adapter.DefaultConnectTimeout, logger)
}

// NewRedshift creates a Redshift adapter.
func NewRedshift(logger *slog.Logger) *Adapter {
	return newAdapter(core.EngineRedshift, adapter.SlowConnectTimeout, logger)
}

func newAdapter(engine core.Engine, timeout time.Duration, logger *slog.Logger) *Adapter {
	a := &Adapter{
		BaseSQLAdapter: adapter.NewBase(logger),
		engine:         engine,
		timeout:        timeout,
		openDB:         func(c *pgx.ConnConfig) *sql.DB { return stdlib.OpenDB(*c) },
	}
	a.FieldType = fieldType
	return a
}

// Engine returns the engine this adapter serves.
func (a *Adapter) Engine() core.Engine {
	return a.engine
}

// Connect establishes a connection and verifies it with a ping.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	pg, useTLS, err := a.settings(cfg)
	if err != nil {
		return connerr.Connection("connect", err)
	}
	a.cfg = pg

	connCfg, err := pgx.ParseConfig(buildDSN(pg, a.timeout))
	if err != nil {
		return connerr.Connection("connect", fmt.Errorf("failed to parse connection config: %w", err))
	}
	if useTLS {
		tlsCfg, err := buildTLSConfig(pg)
		if err != nil {
			return connerr.Connection("connect", err)
		}
		connCfg.TLSConfig = tlsCfg
		connCfg.Fallbacks = nil
	}

	a.Logger.Debug("connecting",
		slog.String("engine", string(a.engine)),
		slog.String("host", pg.Host),
		slog.String("database", pg.Database),
		slog.Bool("tls", useTLS))

	a.Attach(string(a.engine)+" connection", a.openDB(connCfg))
	return a.Ping(ctx, a.timeout)
}

// settings selects the union member for this adapter's engine.
func (a *Adapter) settings(cfg core.ConnectionConfig) (core.PostgresConfig, bool, error) {
	switch a.engine {
	case core.EngineRedshift:
		if cfg.Redshift == nil {
			return core.PostgresConfig{}, false, fmt.Errorf("missing redshift settings")
		}
		return cfg.Redshift.PostgresConfig, cfg.Redshift.SSLEnabled(), nil
	default:
		if cfg.Postgres == nil {
			return core.PostgresConfig{}, false, fmt.Errorf("missing postgres settings")
		}
		return *cfg.Postgres, cfg.Postgres.SSL != nil && *cfg.Postgres.SSL, nil
	}
}

// buildDSN constructs a key=value connection string. TLS is configured on the
// parsed config, so the DSN always disables it.
func buildDSN(cfg core.PostgresConfig, timeout time.Duration) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=disable connect_timeout=%d",
		quoteDSNValue(host), port, quoteDSNValue(cfg.Database), int(timeout.Seconds()))

	if cfg.Username != "" {
		dsn += " user=" + quoteDSNValue(cfg.Username)
	}
	if cfg.Password != "" {
		dsn += " password=" + quoteDSNValue(cfg.Password)
	}
	return dsn
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// buildTLSConfig verifies the server against sslrootcert when one is given
// and accepts any certificate otherwise.
func buildTLSConfig(cfg core.PostgresConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{ServerName: cfg.Host} //nolint:gosec // verification is opt-in via sslrootcert
	if cfg.SSLRootCert == "" {
		tlsCfg.InsecureSkipVerify = true
		return tlsCfg, nil
	}

	pem, err := os.ReadFile(cfg.SSLRootCert)
	if err != nil {
		return nil, fmt.Errorf("failed to read sslrootcert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse sslrootcert %s", cfg.SSLRootCert)
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
}

const (
	schemataQuery = `SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast', 'pg_temp_1')`

	namespaceQuery = `SELECT nspname AS schema_name
		FROM pg_namespace
		WHERE nspname NOT LIKE 'pg_%'
		AND nspname != 'information_schema'`

	currentSchemaQuery = `SELECT current_schema() AS schema_name`
)

// ListSchemas returns the configured schema for Postgres. Redshift discovers
// every visible schema, trying progressively less privileged catalog views
// and settling on "public" when none answers.
func (a *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	if a.engine != core.EngineRedshift {
		schema := a.cfg.Schema
		if schema == "" {
			schema = core.DefaultPostgresSchema
		}
		return []string{schema}, nil
	}
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}
	return a.schemaChain().Or(ctx, []string{core.DefaultPostgresSchema}), nil
}

func (a *Adapter) schemaChain() fallback.Chain[[]string] {
	strategy := func(name, query string) fallback.Strategy[[]string] {
		return fallback.Strategy[[]string]{
			Name: name,
			Run: func(ctx context.Context) ([]string, error) {
				return a.QueryNames(ctx, query)
			},
		}
	}
	return fallback.Chain[[]string]{
		Op: "list schemas",
		Strategies: []fallback.Strategy[[]string]{
			strategy("information_schema.schemata", schemataQuery),
			strategy("pg_namespace", namespaceQuery),
			strategy("current_schema", currentSchemaQuery),
		},
		Accept: fallback.NonEmpty[string],
		Logger: a.Logger,
	}
}

// ListTables returns base tables in schema.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]string, error) {
	names, err := a.QueryNames(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, connerr.CatalogQuery("list tables", err)
	}
	return names, nil
}

// ListViews returns views in schema.
func (a *Adapter) ListViews(ctx context.Context, schema string) ([]string, error) {
	names, err := a.QueryNames(ctx, `SELECT table_name FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, connerr.CatalogQuery("list views", err)
	}
	return names, nil
}

const describeQuery = `
	SELECT
		c.column_name,
		c.data_type,
		c.is_nullable,
		c.ordinal_position,
		c.column_default,
		c.character_maximum_length,
		c.numeric_precision,
		c.numeric_scale,
		pk.key_sequence
	FROM information_schema.columns c
	LEFT JOIN (
		SELECT kcu.column_name, kcu.ordinal_position AS key_sequence
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
	) pk ON pk.column_name = c.column_name
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position`

// DescribeColumns retrieves column metadata including primary-key membership.
func (a *Adapter) DescribeColumns(ctx context.Context, schema, object string) ([]core.Column, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	rows, err := a.DB.QueryContext(ctx, describeQuery, schema, object)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var c adapter.CatalogColumn
		if err := rows.Scan(append(c.ScanTargets(), &c.KeySequence)...); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		c.PrimaryKey = c.KeySequence.Valid
		columns = append(columns, c.Column("nextval", "identity"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return a.emptyColumns(ctx, schema, object)
	}
	return columns, nil
}

// emptyColumns distinguishes a zero-column relation from a missing one.
func (a *Adapter) emptyColumns(ctx context.Context, schema, object string) ([]core.Column, error) {
	var exists bool
	err := a.DB.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2)`, schema, object).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check table existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("table %s.%s not found", schema, object)
	}
	return []core.Column{}, nil
}

// RunQuery executes sqlStr and reports the number of returned rows.
func (a *Adapter) RunQuery(ctx context.Context, sqlStr string) (*core.QueryResult, error) {
	result, err := a.BaseSQLAdapter.RunQuery(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	return result.WithRowCount(len(result.Data)), nil
}

// fieldType reports the column's type OID. The pgx driver names known types
// ("INT4") and falls back to the decimal OID for the rest.
func fieldType(ct *sql.ColumnType, _ int) int {
	name := ct.DatabaseTypeName()
	if oid, err := strconv.Atoi(name); err == nil {
		return oid
	}
	return typemap.PostgresOID(name)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
