// Package bigquery provides the Google BigQuery adapter. Only service-account
// authentication is supported.
package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	bq "cloud.google.com/go/bigquery"
	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/lifecycle"
	"github.com/leapstack-labs/leapconnect/pkg/typemap"
)

// Adapter implements adapter.Adapter for BigQuery.
type Adapter struct {
	logger    *slog.Logger
	scope     *lifecycle.Scope
	cfg       core.BigQueryConfig
	client    Client
	newClient ClientFactory
}

// New creates a BigQuery adapter. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return NewWithClient(logger, NewClient)
}

// NewWithClient creates an adapter that builds its client with factory.
func NewWithClient(logger *slog.Logger, factory ClientFactory) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		logger:    logger,
		scope:     lifecycle.NewScope(logger),
		newClient: factory,
	}
}

// Engine returns core.EngineBigQuery.
func (a *Adapter) Engine() core.Engine {
	return core.EngineBigQuery
}

// ValidateCredentials rejects unsupported authentication methods and key
// material that is not JSON. It performs no network calls.
func ValidateCredentials(cfg core.BigQueryConfig) ([]byte, error) {
	if cfg.Method != core.BigQueryServiceAccount || cfg.Keyfile == "" {
		return nil, connerr.UserFacing(connerr.MsgUnsupportedAuth, nil)
	}
	var key map[string]any
	if err := json.Unmarshal([]byte(cfg.Keyfile), &key); err != nil {
		return nil, connerr.UserFacing(connerr.MsgInvalidKeyJSON, err)
	}
	return []byte(cfg.Keyfile), nil
}

// Connect validates the credentials and creates the API client.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	if cfg.BigQuery == nil {
		return connerr.Connection("connect", fmt.Errorf("missing bigquery settings"))
	}
	a.cfg = *cfg.BigQuery

	keyJSON, err := ValidateCredentials(a.cfg)
	if err != nil {
		return err
	}

	a.logger.Debug("connecting to bigquery",
		slog.String("project", a.cfg.Project),
		slog.String("location", a.cfg.Location))

	client, err := lifecycle.Acquire(a.scope, "bigquery client",
		func() (Client, error) { return a.newClient(ctx, a.cfg, keyJSON) },
		func(c Client) error { return c.Close() })
	if err != nil {
		return connerr.Connection("connect", err)
	}
	a.client = client
	return nil
}

// Disconnect closes the API client.
func (a *Adapter) Disconnect() error {
	a.client = nil
	return a.scope.Close()
}

// TestQuery runs the reachability probe.
func (a *Adapter) TestQuery(ctx context.Context) (bool, error) {
	if a.client == nil {
		return false, adapter.ErrNotConnected
	}
	res, err := a.client.Query(ctx, adapter.ReachabilityQuery)
	if err != nil {
		return false, fmt.Errorf("failed to run reachability query: %w", err)
	}
	if len(res.Rows) == 0 {
		return false, nil
	}
	return adapter.IsOne(res.Rows[0]["connection_test"]), nil
}

// ListSchemas returns the configured dataset, or every dataset in the project.
func (a *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	if a.cfg.Dataset != "" {
		return []string{a.cfg.Dataset}, nil
	}
	if a.client == nil {
		return nil, adapter.ErrNotConnected
	}
	names, err := a.client.Datasets(ctx)
	if err != nil {
		return nil, connerr.CatalogQuery("list datasets", err)
	}
	return names, nil
}

// ListTables returns base tables in dataset.
func (a *Adapter) ListTables(ctx context.Context, dataset string) ([]string, error) {
	return a.names(ctx, "list tables", fmt.Sprintf(
		"SELECT table_name FROM %s.INFORMATION_SCHEMA.TABLES WHERE table_type = 'BASE TABLE' ORDER BY table_name",
		adapter.QuoteBacktick(dataset)))
}

// ListViews returns views in dataset.
func (a *Adapter) ListViews(ctx context.Context, dataset string) ([]string, error) {
	return a.names(ctx, "list views", fmt.Sprintf(
		"SELECT table_name FROM %s.INFORMATION_SCHEMA.VIEWS ORDER BY table_name",
		adapter.QuoteBacktick(dataset)))
}

func (a *Adapter) names(ctx context.Context, op, query string) ([]string, error) {
	if a.client == nil {
		return nil, adapter.ErrNotConnected
	}
	res, err := a.client.Query(ctx, query)
	if err != nil {
		return nil, connerr.CatalogQuery(op, err)
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if name, ok := row["table_name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// DescribeColumns reads the table schema. BigQuery has no enforced primary
// keys, so PrimaryKey is always false.
func (a *Adapter) DescribeColumns(ctx context.Context, dataset, table string) ([]core.Column, error) {
	if a.client == nil {
		return nil, adapter.ErrNotConnected
	}
	schema, err := a.client.TableSchema(ctx, dataset, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get table metadata: %w", err)
	}

	columns := make([]core.Column, 0, len(schema))
	for i, f := range schema {
		col := core.NewColumn(f.Name, string(f.Type), i+1)
		col.Nullable = !f.Required
		col.Precision = int(f.Precision)
		col.Scale = int(f.Scale)
		switch {
		case f.MaxLength > 0:
			col.ColumnDisplaySize = int(f.MaxLength)
		case f.Precision > 0:
			col.ColumnDisplaySize = int(f.Precision)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// RunQuery executes sql and normalizes the rows in schema order.
func (a *Adapter) RunQuery(ctx context.Context, sql string) (*core.QueryResult, error) {
	if a.client == nil {
		return nil, adapter.ErrNotConnected
	}
	res, err := a.client.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	fields := make([]core.Field, len(res.Schema))
	for i, f := range res.Schema {
		fields[i] = core.Field{Name: f.Name, Type: typemap.BigQuery(string(f.Type))}
	}

	data := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		data = append(data, normalizeRow(row))
	}
	return core.SucceededResult(data, fields), nil
}

func normalizeRow(row map[string]bq.Value) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = adapter.NormalizeValue(v)
	}
	return out
}

var _ adapter.Adapter = (*Adapter)(nil)
