package connector

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapconnect/internal/testutil"
	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter is scripted per test; it counts disconnects.
type stubAdapter struct {
	connectErr  error
	testOK      bool
	testErr     error
	queryErr    error
	disconnects int
	seen        core.ConnectionConfig
}

func (s *stubAdapter) Engine() core.Engine { return core.EnginePostgres }
func (s *stubAdapter) Connect(_ context.Context, cfg core.ConnectionConfig) error {
	s.seen = cfg
	return s.connectErr
}
func (s *stubAdapter) Disconnect() error                             { s.disconnects++; return nil }
func (s *stubAdapter) TestQuery(context.Context) (bool, error)       { return s.testOK, s.testErr }
func (s *stubAdapter) ListSchemas(context.Context) ([]string, error) { return []string{"public"}, nil }
func (s *stubAdapter) ListTables(context.Context, string) ([]string, error) {
	return []string{"users"}, nil
}
func (s *stubAdapter) ListViews(context.Context, string) ([]string, error) { return nil, nil }
func (s *stubAdapter) DescribeColumns(context.Context, string, string) ([]core.Column, error) {
	return []core.Column{core.NewColumn("id", "integer", 1)}, nil
}

func (s *stubAdapter) RunQuery(context.Context, string) (*core.QueryResult, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return core.SucceededResult([]map[string]any{{"n": 1}}, []core.Field{{Name: "n", Type: 23}}), nil
}

func serviceWith(t *testing.T, stub *stubAdapter) *Service {
	t.Helper()
	reg := adapter.NewRegistry()
	reg.Register(core.EnginePostgres, func(*slog.Logger) adapter.Adapter { return stub })
	return New(reg, testutil.NewTestLogger(t))
}

func pgCfg() core.ConnectionConfig {
	return core.ConnectionConfig{
		Name:     "warehouse",
		Engine:   core.EnginePostgres,
		Postgres: &core.PostgresConfig{Host: "localhost", Database: "analytics"},
	}
}

func TestTestConnection_Reachable(t *testing.T) {
	stub := &stubAdapter{testOK: true}
	ok, err := serviceWith(t, stub).TestConnection(context.Background(), pgCfg())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, stub.disconnects)
}

func TestTestConnection_ConnectFailureIsFalse(t *testing.T) {
	stub := &stubAdapter{connectErr: errors.New("password authentication failed")}
	ok, err := serviceWith(t, stub).TestConnection(context.Background(), pgCfg())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, stub.disconnects)
}

func TestTestConnection_UserFacingIsReturned(t *testing.T) {
	stub := &stubAdapter{connectErr: connerr.UserFacing("curated", nil)}
	ok, err := serviceWith(t, stub).TestConnection(context.Background(), pgCfg())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, "curated", connerr.Message(err))
}

func TestTestConnection_QueryErrorIsFalse(t *testing.T) {
	stub := &stubAdapter{testErr: errors.New("boom")}
	ok, err := serviceWith(t, stub).TestConnection(context.Background(), pgCfg())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTestConnection_DefaultsDoNotLeakIntoCallerConfig(t *testing.T) {
	stub := &stubAdapter{testOK: true}
	cfg := pgCfg()

	ok, err := serviceWith(t, stub).TestConnection(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 5432, stub.seen.Postgres.Port)
	assert.Equal(t, core.DefaultPostgresSchema, stub.seen.Postgres.Schema)
	assert.Equal(t, 0, cfg.Postgres.Port)
	assert.Empty(t, cfg.Postgres.Schema)
}

func TestTestConnection_InvalidConfig(t *testing.T) {
	svc := serviceWith(t, &stubAdapter{})
	_, err := svc.TestConnection(context.Background(), core.ConnectionConfig{Engine: core.EnginePostgres})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing postgres settings")
}

func TestTestConnection_UnregisteredEngine(t *testing.T) {
	svc := serviceWith(t, &stubAdapter{})
	cfg := core.ConnectionConfig{Engine: core.EngineSnowflake, Snowflake: &core.SnowflakeConfig{}}
	_, err := svc.TestConnection(context.Background(), cfg)

	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "snowflake", unknown.Type)
}

func TestExecuteQuery_Success(t *testing.T) {
	stub := &stubAdapter{}
	res := serviceWith(t, stub).ExecuteQuery(context.Background(), pgCfg(), "SELECT 1 AS n")
	require.True(t, res.Success)
	assert.Equal(t, []map[string]any{{"n": 1}}, res.Data)
	assert.Equal(t, 1, stub.disconnects)
}

func TestExecuteQuery_FailuresAreData(t *testing.T) {
	tests := []struct {
		name string
		stub *stubAdapter
		want string
	}{
		{"connect", &stubAdapter{connectErr: errors.New("no route to host")}, "no route to host"},
		{"query", &stubAdapter{queryErr: errors.New(`syntax error at or near "SELEC"`)}, `syntax error at or near "SELEC"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := serviceWith(t, tt.stub).ExecuteQuery(context.Background(), pgCfg(), "SELEC 1")
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.want)
			assert.Nil(t, res.Data)
			assert.Equal(t, 1, tt.stub.disconnects)
		})
	}
}

func TestExecuteQuery_InvalidConfig(t *testing.T) {
	res := serviceWith(t, &stubAdapter{}).ExecuteQuery(context.Background(), core.ConnectionConfig{}, "SELECT 1")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "type not specified")
}

func TestExtractSchema(t *testing.T) {
	stub := &stubAdapter{}
	schema, err := serviceWith(t, stub).ExtractSchema(context.Background(), pgCfg())
	require.NoError(t, err)
	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "public.users", schema.Tables[0].QualifiedName())
	assert.Equal(t, 1, stub.disconnects)
}

func TestService_CallIDTagging(t *testing.T) {
	svc := serviceWith(t, &stubAdapter{testOK: true})
	var ids []string
	svc.newID = func() string {
		id := "call-" + string(rune('a'+len(ids)))
		ids = append(ids, id)
		return id
	}

	_, _ = svc.TestConnection(context.Background(), pgCfg())
	_ = svc.ExecuteQuery(context.Background(), pgCfg(), "SELECT 1")
	assert.Equal(t, []string{"call-a", "call-b"}, ids)
}

func TestService_LogsCarryCallContext(t *testing.T) {
	logger, rec := testutil.NewRecorder()
	reg := adapter.NewRegistry()
	reg.Register(core.EnginePostgres, func(*slog.Logger) adapter.Adapter { return &stubAdapter{testOK: true} })
	svc := New(reg, logger)
	svc.newID = func() string { return "fixed-id" }

	_, err := svc.TestConnection(context.Background(), pgCfg())
	require.NoError(t, err)

	records := rec.Records(slog.LevelInfo)
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, "connection tested", last.Message)
	assert.Equal(t, "fixed-id", last.Attrs["call_id"])
	assert.Equal(t, "postgres", last.Attrs["engine"])
	assert.Equal(t, "warehouse", last.Attrs["connection"])
	assert.Equal(t, "test_connection", last.Attrs["call"])
}

// DuckDB end to end: a real file, a real directory.

func duckService(t *testing.T) *Service {
	t.Helper()
	reg := adapter.NewRegistry()
	reg.Register(core.EngineDuckDB, func(l *slog.Logger) adapter.Adapter { return duckdb.New(l) })
	return New(reg, testutil.NewTestLogger(t))
}

func duckCfg(path string) core.ConnectionConfig {
	return core.ConnectionConfig{Engine: core.EngineDuckDB, DuckDB: &core.DuckDBConfig{DatabasePath: path}}
}

func seedDuckDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.duckdb")
	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, email VARCHAR NOT NULL)",
		"CREATE TABLE orders (id INTEGER, user_id INTEGER, total DECIMAL(10,2))",
		"CREATE VIEW big_orders AS SELECT * FROM orders WHERE total > 100",
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())
	return path
}

func TestDuckDB_TestConnection(t *testing.T) {
	ok, err := duckService(t).TestConnection(context.Background(), duckCfg(seedDuckDB(t)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDuckDB_DirectoryIsReturned(t *testing.T) {
	_, err := duckService(t).TestConnection(context.Background(), duckCfg(t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, connerr.Message(err), "is a directory")
}

func TestDuckDB_EmptyPathIsFalse(t *testing.T) {
	ok, err := duckService(t).TestConnection(context.Background(), duckCfg(""))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDuckDB_ExtractSchema(t *testing.T) {
	schema, err := duckService(t).ExtractSchema(context.Background(), duckCfg(seedDuckDB(t)))
	require.NoError(t, err)

	byName := map[string]core.Table{}
	for _, tbl := range schema.Tables {
		byName[tbl.Name] = tbl
	}
	require.Len(t, byName, 3)
	assert.Equal(t, core.TableTypeTable, byName["users"].Type)
	assert.Equal(t, core.TableTypeView, byName["big_orders"].Type)

	users := byName["users"].Columns
	require.Len(t, users, 2)
	assert.Equal(t, "id", users[0].Name)
	assert.Equal(t, "email", users[1].Name)
	assert.False(t, users[1].Nullable)
}

func TestDuckDB_InvalidQueryIsData(t *testing.T) {
	res := duckService(t).ExecuteQuery(context.Background(), duckCfg(seedDuckDB(t)), "SELEC 1")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestDuckDB_ExecuteQuery(t *testing.T) {
	res := duckService(t).ExecuteQuery(context.Background(), duckCfg(seedDuckDB(t)), "SELECT count(*) AS n FROM users")
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
	assert.EqualValues(t, 0, res.Data[0]["n"])
}
