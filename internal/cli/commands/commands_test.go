package commands

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapconnect/internal/config"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register the duckdb adapter for end-to-end command tests.
	_ "github.com/leapstack-labs/leapconnect/pkg/adapters/duckdb"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		use  string
		flag string
	}{
		{NewConnectionsCommand(), "connections", ""},
		{NewTestCommand(), "test", ""},
		{NewSchemaCommand(), "schema", ""},
		{NewQueryCommand(), "query [SQL]", "input"},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			if tt.flag != "" {
				assert.NotNil(t, tt.cmd.Flags().Lookup(tt.flag), "flag %q should exist", tt.flag)
			}
		})
	}
}

func seedLake(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lake.duckdb")
	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER, email VARCHAR)",
		"INSERT INTO users VALUES (1, 'a@example.com'), (2, 'b@example.com')",
		"CREATE VIEW user_ids AS SELECT id FROM users",
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())
	return path
}

func lakeConfig(path, output string) *config.Config {
	return &config.Config{
		LogLevel:  "info",
		LogFormat: "text",
		Output:    output,
		Connections: []core.ConnectionConfig{{
			Name:   "lake",
			Engine: core.EngineDuckDB,
			DuckDB: &core.DuckDBConfig{DatabasePath: path, Schema: core.DefaultDuckDBSchema},
		}},
	}
}

func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	// Mirror the root command, which owns usage and error printing.
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(WithConfig(context.Background(), cfg))
	return out.String(), errOut.String(), err
}

func TestTestCommand_OK(t *testing.T) {
	out, _, err := execute(t, NewTestCommand(), lakeConfig(seedLake(t), "table"))
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestTestCommand_Directory(t *testing.T) {
	out, errOut, err := execute(t, NewTestCommand(), lakeConfig(t.TempDir(), "table"))

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "failed\n", out)
	assert.Contains(t, errOut, "is a directory")
	assert.NotContains(t, errOut, "Usage:")
}

func TestSchemaCommand_JSON(t *testing.T) {
	out, _, err := execute(t, NewSchemaCommand(), lakeConfig(seedLake(t), "json"))
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "users"`)
	assert.Contains(t, out, `"type": "VIEW"`)
	assert.Contains(t, out, `"ordinalPosition": 2`)
}

func TestSchemaCommand_Table(t *testing.T) {
	out, _, err := execute(t, NewSchemaCommand(), lakeConfig(seedLake(t), "table"))
	require.NoError(t, err)
	assert.Contains(t, out, "Table: main.users")
	assert.Contains(t, out, "View: main.user_ids")
	assert.Contains(t, out, "email")
}

func TestSchemaCommand_RejectsCSV(t *testing.T) {
	_, _, err := execute(t, NewSchemaCommand(), lakeConfig(seedLake(t), "csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported for schema")
}

func TestQueryCommand_CSV(t *testing.T) {
	out, _, err := execute(t, NewQueryCommand(), lakeConfig(seedLake(t), "csv"),
		"SELECT id, email FROM users ORDER BY id")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,email", lines[0])
	assert.Equal(t, "1,a@example.com", lines[1])
}

func TestQueryCommand_FailureExitsOne(t *testing.T) {
	_, errOut, err := execute(t, NewQueryCommand(), lakeConfig(seedLake(t), "table"), "SELEC 1")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, errOut, "Error:")
}

func TestQueryCommand_FailureAsJSON(t *testing.T) {
	out, _, err := execute(t, NewQueryCommand(), lakeConfig(seedLake(t), "json"), "SELEC 1")
	require.Error(t, err)
	assert.Contains(t, out, `"success": false`)
}

func TestConnectionsCommand(t *testing.T) {
	out, _, err := execute(t, NewConnectionsCommand(), lakeConfig("/data/lake.duckdb", "json"))
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "lake"`)
	assert.Contains(t, out, `"target": "/data/lake.duckdb"`)
}

func TestReadQuery(t *testing.T) {
	q, err := readQuery([]string{"SELECT", "1"}, &QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)

	file := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, writeFile(file, "  SELECT 2;\n"))
	q, err = readQuery(nil, &QueryOptions{Input: file})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2;", q)

	q, err = readQuery(nil, &QueryOptions{stdin: strings.NewReader("SELECT 3")})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 3", q)

	_, err = readQuery(nil, &QueryOptions{stdin: strings.NewReader("   ")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query given")

	_, err = readQuery(nil, &QueryOptions{Input: filepath.Join(t.TempDir(), "missing.sql")})
	require.Error(t, err)
}

func TestDescribeTarget(t *testing.T) {
	tests := []struct {
		name string
		conn core.ConnectionConfig
		want string
	}{
		{"postgres", core.ConnectionConfig{Engine: core.EnginePostgres, Postgres: &core.PostgresConfig{Host: "db", Database: "app", Password: "x"}}, "db/app"},
		{"snowflake", core.ConnectionConfig{Engine: core.EngineSnowflake, Snowflake: &core.SnowflakeConfig{Account: "acme"}}, "acme"},
		{"bigquery", core.ConnectionConfig{Engine: core.EngineBigQuery, BigQuery: &core.BigQueryConfig{Project: "p", Dataset: "d"}}, "p/d"},
		{"missing settings", core.ConnectionConfig{Engine: core.EngineRedshift}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeTarget(tt.conn))
		})
	}
}
