package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopAdapter struct {
	BaseSQLAdapter
	engine core.Engine
}

func (n *nopAdapter) Engine() core.Engine { return n.engine }

func (n *nopAdapter) Connect(context.Context, core.ConnectionConfig) error { return nil }

func (n *nopAdapter) ListSchemas(context.Context) ([]string, error) { return nil, nil }

func (n *nopAdapter) ListTables(context.Context, string) ([]string, error) { return nil, nil }

func (n *nopAdapter) ListViews(context.Context, string) ([]string, error) { return nil, nil }

func (n *nopAdapter) DescribeColumns(context.Context, string, string) ([]core.Column, error) {
	return nil, nil
}

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type 'fake_db'")
	assert.Contains(t, msg, "leapconnect.yaml", "error should mention config file")
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(core.EngineDuckDB, func(_ *slog.Logger) Adapter { return nil })
	reg.Register(core.EnginePostgres, func(_ *slog.Logger) Adapter { return nil })

	assert.Equal(t, []string{"duckdb", "postgres"}, reg.Names())

	factory, ok := reg.Get(core.EngineDuckDB)
	assert.True(t, ok)
	assert.NotNil(t, factory)

	_, ok = reg.Get(core.EngineSnowflake)
	assert.False(t, ok)
}

func TestRegistry_New(t *testing.T) {
	reg := NewRegistry()
	reg.Register(core.EnginePostgres, func(l *slog.Logger) Adapter {
		return &nopAdapter{BaseSQLAdapter: NewBase(l), engine: core.EnginePostgres}
	})

	tests := []struct {
		name    string
		engine  core.Engine
		wantErr string
	}{
		{"registered", core.EnginePostgres, ""},
		{"empty type", "", "adapter type not specified"},
		{"unknown", "oracle", `unknown adapter type "oracle"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp, err := reg.New(tt.engine, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.engine, adp.Engine())
		})
	}

	_, err := reg.New("oracle", nil)
	var unknownErr *UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, []string{"postgres"}, unknownErr.Available)
}

func TestDefaultRegistry(t *testing.T) {
	const engine core.Engine = "test_adapter_internal"
	Register(engine, func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered(engine))
	assert.Contains(t, ListAdapters(), string(engine))

	factory, ok := Get(engine)
	assert.True(t, ok)
	assert.NotNil(t, factory)

	_, err := NewAdapter(core.ConnectionConfig{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}
