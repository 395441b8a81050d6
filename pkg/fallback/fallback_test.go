package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/leapconnect/internal/testutil"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func static(name string, v []string, err error, calls *[]string) Strategy[[]string] {
	return Strategy[[]string]{
		Name: name,
		Run: func(context.Context) ([]string, error) {
			*calls = append(*calls, name)
			return v, err
		},
	}
}

func TestChain_Run(t *testing.T) {
	denied := errors.New("permission denied for relation schemata")

	tests := []struct {
		name      string
		build     func(calls *[]string) []Strategy[[]string]
		want      []string
		wantCalls []string
		wantErr   bool
	}{
		{
			name: "first strategy wins",
			build: func(c *[]string) []Strategy[[]string] {
				return []Strategy[[]string]{
					static("information_schema", []string{"analytics"}, nil, c),
					static("pg_namespace", []string{"never"}, nil, c),
				}
			},
			want:      []string{"analytics"},
			wantCalls: []string{"information_schema"},
		},
		{
			name: "error falls through to second",
			build: func(c *[]string) []Strategy[[]string] {
				return []Strategy[[]string]{
					static("information_schema", nil, denied, c),
					static("pg_namespace", []string{"public", "sales"}, nil, c),
					static("current_schema", []string{"never"}, nil, c),
				}
			},
			want:      []string{"public", "sales"},
			wantCalls: []string{"information_schema", "pg_namespace"},
		},
		{
			name: "empty result falls through",
			build: func(c *[]string) []Strategy[[]string] {
				return []Strategy[[]string]{
					static("information_schema", []string{}, nil, c),
					static("pg_namespace", nil, denied, c),
					static("current_schema", []string{"dev"}, nil, c),
				}
			},
			want:      []string{"dev"},
			wantCalls: []string{"information_schema", "pg_namespace", "current_schema"},
		},
		{
			name: "exhausted",
			build: func(c *[]string) []Strategy[[]string] {
				return []Strategy[[]string]{
					static("information_schema", nil, denied, c),
					static("current_schema", nil, nil, c),
				}
			},
			wantCalls: []string{"information_schema", "current_schema"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			chain := Chain[[]string]{
				Op:         "list schemas",
				Strategies: tt.build(&calls),
				Accept:     NonEmpty[string],
				Logger:     testutil.NewTestLogger(t),
			}

			got, attempts, err := chain.Run(context.Background())
			assert.Equal(t, tt.wantCalls, calls)
			assert.Len(t, attempts, len(tt.wantCalls))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, connerr.KindCatalogQuery, connerr.KindOf(err))
				assert.ErrorIs(t, err, denied)
				assert.ErrorIs(t, err, ErrEmpty)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, attempts[len(attempts)-1].Succeeded())
		})
	}
}

func TestChain_Or(t *testing.T) {
	chain := Chain[[]string]{
		Op: "list schemas",
		Strategies: []Strategy[[]string]{
			{Name: "a", Run: func(context.Context) ([]string, error) { return nil, errors.New("boom") }},
			{Name: "b", Run: func(context.Context) ([]string, error) { return nil, nil }},
		},
		Accept: NonEmpty[string],
		Logger: testutil.NewTestLogger(t),
	}
	assert.Equal(t, []string{"public"}, chain.Or(context.Background(), []string{"public"}))
}

func TestChain_NoStrategies(t *testing.T) {
	_, attempts, err := Chain[int]{Op: "noop"}.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, attempts)
}
