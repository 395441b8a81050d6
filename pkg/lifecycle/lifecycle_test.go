package lifecycle

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapconnect/internal/testutil"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_ReleasesInnerToOuter(t *testing.T) {
	scope := NewScope(testutil.NewTestLogger(t))

	var order []string
	scope.Add("instance", func() error { order = append(order, "instance"); return nil })
	scope.Add("connection", func() error { order = append(order, "connection"); return nil })
	scope.Add("statement", func() error { order = append(order, "statement"); return nil })

	require.NoError(t, scope.Close())
	assert.Equal(t, []string{"statement", "connection", "instance"}, order)
	assert.Equal(t, 0, scope.Len())
}

func TestScope_CloseIsIdempotent(t *testing.T) {
	scope := NewScope(nil)
	calls := 0
	scope.Add("conn", func() error { calls++; return errors.New("already closed by server") })

	err := scope.Close()
	require.Error(t, err)
	assert.Equal(t, connerr.KindResourceCleanup, connerr.KindOf(err))

	assert.NoError(t, scope.Close())
	assert.Equal(t, 1, calls)
}

func TestScope_ReleaseFailureDoesNotStopOthers(t *testing.T) {
	scope := NewScope(testutil.NewTestLogger(t))
	var released []string
	scope.Add("outer", func() error { released = append(released, "outer"); return nil })
	scope.Add("inner", func() error { return errors.New("close failed") })

	err := scope.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release inner")
	assert.Equal(t, []string{"outer"}, released)
}

func TestScope_CloseIntoNeverMasks(t *testing.T) {
	tests := []struct {
		name     string
		original error
	}{
		{"original error kept", errors.New("query failed")},
		{"clean run stays clean", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := func() (err error) {
				scope := NewScope(testutil.NewTestLogger(t))
				defer scope.CloseInto(&err)
				scope.Add("conn", func() error { return errors.New("close failed") })
				return tt.original
			}
			assert.Equal(t, tt.original, run())
		})
	}
}

func TestAcquire(t *testing.T) {
	scope := NewScope(nil)

	_, err := Acquire(scope, "broken", func() (int, error) { return 0, errors.New("open failed") },
		func(int) error { t.Fatal("release must not run for a failed open"); return nil })
	require.Error(t, err)
	assert.Equal(t, 0, scope.Len())

	closed := 0
	v, err := Acquire(scope, "ok", func() (int, error) { return 42, nil },
		func(v int) error { closed = v; return nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, scope.Len())

	require.NoError(t, scope.Close())
	assert.Equal(t, 42, closed)
}

func TestHandle_ReleaseTwiceAndNil(t *testing.T) {
	calls := 0
	h := NewHandle("conn", func() error { calls++; return nil })

	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	assert.Equal(t, 1, calls)
	assert.True(t, h.Released())

	var nilHandle *Handle
	assert.NoError(t, nilHandle.Release())
	assert.True(t, nilHandle.Released())

	never := NewHandle("never-opened", nil)
	assert.NoError(t, never.Release())
}

func TestScope_AddAfterClose(t *testing.T) {
	scope := NewScope(nil)
	require.NoError(t, scope.Close())

	released := false
	scope.Add("late", func() error { released = true; return nil })
	assert.True(t, released)
}

func TestRelease(t *testing.T) {
	Release(testutil.NewTestLogger(t), "session", func() error { return errors.New("boom") })
	Release(nil, "session", nil)
}
