package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/lifecycle"
	"github.com/leapstack-labs/leapconnect/pkg/typemap"
)

// ErrNotConnected is returned by operations invoked before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Querier is satisfied by *sql.DB and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed it in concrete adapters to get Disconnect, TestQuery and RunQuery.
type BaseSQLAdapter struct {
	DB *sql.DB
	// Conn, when set, pins every query to one session of DB.
	Conn   *sql.Conn
	Logger *slog.Logger
	// Scope owns every handle opened by Connect.
	Scope *lifecycle.Scope
	// FieldType maps a result column to its Field.Type code. Nil uses the
	// column's position.
	FieldType func(ct *sql.ColumnType, index int) int
}

// NewBase returns a BaseSQLAdapter with a fresh scope. If logger is nil, a
// discard logger is used.
func NewBase(logger *slog.Logger) BaseSQLAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return BaseSQLAdapter{Logger: logger, Scope: lifecycle.NewScope(logger)}
}

// Track registers release with the adapter's scope.
func (b *BaseSQLAdapter) Track(name string, release func() error) *lifecycle.Handle {
	if b.Scope == nil {
		b.Scope = lifecycle.NewScope(b.Logger)
	}
	return b.Scope.Add(name, release)
}

// Attach makes db the adapter's session and tracks its release.
func (b *BaseSQLAdapter) Attach(name string, db *sql.DB) {
	b.DB = db
	b.Track(name, db.Close)
}

// AttachConn pins a single session from DB and tracks its release. The
// session is released before the pool that owns it.
func (b *BaseSQLAdapter) AttachConn(ctx context.Context, name string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	b.Conn = conn
	b.Track(name, conn.Close)
	return nil
}

// Session returns the pinned connection if any, else the pool.
func (b *BaseSQLAdapter) Session() Querier {
	if b.Conn != nil {
		return b.Conn
	}
	if b.DB != nil {
		return b.DB
	}
	return nil
}

// Disconnect releases every tracked handle, last opened first.
func (b *BaseSQLAdapter) Disconnect() error {
	b.DB = nil
	b.Conn = nil
	if b.Scope == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection")
	}
	return b.Scope.Close()
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Ping verifies the session within timeout and wraps failure as a
// connection error.
func (b *BaseSQLAdapter) Ping(ctx context.Context, timeout time.Duration) error {
	q := b.Session()
	if q == nil {
		return connerr.Connection("connect", ErrNotConnected)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := q.PingContext(ctx); err != nil {
		return connerr.Connection("connect", fmt.Errorf("failed to ping: %w", err))
	}
	return nil
}

// TestQuery runs the reachability probe.
func (b *BaseSQLAdapter) TestQuery(ctx context.Context) (bool, error) {
	q := b.Session()
	if q == nil {
		return false, ErrNotConnected
	}
	var v any
	if err := q.QueryRowContext(ctx, ReachabilityQuery).Scan(&v); err != nil {
		return false, fmt.Errorf("failed to run reachability query: %w", err)
	}
	return IsOne(v), nil
}

// RunQuery executes sqlStr and normalizes the result set.
func (b *BaseSQLAdapter) RunQuery(ctx context.Context, sqlStr string) (*core.QueryResult, error) {
	q := b.Session()
	if q == nil {
		return nil, ErrNotConnected
	}
	rows, err := q.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	data, types, err := ScanMaps(rows)
	if err != nil {
		return nil, err
	}

	fields := make([]core.Field, len(types))
	for i, ct := range types {
		code := typemap.Positional(i)
		if b.FieldType != nil {
			code = b.FieldType(ct, i)
		}
		fields[i] = core.Field{Name: ct.Name(), Type: code}
	}
	return core.SucceededResult(data, fields), nil
}

// QueryNames runs a single-column catalog query and returns its values.
func (b *BaseSQLAdapter) QueryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	q := b.Session()
	if q == nil {
		return nil, ErrNotConnected
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		if name.Valid && name.String != "" {
			names = append(names, name.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating names: %w", err)
	}
	return names, nil
}

// ScanMaps drains rows into name->value maps. Byte slices become strings.
func ScanMaps(rows *sql.Rows) ([]map[string]any, []*sql.ColumnType, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get column types: %w", err)
	}

	data := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(types))
		for i, ct := range types {
			row[ct.Name()] = NormalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return data, types, nil
}

// NormalizeValue converts driver values into their caller-facing form.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case *big.Int:
		if val == nil {
			return nil
		}
		return val.String()
	default:
		return v
	}
}

// IsOne reports whether a probe scalar equals 1 regardless of its width or
// textual representation.
func IsOne(v any) bool {
	switch n := v.(type) {
	case int:
		return n == 1
	case int8:
		return n == 1
	case int16:
		return n == 1
	case int32:
		return n == 1
	case int64:
		return n == 1
	case uint8:
		return n == 1
	case uint16:
		return n == 1
	case uint32:
		return n == 1
	case uint64:
		return n == 1
	case float32:
		return n == 1
	case float64:
		return n == 1
	case *big.Int:
		return n != nil && n.IsInt64() && n.Int64() == 1
	case []byte:
		return strings.TrimSpace(string(n)) == "1"
	case string:
		return strings.TrimSpace(n) == "1"
	}
	return false
}
