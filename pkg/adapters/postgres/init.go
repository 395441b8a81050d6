package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/core"
)

func init() {
	adapter.Register(core.EnginePostgres, func(l *slog.Logger) adapter.Adapter { return New(l) })
	adapter.Register(core.EngineRedshift, func(l *slog.Logger) adapter.Adapter { return NewRedshift(l) })
}
