package databricks

import (
	"log/slog"

	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/core"
)

func init() {
	adapter.Register(core.EngineDatabricks, func(l *slog.Logger) adapter.Adapter { return New(l) })
}
