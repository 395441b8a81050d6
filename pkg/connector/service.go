// Package connector is the call boundary used by applications: test a
// connection, extract its schema or run a query. Every call creates and owns
// its adapter and releases it before returning.
package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/extract"
)

// Service runs connector calls against adapters taken from a registry.
type Service struct {
	registry *adapter.Registry
	logger   *slog.Logger
	newID    func() string
}

// New creates a Service. A nil registry uses adapter.Default(); a nil logger
// discards output.
func New(registry *adapter.Registry, logger *slog.Logger) *Service {
	if registry == nil {
		registry = adapter.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		registry: registry,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// open validates cfg and builds a fresh adapter with a per-call logger.
func (s *Service) open(cfg *core.ConnectionConfig, call string) (adapter.Adapter, *slog.Logger, error) {
	logger := s.logger.With(
		slog.String("call", call),
		slog.String("call_id", s.newID()),
		slog.String("engine", string(cfg.Engine)),
	)
	if cfg.Name != "" {
		logger = logger.With(slog.String("connection", cfg.Name))
	}

	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid connection config: %w", err)
	}
	*cfg = cfg.Clone()
	cfg.ApplyDefaults()

	adp, err := s.registry.New(cfg.Engine, logger)
	if err != nil {
		return nil, logger, err
	}
	return adp, logger, nil
}

// release disconnects adp. Cleanup failures are already logged by the
// adapter's scope.
func release(adp adapter.Adapter) {
	_ = adp.Disconnect()
}

// TestConnection reports whether cfg reaches a live engine that answers the
// reachability query. Only curated user-facing conditions (a directory
// instead of a DuckDB file, lock contention, denied permissions, bad key
// material) are returned as errors; every other failure yields false.
// An invalid or unknown config is also returned as an error.
func (s *Service) TestConnection(ctx context.Context, cfg core.ConnectionConfig) (bool, error) {
	adp, logger, err := s.open(&cfg, "test_connection")
	if err != nil {
		return false, err
	}
	defer release(adp)

	if err := adp.Connect(ctx, cfg); err != nil {
		return s.testFailed(logger, cfg.Engine, err)
	}
	ok, err := adp.TestQuery(ctx)
	if err != nil {
		return s.testFailed(logger, cfg.Engine, err)
	}
	logger.Info("connection tested", slog.Bool("ok", ok))
	return ok, nil
}

func (s *Service) testFailed(logger *slog.Logger, engine core.Engine, err error) (bool, error) {
	classified := connerr.Classify(engine, connerr.PhaseConnect, err)
	if connerr.IsUserFacing(classified) {
		logger.Warn("connection test failed", slog.String("error", connerr.Message(classified)))
		return false, classified
	}
	logger.Info("connection test failed", slog.String("error", err.Error()))
	return false, nil
}

// ExtractSchema returns every table and view cfg can see. It fails only when
// the engine cannot be reached or no objects could be enumerated; objects
// whose columns cannot be described are left out.
func (s *Service) ExtractSchema(ctx context.Context, cfg core.ConnectionConfig) (*core.Schema, error) {
	adp, logger, err := s.open(&cfg, "extract_schema")
	if err != nil {
		return nil, err
	}
	return extract.New(logger).Extract(ctx, adp, cfg)
}

// ExecuteQuery runs query and never returns an error: connection and query
// failures are reported in the result with Success false.
func (s *Service) ExecuteQuery(ctx context.Context, cfg core.ConnectionConfig, query string) *core.QueryResult {
	adp, logger, err := s.open(&cfg, "execute_query")
	if err != nil {
		return core.FailedResult(err.Error())
	}
	defer release(adp)

	if err := adp.Connect(ctx, cfg); err != nil {
		msg := connerr.Message(connerr.Classify(cfg.Engine, connerr.PhaseConnect, err))
		logger.Warn("failed to connect", slog.String("error", msg))
		return core.FailedResult(msg)
	}

	result, err := adp.RunQuery(ctx, query)
	if err != nil {
		msg := connerr.Message(connerr.Classify(cfg.Engine, connerr.PhaseQuery, err))
		logger.Info("query failed", slog.String("error", msg))
		return core.FailedResult(msg)
	}
	logger.Debug("query executed", slog.Int("rows", len(result.Data)))
	return result
}
