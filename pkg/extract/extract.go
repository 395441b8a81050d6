// Package extract runs a full catalog extraction against one adapter.
//
// The pipeline connects, lists schemas, enumerates tables and views of each
// schema concurrently, describes every object sequentially and always
// disconnects. A failed describe omits that object only.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"golang.org/x/sync/errgroup"
)

// State is a pipeline stage.
type State int

// Pipeline states, in order.
const (
	Idle State = iota
	Connecting
	Connected
	Enumerating
	Describing
	Aggregated
	Closing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Enumerating:
		return "enumerating"
	case Describing:
		return "describing"
	case Aggregated:
		return "aggregated"
	case Closing:
		return "closing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNothingEnumerated is returned when neither tables nor views could be
// listed in any schema.
var ErrNothingEnumerated = errors.New("failed to enumerate tables and views")

// Object is one catalog object to describe.
type Object struct {
	Schema string
	Name   string
	Type   core.TableType
}

// Pipeline extracts a core.Schema through an adapter.
type Pipeline struct {
	logger *slog.Logger

	// OnState observes every transition. Nil ignores them.
	OnState func(State)
}

// New creates a pipeline. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{logger: logger}
}

func (p *Pipeline) enter(s State) {
	p.logger.Debug("extraction state", slog.String("state", s.String()))
	if p.OnState != nil {
		p.OnState(s)
	}
}

// Extract connects adp with cfg and returns every describable table and view.
// The adapter is disconnected on every path out of Extract.
func (p *Pipeline) Extract(ctx context.Context, adp adapter.Adapter, cfg core.ConnectionConfig) (_ *core.Schema, err error) {
	p.enter(Idle)
	p.enter(Connecting)
	defer func() {
		p.enter(Closing)
		_ = adp.Disconnect()
		p.enter(Done)
	}()

	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, connerr.Connection("connect", connerr.Classify(cfg.Engine, connerr.PhaseConnect, err))
	}
	p.enter(Connected)

	schemas, err := adp.ListSchemas(ctx)
	if err != nil {
		return nil, connerr.CatalogQuery("list schemas", err)
	}

	p.enter(Enumerating)
	objects, err := p.enumerate(ctx, adp, schemas)
	if err != nil {
		return nil, err
	}

	p.enter(Describing)
	tables := p.describe(ctx, adp, objects)

	p.enter(Aggregated)
	p.logger.Info("schema extracted",
		slog.Int("objects", len(objects)),
		slog.Int("tables", len(tables)))
	return &core.Schema{Tables: tables}, nil
}

// enumerate lists tables and views of every schema. Within a schema the two
// listings run concurrently and neither cancels the other.
func (p *Pipeline) enumerate(ctx context.Context, adp adapter.Adapter, schemas []string) ([]Object, error) {
	var (
		objects []Object
		errs    []error
		listed  bool
	)
	for _, schema := range schemas {
		var (
			tables, views       []string
			tablesErr, viewsErr error
			g                   errgroup.Group
		)
		g.Go(func() error {
			tables, tablesErr = adp.ListTables(ctx, schema)
			return nil
		})
		g.Go(func() error {
			views, viewsErr = adp.ListViews(ctx, schema)
			return nil
		})
		_ = g.Wait()

		if tablesErr != nil && viewsErr != nil {
			p.logger.Warn("failed to enumerate schema",
				slog.String("schema", schema),
				slog.String("tables_error", tablesErr.Error()),
				slog.String("views_error", viewsErr.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", schema, errors.Join(tablesErr, viewsErr)))
			continue
		}
		listed = true
		if tablesErr != nil {
			p.logger.Warn("failed to list tables", slog.String("schema", schema), slog.String("error", tablesErr.Error()))
		}
		if viewsErr != nil {
			p.logger.Warn("failed to list views", slog.String("schema", schema), slog.String("error", viewsErr.Error()))
		}

		for _, name := range tables {
			objects = append(objects, Object{Schema: schema, Name: name, Type: core.TableTypeTable})
		}
		for _, name := range views {
			objects = append(objects, Object{Schema: schema, Name: name, Type: core.TableTypeView})
		}
	}

	if !listed && len(schemas) > 0 {
		return nil, connerr.CatalogQuery("enumerate objects", errors.Join(append([]error{ErrNothingEnumerated}, errs...)...))
	}
	return objects, nil
}

// describe fetches columns for each object in turn. Failures are logged and
// the object is left out.
func (p *Pipeline) describe(ctx context.Context, adp adapter.Adapter, objects []Object) []core.Table {
	tables := make([]core.Table, 0, len(objects))
	for _, obj := range objects {
		cols, err := adp.DescribeColumns(ctx, obj.Schema, obj.Name)
		if err != nil {
			perr := connerr.Partial(obj.Schema+"."+obj.Name, err)
			p.logger.Warn("skipping object", slog.String("error", perr.Error()))
			continue
		}

		named := cols[:0]
		for _, c := range cols {
			if c.Name != "" {
				named = append(named, c)
			}
		}
		core.SortColumns(named)

		tables = append(tables, core.Table{
			Name:    obj.Name,
			Schema:  obj.Schema,
			Type:    obj.Type,
			Columns: named,
		})
	}
	return tables
}
