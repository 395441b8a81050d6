package commands

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapconnect/internal/config"
	"github.com/leapstack-labs/leapconnect/pkg/connector"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Parallel int
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Test every configured connection",
		Long: `Run a connection test against every connection in leapconnect.yaml.

Each connection is tested independently, several at a time. The report lists
the outcome and duration per connection and exits with status 1 when any
connection fails.`,
		Example: `  leapconnect doctor
  leapconnect doctor --parallel 1 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "Connections tested at the same time")
	return cmd
}

// Check statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusError  = "error"
)

// ConnectionCheck is the outcome of testing one connection.
type ConnectionCheck struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Status   string `json:"status" yaml:"status"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Duration string `json:"duration" yaml:"duration"`
}

// DoctorOutput is the report of the doctor command.
type DoctorOutput struct {
	Checks  []ConnectionCheck `json:"checks" yaml:"checks"`
	Healthy int               `json:"healthy" yaml:"healthy"`
	Failed  int               `json:"failed" yaml:"failed"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if len(cmdCtx.Cfg.Connections) == 0 {
		return fmt.Errorf("no connections configured\nHint: Add a connections list to %s", config.ConfigFileName)
	}

	report := checkConnections(cmd.Context(), cmdCtx.Service, cmdCtx.Cfg.Connections, opts.Parallel)
	if err := renderDoctor(cmdCtx.Renderer, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return &ExitError{Code: 1}
	}
	return nil
}

// checkConnections tests conns with at most parallel calls in flight. The
// report keeps the configured order.
func checkConnections(ctx context.Context, svc *connector.Service, conns []core.ConnectionConfig, parallel int) *DoctorOutput {
	if parallel < 1 {
		parallel = 1
	}
	checks := make([]ConnectionCheck, len(conns))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, conn := range conns {
		g.Go(func() error {
			checks[i] = checkConnection(ctx, svc, conn)
			return nil
		})
	}
	_ = g.Wait()

	report := &DoctorOutput{Checks: checks}
	for _, c := range checks {
		if c.Status == StatusOK {
			report.Healthy++
		} else {
			report.Failed++
		}
	}
	return report
}

func checkConnection(ctx context.Context, svc *connector.Service, conn core.ConnectionConfig) ConnectionCheck {
	start := time.Now()
	ok, err := svc.TestConnection(ctx, conn)
	check := ConnectionCheck{
		Name:     conn.Name,
		Type:     string(conn.Engine),
		Status:   StatusOK,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	switch {
	case err != nil:
		check.Status = StatusError
		check.Message = connerr.Message(err)
	case !ok:
		check.Status = StatusFailed
	}
	return check
}

func renderDoctor(r *Renderer, report *DoctorOutput) error {
	switch r.Format() {
	case config.OutputJSON:
		return r.JSON(report)
	case config.OutputYAML:
		return r.YAML(report)
	}

	titleCaser := cases.Title(language.English)
	data := make([]map[string]any, len(report.Checks))
	for i, c := range report.Checks {
		data[i] = map[string]any{
			"name":     c.Name,
			"type":     c.Type,
			"status":   titleCaser.String(c.Status),
			"duration": c.Duration,
			"message":  c.Message,
		}
	}
	if err := r.Rows([]string{"name", "type", "status", "duration", "message"}, data); err != nil {
		return err
	}
	if r.Format() == config.OutputTable {
		_, _ = fmt.Fprintf(r.Out(), "%d healthy, %d failed\n", report.Healthy, report.Failed)
	}
	return nil
}
