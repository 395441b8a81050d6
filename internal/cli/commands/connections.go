package commands

import (
	"github.com/leapstack-labs/leapconnect/internal/config"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
)

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "List configured connections",
		Long: `List the connections defined in leapconnect.yaml.

Secrets are never printed; only the name, engine and target location are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return renderConnections(cmdCtx.Renderer, cmdCtx.Cfg)
		},
	}
}

type connectionSummary struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Target string `json:"target" yaml:"target"`
}

func renderConnections(r *Renderer, cfg *config.Config) error {
	summaries := make([]connectionSummary, 0, len(cfg.Connections))
	for _, conn := range cfg.Connections {
		summaries = append(summaries, connectionSummary{
			Name:   conn.Name,
			Type:   string(conn.Engine),
			Target: describeTarget(conn),
		})
	}

	switch r.Format() {
	case config.OutputJSON:
		return r.JSON(summaries)
	case config.OutputYAML:
		return r.YAML(summaries)
	}

	data := make([]map[string]any, len(summaries))
	for i, s := range summaries {
		data[i] = map[string]any{"name": s.Name, "type": s.Type, "target": s.Target}
	}
	return r.Rows([]string{"name", "type", "target"}, data)
}

// describeTarget returns a secret-free location for conn.
func describeTarget(conn core.ConnectionConfig) string {
	switch conn.Engine {
	case core.EnginePostgres:
		if c := conn.Postgres; c != nil {
			return joinTarget(c.Host, c.Database)
		}
	case core.EngineRedshift:
		if c := conn.Redshift; c != nil {
			return joinTarget(c.Host, c.Database)
		}
	case core.EngineSnowflake:
		if c := conn.Snowflake; c != nil {
			return joinTarget(c.Account, c.Database)
		}
	case core.EngineBigQuery:
		if c := conn.BigQuery; c != nil {
			return joinTarget(c.Project, c.Dataset)
		}
	case core.EngineDatabricks:
		if c := conn.Databricks; c != nil {
			return joinTarget(c.Host, c.HTTPPath)
		}
	case core.EngineDuckDB:
		if c := conn.DuckDB; c != nil {
			return c.DatabasePath
		}
	}
	return ""
}

func joinTarget(host, rest string) string {
	if rest == "" {
		return host
	}
	return host + "/" + rest
}
