package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapconnect/internal/config"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input string
	stdin io.Reader
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{stdin: os.Stdin}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run a SQL query",
		Long: `Run a SQL query against the selected connection.

The query comes from the arguments, from a file given with --input, or from
piped standard input. A failed query prints the engine's message and exits
with status 1.`,
		Example: `  # Execute SQL directly
  leapconnect query -c warehouse "SELECT * FROM users LIMIT 10"

  # From a file, as CSV
  leapconnect query -c warehouse -i report.sql -o csv

  # From a pipe
  echo "SELECT 1" | leapconnect query -c lake`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	sqlQuery, err := readQuery(args, opts)
	if err != nil {
		return err
	}

	cmdCtx := NewCommandContext(cmd)
	conn, err := cmdCtx.Connection()
	if err != nil {
		return err
	}

	result := cmdCtx.Service.ExecuteQuery(cmd.Context(), conn, sqlQuery)
	if !result.Success {
		if cmdCtx.Renderer.Format() == config.OutputJSON {
			_ = cmdCtx.Renderer.JSON(result)
		} else {
			cmdCtx.Renderer.Errorf("Error: %s\n", result.Error)
		}
		return &ExitError{Code: 1}
	}
	return renderQueryResult(cmdCtx.Renderer, result)
}

// readQuery picks the SQL source: arguments, then --input, then piped stdin.
func readQuery(args []string, opts *QueryOptions) (string, error) {
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case opts.stdin != nil && !isInteractive(opts.stdin):
		content, err := io.ReadAll(opts.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	}

	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return "", fmt.Errorf("no query given\nHint: pass SQL as an argument, use --input, or pipe it on stdin")
	}
	return sqlQuery, nil
}

func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isTerminal(f)
}

func renderQueryResult(r *Renderer, result *core.QueryResult) error {
	switch r.Format() {
	case config.OutputJSON:
		return r.JSON(result)
	case config.OutputYAML:
		return r.YAML(result)
	}

	cols := make([]string, len(result.Fields))
	for i, f := range result.Fields {
		cols[i] = f.Name
	}
	return r.Rows(cols, result.Data)
}
