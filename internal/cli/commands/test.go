package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/spf13/cobra"
)

// NewTestCommand creates the test command.
func NewTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that a connection works",
		Long: `Connect with the selected connection and run a trivial query.

Prints "ok" when the engine answers, "failed" otherwise, and exits with
status 1 on failure. Conditions with a known cause (a directory given as a
DuckDB file, a locked DuckDB file, denied permissions, bad key material)
are reported with an explanation.`,
		Example: `  leapconnect test -c warehouse`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			conn, err := cmdCtx.Connection()
			if err != nil {
				return err
			}

			ok, err := cmdCtx.Service.TestConnection(cmd.Context(), conn)
			if err != nil {
				if connerr.IsUserFacing(err) {
					cmdCtx.Renderer.Errorf("%s\n", connerr.Message(err))
					_, _ = fmt.Fprintln(cmdCtx.Renderer.Out(), "failed")
					return &ExitError{Code: 1}
				}
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(cmdCtx.Renderer.Out(), "failed")
				return &ExitError{Code: 1}
			}
			_, _ = fmt.Fprintln(cmdCtx.Renderer.Out(), "ok")
			return nil
		},
	}
}
