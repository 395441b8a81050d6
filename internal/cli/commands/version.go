package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapconnect version and the engines compiled into this binary.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapconnect v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Engines: %s\n", strings.Join(adapter.ListAdapters(), ", "))
		},
	}
}
