package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapconnect/internal/config"
	"github.com/leapstack-labs/leapconnect/pkg/connerr"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Extract tables, views and columns",
		Long: `Extract the catalog of the selected connection.

Every table and view is listed with its columns in ordinal order. Objects
whose columns cannot be read are skipped; run with -v to see why.`,
		Example: `  leapconnect schema -c warehouse
  leapconnect schema -c lake -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			conn, err := cmdCtx.Connection()
			if err != nil {
				return err
			}

			schema, err := cmdCtx.Service.ExtractSchema(cmd.Context(), conn)
			if err != nil {
				return fmt.Errorf("failed to extract schema: %s", connerr.Message(err))
			}
			return renderSchema(cmdCtx.Renderer, schema)
		},
	}
}

func renderSchema(r *Renderer, schema *core.Schema) error {
	switch r.Format() {
	case config.OutputJSON:
		return r.JSON(schema)
	case config.OutputYAML:
		return r.YAML(schema)
	case config.OutputTable:
	default:
		return fmt.Errorf("output format %q is not supported for schema (use table, json or yaml)", r.Format())
	}

	if len(schema.Tables) == 0 {
		_, _ = fmt.Fprintln(r.Out(), "(no tables)")
		return nil
	}
	for i, tbl := range schema.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(r.Out())
		}
		title := "Table"
		if tbl.Type == core.TableTypeView {
			title = "View"
		}
		_, _ = fmt.Fprintf(r.Out(), "%s: %s\n", title, tbl.QualifiedName())

		t := r.newTable("#", "Column", "Type", "Nullable", "Key")
		for _, col := range tbl.Columns {
			key := ""
			if col.PrimaryKey {
				key = fmt.Sprintf("PK %d", col.PrimaryKeySequenceID)
			}
			if col.Autoincrement {
				key += " auto"
			}
			t.AppendRow([]any{col.OrdinalPosition, col.Name, col.TypeName, yesNo(col.Nullable), key})
		}
		t.Render()
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
