package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/schemasync/internal/cli/ui"
)

// NewDeletedCommand creates the deleted command
func NewDeletedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "deleted",
		Short: "List soft-deleted tables and columns",
		Long: `List the tables and columns that were renamed out of the way instead of
being dropped. Requires sync.manage_deletions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer env.Close()

			if env.audit == nil {
				return errors.New("the deletion log is disabled; set sync.manage_deletions to true")
			}

			tables, err := env.audit.DeletedTables(cmd.Context())
			if err != nil {
				return err
			}
			columns, err := env.audit.DeletedColumns(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tables) == 0 && len(columns) == 0 {
				fmt.Fprintln(out, "Nothing has been soft-deleted")
				return nil
			}

			if len(tables) > 0 {
				t := ui.NewTable(out, opts.noColor, "TABLE", "RENAMED TO", "DELETED AT")
				for _, d := range tables {
					t.AddRow(d.OriginalName, d.CurrentName, d.DeletedAt.Format(time.RFC3339))
				}
				t.Render()
			}

			if len(columns) > 0 {
				if len(tables) > 0 {
					fmt.Fprintln(out)
				}
				t := ui.NewTable(out, opts.noColor, "TABLE", "COLUMN", "RENAMED TO", "DELETED AT")
				for _, d := range columns {
					t.AddRow(d.CurrentTableName, d.OriginalName, d.CurrentName, d.DeletedAt.Format(time.RFC3339))
				}
				t.Render()
			}
			return nil
		},
	}
}
