package commands

import (
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/schemasync/internal/catalog"
	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(opts *options) *cobra.Command {
	var (
		asSQL bool
		out   string
	)

	cmd := &cobra.Command{
		Use:   "inspect [group...]",
		Short: "Show the record types of the catalog",
		Long: `Render every record type of the catalog (or of the named groups).

By default a listing of types and their columns is printed. With --sql the
CREATE TABLE statements for the configured database driver are printed
instead. No database connection is made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}

			file, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defs, err := file.Only(args...).Definitions()
			if err != nil {
				return err
			}

			var rendered string
			if asSQL {
				dialect, err := codegen.DialectForDriver(cfg.Database.Driver)
				if err != nil {
					return err
				}
				rendered, err = renderSQL(codegen.NewDDLGenerator(dialect), defs)
				if err != nil {
					return err
				}
			} else {
				rendered = renderText(defs)
			}

			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), rendered)
				return err
			}
			if err := atomic.WriteFile(out, strings.NewReader(rendered)); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d record type(s) to %s\n", len(defs), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asSQL, "sql", false, "Print CREATE TABLE statements")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")

	return cmd
}

func renderText(defs []*schema.Definition) string {
	parts := make([]string, len(defs))
	for i, def := range defs {
		parts[i] = codegen.RenderDefinition(def)
	}
	return strings.Join(parts, "\n")
}

func renderSQL(gen *codegen.DDLGenerator, defs []*schema.Definition) (string, error) {
	parts := make([]string, len(defs))
	for i, def := range defs {
		s, err := gen.RenderSQL(def)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, "\n"), nil
}
