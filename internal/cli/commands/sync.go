package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/schemasync/internal/cli/ui"
	"github.com/conduit-lang/schemasync/internal/orm/hooks"
	"github.com/conduit-lang/schemasync/internal/orm/migrate"
	"github.com/conduit-lang/schemasync/internal/orm/registry"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// NewSyncCommand creates the sync command
func NewSyncCommand(opts *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync [group...]",
		Short: "Create missing tables, columns and junction tables",
		Long: `Bring the database in line with the catalog.

Every record type of the catalog (or of the named groups) gets its table,
missing columns and implicit junction tables. Types with depends_on wait
until the types they depend on have been synced. Existing columns are
never altered or removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer env.Close()

			return runSync(cmd.Context(), env, ui.NewStatus(cmd.OutOrStdout(), opts.noColor), dryRun, args)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without touching the database")

	return cmd
}

func runSync(ctx context.Context, env *environment, status *ui.Status, dryRun bool, groups []string) error {
	file, err := env.loadCatalog()
	if err != nil {
		return err
	}
	file = file.Only(groups...)

	defs, err := file.Definitions()
	if err != nil {
		return err
	}

	plans := make([]*migrate.Plan, len(defs))
	for i, def := range defs {
		if plans[i], err = env.syncer.Plan(ctx, def); err != nil {
			return err
		}
	}

	if dryRun {
		for _, plan := range plans {
			reportPlan(status, plan)
		}
		return nil
	}

	if err := file.Register(env.registry); err != nil {
		return err
	}
	if err := announce(ctx, env, defs); err != nil {
		return err
	}

	for _, plan := range plans {
		def := plan.Definition
		if _, ok := env.registry.Produced(def.Group, def.Name); !ok {
			status.Line(ui.OutcomeDeferred, "%s.%s waiting for its dependencies", def.Group, def.Name)
			continue
		}
		reportPlan(status, plan)
	}
	return nil
}

// announce bootstraps the registry and then reports every synced type as
// available until no further producer becomes ready
func announce(ctx context.Context, env *environment, defs []*schema.Definition) error {
	if err := env.registry.Bootstrap(ctx); err != nil {
		var missing *registry.MissingDependencyError
		if !errors.As(err, &missing) {
			return err
		}
		env.logger.Info("bootstrap left producers deferred", zap.Error(err))
	}

	announced := make(map[*schema.Definition]bool, len(defs))
	for progress := true; progress; {
		progress = false
		for _, def := range defs {
			if announced[def] {
				continue
			}
			if _, ok := env.registry.Produced(def.Group, def.Name); !ok {
				continue
			}
			announced[def] = true
			progress = true

			err := env.bus.Emit(ctx, hooks.Event{
				Kind:     hooks.TypeAvailable,
				Sender:   def.Group,
				Group:    def.Group,
				TypeName: def.Name,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func reportPlan(status *ui.Status, plan *migrate.Plan) {
	def := plan.Definition
	if plan.Empty() {
		status.Line(ui.OutcomeUnchanged, "%s.%s (%s) up to date", def.Group, def.Name, def.Table)
		return
	}
	status.Line(ui.OutcomeChanged, "%s.%s (%s)", def.Group, def.Name, def.Table)
	for _, change := range plan.Changes {
		status.Detail("%s", change)
	}
}
