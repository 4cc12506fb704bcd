package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/fsdeploy/pkg/migrations"
)

func newStatusCommand(app *App) *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which migrations have been applied to the selected network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			plan, err := app.plan()
			if err != nil {
				return err
			}
			networkID, err := app.networkID(ctx)
			if err != nil {
				return err
			}
			state, err := app.openState(ctx)
			if err != nil {
				return err
			}
			defer state.Close()

			entries, err := migrations.PlanStatus(ctx, plan, state, networkID)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, renderPlanStatus(networkID, entries))

			if runs > 0 {
				history, err := state.Runs(ctx, networkID, runs)
				if err != nil {
					return err
				}
				if len(history) > 0 {
					fmt.Fprintln(app.Out, renderRuns(history))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 5, "number of recent runs to show (0 hides them)")
	return cmd
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the fsdeploy version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			version := app.Build.Version
			if version == "" {
				version = "dev"
			}
			fmt.Fprintf(app.Out, "fsdeploy %s", version)
			if app.Build.Commit != "" {
				fmt.Fprintf(app.Out, " (commit %s)", app.Build.Commit)
			}
			if app.Build.Date != "" {
				fmt.Fprintf(app.Out, " built %s", app.Build.Date)
			}
			fmt.Fprintln(app.Out)
		},
	}
}
