package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/chain"
	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/deployer"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
	"github.com/DeBrosOfficial/fsdeploy/pkg/logging"
	"github.com/DeBrosOfficial/fsdeploy/pkg/migrations"
)

type migrateFlags struct {
	reset  bool
	from   int
	to     int
	dryRun bool
	yes    bool
}

func newMigrateCommand(app *App) *cobra.Command {
	var flags migrateFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Deploy pending migrations to the selected network",
		Long: `Deploy every pending migration in version order. Each contract is deployed only
after the previous one is mined, so constructor arguments can refer to earlier
deployments as $Name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runMigrate(cmd, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.reset, "reset", false, "forget previous deployments and run every migration again")
	cmd.Flags().IntVarP(&flags.from, "from", "f", 0, "first migration version to consider")
	cmd.Flags().IntVarP(&flags.to, "to", "t", 0, "last migration version to consider")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "show the addresses contracts would get without sending transactions")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *App) runMigrate(cmd *cobra.Command, flags migrateFlags) error {
	ctx := cmd.Context()

	if err := a.configError(a.cfg.ValidateForDeploy()); err != nil {
		return err
	}
	plan, err := a.plan()
	if err != nil {
		return err
	}
	signer, err := chain.LoadSigner(a.cfg.Deployer)
	if err != nil {
		return err
	}

	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	state, err := a.openState(ctx)
	if err != nil {
		return err
	}
	defer state.Close()

	if a.network != config.DefaultNetwork && flags.yes && !flags.dryRun {
		a.logger.ComponentWarn(logging.ComponentMigrate, "Deploying without confirmation",
			zap.String("network", a.network), zap.String("network_id", conn.NetworkID))
	}
	if a.network != config.DefaultNetwork && !flags.yes && !flags.dryRun {
		entries, err := migrations.PlanStatus(ctx, plan, state, conn.NetworkID)
		if err != nil {
			return err
		}
		req := ConfirmRequest{
			Network:   a.network,
			URL:       conn.URL,
			NetworkID: conn.NetworkID,
			Deployer:  signer.Address.Hex(),
			Reset:     flags.reset,
		}
		for _, e := range entries {
			if inRange(e.Migration.Version, flags) && (flags.reset || e.Completed == nil) {
				req.Pending = append(req.Pending, e.Migration.ID())
			}
		}
		ok, err := a.Confirm(req)
		if err != nil {
			return err
		}
		if !ok {
			return errors.WrapCode(errors.ErrAborted, errors.CodeAborted, "deployment to "+a.network+" cancelled")
		}
	}

	dep := deployer.New(conn.Backend, signer, conn.ChainID, deployer.OptionsFromConfig(a.cfg.Deployer), a.logger.For(logging.ComponentDeployer))
	runner, err := migrations.NewRunner(migrations.Config{
		Plan:      plan,
		Artifacts: a.artifactStore(),
		Deployer:  dep,
		State:     state,
		Network:   a.network,
		NetworkID: conn.NetworkID,
		Logger:    a.logger.For(logging.ComponentMigrate),
	})
	if err != nil {
		return err
	}

	report, runErr := runner.Run(ctx, migrations.Options{
		Reset:  flags.reset,
		From:   flags.from,
		To:     flags.to,
		DryRun: flags.dryRun,
	})
	if report != nil {
		fmt.Fprintln(a.Out, renderReport(report))
	}
	if runErr != nil {
		fields := []zap.Field{zap.String("network", a.network), zap.Error(runErr)}
		if report != nil {
			fields = append(fields, zap.String("run_id", report.RunID))
		}
		a.logger.ComponentError(logging.ComponentMigrate, "Migrations failed", fields...)
		return runErr
	}

	a.logger.ComponentInfo(logging.ComponentMigrate, "Migrations finished",
		zap.String("network", a.network),
		zap.Int("deployed", len(report.Deployments())),
		zap.Bool("dry_run", flags.dryRun),
	)
	return nil
}

func inRange(version int, flags migrateFlags) bool {
	if flags.from > 0 && version < flags.from {
		return false
	}
	if flags.to > 0 && version > flags.to {
		return false
	}
	return true
}
