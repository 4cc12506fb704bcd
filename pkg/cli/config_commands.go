package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const redacted = "<redacted>"

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	var forDeploy bool
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			errs := app.cfg.Validate()
			if forDeploy {
				errs = app.cfg.ValidateForDeploy()
			}
			if err := app.configError(errs); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, successStyle.Render("✓")+" configuration is valid")
			return nil
		},
	}
	validate.Flags().BoolVar(&forDeploy, "deploy", false, "also require a signing key")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after defaults and environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *app.cfg
			if cfg.Deployer.PrivateKey != "" {
				cfg.Deployer.PrivateKey = redacted
			}
			if cfg.Deployer.Password != "" {
				cfg.Deployer.Password = redacted
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = app.Out.Write(out)
			return err
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}
