package cli

import (
	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
)

// annotation marking commands that run without loading configuration
const skipSetup = "fsdeploy/skip-setup"

// NewRootCommand builds the fsdeploy command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "fsdeploy",
		Short: "Deploy the FileShare contracts to an Ethereum network",
		Long: `fsdeploy compiles the FileShare and KYC contracts and deploys them in order,
recording every deployment so repeated runs only apply what is new.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return app.setup(cmd.Flags().Changed("config"))
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.ErrOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", DefaultConfigFile, "configuration file")
	flags.StringVarP(&app.network, "network", "n", config.DefaultNetwork, "network to deploy to")
	flags.StringVar(&app.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCommand(app),
		newCompileCommand(app),
		newNetworksCommand(app),
		newStatusCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return root
}
