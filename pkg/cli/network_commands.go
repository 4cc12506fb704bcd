package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newNetworksCommand(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "Show deployed contract addresses",
		Long: `Show the contracts recorded for the selected network. With --all, list the
deployment records kept in the build artifacts for every network instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return app.printArtifactNetworks()
			}

			ctx := cmd.Context()
			networkID, err := app.networkID(ctx)
			if err != nil {
				return err
			}
			state, err := app.openState(ctx)
			if err != nil {
				return err
			}
			defer state.Close()

			contracts, err := state.Contracts(ctx, networkID)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, renderContracts(networkID, contracts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list artifact records for every network")
	return cmd
}

func (a *App) printArtifactNetworks() error {
	list, err := a.artifactStore().List()
	if err != nil {
		return err
	}

	t := newTable("NETWORK ID", "CONTRACT", "ADDRESS", "TRANSACTION")
	rows := 0
	for _, art := range list {
		ids := make([]string, 0, len(art.Networks))
		for id := range art.Networks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			rec := art.Networks[id]
			t.Row(id, art.ContractName, rec.Address, rec.TransactionHash)
			rows++
		}
	}
	if rows == 0 {
		fmt.Fprintln(a.Out, "No deployments recorded in "+a.cfg.Paths.Build+".")
		return nil
	}
	fmt.Fprintln(a.Out, t.Render())
	return nil
}
