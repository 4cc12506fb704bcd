package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/fsdeploy/pkg/compiler"
	"github.com/DeBrosOfficial/fsdeploy/pkg/logging"
)

func newCompileCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile contracts into build artifacts",
		Long:  "Compile every .sol file under paths.contracts with the configured solc release and write one artifact per contract to paths.build.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.configError(app.cfg.Validate()); err != nil {
				return err
			}

			solc := compiler.NewSolc(app.cfg.Compilers.Solc, app.Solc, app.logger.For(logging.ComponentCompiler))
			compiled, err := solc.Compile(cmd.Context(), app.cfg.Paths.Contracts)
			if err != nil {
				return err
			}
			if err := app.artifactStore().Merge(compiled); err != nil {
				return err
			}

			t := newTable("CONTRACT", "SOURCE", "BYTECODE", "COMPILER")
			for _, a := range compiled {
				size := (len(a.Bytecode) - 2) / 2
				if size < 0 {
					size = 0
				}
				t.Row(a.ContractName, a.SourcePath, strconv.Itoa(size)+" bytes", a.Compiler.Version)
			}
			fmt.Fprintln(app.Out, t.Render())
			fmt.Fprintf(app.Out, "Wrote %d artifact(s) to %s\n", len(compiled), app.cfg.Paths.Build)
			return nil
		},
	}
}
