package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStagesCmd(a *app) *cobra.Command {
	var verbose bool

	stagesCmd := &cobra.Command{
		Use:   "stages",
		Short: "List the stages of the configured catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, stage := range registry.Processes() {
				if verbose {
					fmt.Fprintf(out, "%#v\n", stage)

					continue
				}

				fmt.Fprintln(out, stage.Name())
			}

			return nil
		},
	}

	stagesCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the inputs and outputs of every stage")

	return stagesCmd
}
