package cli

import (
	"github.com/spf13/cobra"

	"github.com/askiada/go-mindpipe/pkg/pipeline/drawer"
)

func newGraphCmd(a *app) *cobra.Command {
	var output string

	graphCmd := &cobra.Command{
		Use:   "graph <settings-file>",
		Short: "Write the stage graph of a settings file in the DOT language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := drawer.NewDOTWriterDrawer(cmd.OutOrStdout())
			if output != "" {
				d = drawer.NewDOTDrawer(output)
			}

			p, err := a.build(cmd, args[0], drawer.PipelineDrawer(d, nil))
			if err != nil {
				return err
			}

			return p.Finish()
		},
	}

	graphCmd.Flags().StringVarP(&output, "output", "o", "", "DOT file to write instead of stdout")

	return graphCmd
}
