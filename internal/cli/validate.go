package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <settings-file>",
		Short: "Build the pipeline of a settings file without running it",
		Long: `validate resolves the stages of a settings file, links them by datatype and
prints them in the order they would run, each with the stages it waits for.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.build(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, name := range p.Order() {
				line := fmt.Sprintf("%d. %s", i+1, name)
				if parents := p.Parents(name); len(parents) > 0 {
					line += " <- " + strings.Join(parents, ", ")
				}

				fmt.Fprintln(out, line)
			}

			return nil
		},
	}
}
