package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/askiada/go-mindpipe/internal/config"
	"github.com/askiada/go-mindpipe/pkg/pipeline"
	"github.com/askiada/go-mindpipe/pkg/pipeline/drawer"
	"github.com/askiada/go-mindpipe/pkg/pipeline/measure"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

type runFlags struct {
	profile     string
	outputDir   string
	baseDir     string
	timeout     time.Duration
	concurrency int
	dotFile     string
}

func newRunCmd(a *app) *cobra.Command {
	flags := &runFlags{}

	runCmd := &cobra.Command{
		Use:   "run <settings-file>",
		Short: "Run the stages of a settings file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a); err != nil {
				return err
			}

			return a.run(cmd, args[0])
		},
	}

	runCmd.Flags().StringVar(&flags.profile, "profile", "", "Execution profile: local or grid")
	runCmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory stage outputs are written to")
	runCmd.Flags().StringVar(&flags.baseDir, "base-dir", "", "Directory relative input locations are resolved against")
	runCmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Time each stage is given to complete")
	runCmd.Flags().IntVarP(&flags.concurrency, "concurrency", "j", 0, "Stages run at the same time")
	runCmd.Flags().StringVar(&flags.dotFile, "dot", "", "Write the run graph to this DOT file")

	return runCmd
}

// apply overrides the configuration with the flags set on the command line.
func (f *runFlags) apply(cmd *cobra.Command, a *app) error {
	set := cmd.Flags().Changed

	if set("profile") {
		a.cfg.Profile = f.profile
	}

	if set("output-dir") {
		a.cfg.OutputDir = f.outputDir
	}

	if set("base-dir") {
		a.cfg.BaseDir = f.baseDir
	}

	if set("timeout") {
		a.cfg.Timeout = config.Duration(f.timeout)
	}

	if set("concurrency") {
		a.cfg.Concurrency = f.concurrency
	}

	if set("dot") {
		a.cfg.DotFile = f.dotFile
	}

	return a.cfg.Validate()
}

func (a *app) run(cmd *cobra.Command, settingsPath string) error {
	msr := measure.NewDefaultMeasure()
	hooks := []model.PipelineOption{measure.PipelineMeasure(msr)}

	if a.cfg.DotFile != "" {
		hooks = append(hooks, drawer.PipelineDrawer(drawer.NewDOTDrawer(a.cfg.DotFile), msr))
	}

	p, err := a.build(cmd, settingsPath, hooks...)
	if err != nil {
		return err
	}

	runErr := p.Execute(cmd.Context(), a.cfg.Concurrency)

	if err := summary(cmd.OutOrStdout(), p, msr); err != nil {
		return err
	}

	return runErr
}

// summary prints the status and duration of every stage in run order.
func summary(w io.Writer, p *pipeline.Pipeline, msr measure.Measure) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tDURATION")

	for _, name := range p.Order() {
		info, err := p.StageInfo(name)
		if err != nil {
			return err
		}

		duration := "-"
		if mt := msr.GetMetric(name); mt != nil && mt.Runs() > 0 {
			duration = mt.AVGDuration().String()
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, info.Status, duration)
	}

	if end := msr.GetMetric(model.EndStage.Name); end != nil {
		fmt.Fprintf(tw, "total\t\t%s\n", end.GetTotalDuration().Round(time.Millisecond))
	}

	return tw.Flush()
}
