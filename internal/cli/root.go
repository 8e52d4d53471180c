// Package cli holds the cobra commands of the mindpipe binary.
package cli

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-mindpipe/internal/config"
	"github.com/askiada/go-mindpipe/internal/ctxlog"
	"github.com/askiada/go-mindpipe/pkg/pipeline"
	"github.com/askiada/go-mindpipe/pkg/pipeline/command"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

// app is the state shared by the commands of one invocation.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd builds the mindpipe command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mindpipe",
		Short: "Run pipelines of command line tools",
		Long: `mindpipe chains external command line tools into a pipeline. Stages are
declared in a catalog, selected in a settings file and linked by the
datatypes they produce and consume.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file merged over the user and project files")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newValidateCmd(a))
	rootCmd.AddCommand(newStagesCmd(a))
	rootCmd.AddCommand(newGraphCmd(a))

	return rootCmd
}

// Execute runs the command named on the command line.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	paths := config.DefaultPaths()

	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			return errors.Wrap(err, "unable to read config")
		}

		paths = append(paths, a.configPath)
	}

	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	a.cfg = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(ctxlog.WithLogger(ctx, ctxlog.New(cfg.LogLevel, cmd.ErrOrStderr())))

	return nil
}

// registry loads every configured catalog into one registry.
func (a *app) registry() (*params.Set, error) {
	internal, external := a.cfg.Catalogs()
	sets := []*params.Set{}

	if internal != "" {
		set, err := params.LoadInternalSet(internal, a.cfg.PipelineDir)
		if err != nil {
			return nil, err
		}

		sets = append(sets, set)
	}

	if external != "" {
		set, err := params.LoadExternalSet(external, a.cfg.PipelineDir)
		if err != nil {
			return nil, err
		}

		sets = append(sets, set)
	}

	return params.Union(sets...)
}

// build resolves the pipeline of the settings file.
func (a *app) build(cmd *cobra.Command, settingsPath string, hooks ...model.PipelineOption) (*pipeline.Pipeline, error) {
	profile, err := command.ParseProfile(a.cfg.Profile)
	if err != nil {
		return nil, err
	}

	registry, err := a.registry()
	if err != nil {
		return nil, err
	}

	settings, err := model.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}

	return pipeline.New(cmd.Context(), settings, registry,
		pipeline.WithProfile(profile),
		pipeline.WithOutputLocation(a.cfg.OutputDir),
		pipeline.WithBaseDir(a.cfg.BaseDir),
		pipeline.WithTimeout(a.cfg.Timeout.Duration()),
		pipeline.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		pipeline.WithPipelineOptions(hooks...),
	)
}
