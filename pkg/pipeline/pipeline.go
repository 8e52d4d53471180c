package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-mindpipe/internal/ctxlog"
	"github.com/askiada/go-mindpipe/pkg/pipeline/command"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

// DefaultOutputLocation is the directory stage outputs are written to when none is given.
const DefaultOutputLocation = "mindpipe_output"

// Registry resolves a stage name to its catalog definition.
type Registry interface {
	Get(name string) (*params.Params, error)
}

// Pipeline is a resolved graph of stages ready to be run once.
type Pipeline struct {
	runID          string
	profile        command.Profile
	outputLocation string
	baseDir        string
	timeout        time.Duration
	renderer       Renderer
	stdout         io.Writer
	stderr         io.Writer
	hooks          []model.PipelineOption
	logger         *slog.Logger

	dag     graph.Graph[string, *params.Params]
	stages  map[string]*params.Params
	infos   map[string]*model.StageInfo
	parents map[string]map[string][]string
	order   []string
	depth   map[string]int

	ran        atomic.Bool
	finishOnce sync.Once
	finishErr  error
}

// New builds the pipeline of the stages named in settings. Every stage is a
// copy of its registry definition merged with its overrides. Relative input
// locations are resolved under the base directory and each stage writes to its
// own directory under the output location.
func New(ctx context.Context, settings model.Settings, registry Registry, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		runID:          uuid.NewString(),
		profile:        command.ProfileLocal,
		outputLocation: DefaultOutputLocation,
		timeout:        command.DefaultTimeout,
		renderer:       NewTemplateRenderer(),
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		stages:         map[string]*params.Params{},
		infos:          map[string]*model.StageInfo{},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = ctxlog.FromContext(ctx).With(slog.String("run_id", p.runID))

	if !p.profile.Valid() {
		return nil, errors.Wrapf(command.ErrInvalidProfile, "unsupported profile %q", p.profile)
	}

	if len(settings) == 0 {
		return nil, ErrNoStages
	}

	if err := p.resolveDirs(); err != nil {
		return nil, err
	}

	for _, hook := range p.hooks {
		if err := hook.New(); err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	for _, name := range settings.Names() {
		if err := p.addStage(name, settings[name], registry); err != nil {
			return nil, err
		}
	}

	if err := p.buildDAG(); err != nil {
		return nil, err
	}

	if err := p.attach(); err != nil {
		return nil, err
	}

	if err := p.prepare(); err != nil {
		return nil, err
	}

	p.logger.Info("pipeline built",
		slog.Int("stages", len(p.order)),
		slog.Any("order", p.order),
		slog.String("profile", p.profile.String()),
		slog.String("output_location", p.outputLocation),
	)

	return p, nil
}

func (p *Pipeline) resolveDirs() error {
	if p.baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "unable to get working directory")
		}

		p.baseDir = wd
	}

	baseDir, err := filepath.Abs(p.baseDir)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve base directory %s", p.baseDir)
	}

	p.baseDir = baseDir

	outputLocation, err := filepath.Abs(p.outputLocation)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve output location %s", p.outputLocation)
	}

	p.outputLocation = outputLocation

	return nil
}

func (p *Pipeline) addStage(name string, settings model.StageSettings, registry Registry) error {
	tmpl, err := registry.Get(name)
	if err != nil {
		return errors.Wrapf(err, "unable to find stage %s", name)
	}

	stage := tmpl.Clone()

	if err := stage.Merge(settings); err != nil {
		return errors.Wrapf(err, "unable to merge settings of %s", name)
	}

	stage.ResolveInputs(p.baseDir)
	stage.ResolveOutputs(p.outputLocation)

	p.stages[name] = stage
	p.infos[name] = stageInfo(stage)

	p.logger.Debug("stage added", slog.String("stage", name), slog.String("output_dir", stage.OutputLocation()))

	return nil
}

func stageInfo(stage *params.Params) *model.StageInfo {
	info := &model.StageInfo{
		Name:   stage.Name(),
		Status: model.StatusPending,
	}

	for _, in := range stage.Inputs() {
		info.Inputs = append(info.Inputs, in.Datatype)
	}

	for _, out := range stage.Outputs() {
		info.Outputs = append(info.Outputs, out.Datatype)
	}

	return info
}

func (p *Pipeline) prepare() error {
	for _, name := range p.order {
		stage := p.stages[name]

		if err := p.renderer.Prepare(stage); err != nil {
			return errors.Wrapf(err, "unable to prepare the command of %s", name)
		}

		parents := []*model.StageInfo{}
		for _, parent := range p.Parents(name) {
			parents = append(parents, p.infos[parent])
		}

		if len(parents) == 0 {
			parents = append(parents, model.StartStage)
		}

		for _, hook := range p.hooks {
			if err := hook.PrepareStage(parents, p.infos[name]); err != nil {
				return errors.Wrapf(err, "unable to prepare stage %s", name)
			}
		}
	}

	leaves := []*model.StageInfo{}
	for _, name := range p.order {
		if len(p.Children(name)) == 0 {
			leaves = append(leaves, p.infos[name])
		}
	}

	for _, hook := range p.hooks {
		if err := hook.PrepareStage(leaves, model.EndStage); err != nil {
			return errors.Wrap(err, "unable to prepare end stage")
		}
	}

	return nil
}

// RunID identifies this pipeline in logs.
func (p *Pipeline) RunID() string { return p.runID }

func (p *Pipeline) Len() int { return len(p.order) }

// Get returns the resolved stage called name.
func (p *Pipeline) Get(name string) (*params.Params, error) {
	stage, ok := p.stages[name]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "%s is not a stage of the pipeline", name)
	}

	return stage, nil
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []*params.Params {
	out := make([]*params.Params, len(p.order))
	for i, name := range p.order {
		out[i] = p.stages[name]
	}

	return out
}

// Order returns the stage names in execution order.
func (p *Pipeline) Order() []string {
	return append([]string(nil), p.order...)
}

// OutputLocation is the absolute directory the stage directories are created in.
func (p *Pipeline) OutputLocation() string { return p.outputLocation }

// StageInfo returns the status view of a stage handed to pipeline options.
func (p *Pipeline) StageInfo(name string) (*model.StageInfo, error) {
	info, ok := p.infos[name]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "%s is not a stage of the pipeline", name)
	}

	return info, nil
}
