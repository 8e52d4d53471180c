package pipeline

import (
	"context"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-mindpipe/internal/fsutil"
	"github.com/askiada/go-mindpipe/pkg/pipeline/command"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

// Process is a launched stage.
type Process struct {
	Params *params.Params
	Cmd    *command.Command

	pipeline *Pipeline
	info     *model.StageInfo
	started  time.Time

	mu      sync.Mutex
	status  model.Status
	elapsed time.Duration
	missing []string
}

func (pr *Process) Name() string { return pr.Params.Name() }

// Status is running until Wait observes the end of the process.
func (pr *Process) Status() model.Status {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	return pr.status
}

// Elapsed is the wall-clock time between launch and completion.
func (pr *Process) Elapsed() time.Duration {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	return pr.elapsed
}

// MissingOutputs lists the declared outputs not found after completion.
func (pr *Process) MissingOutputs() []string {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	return append([]string(nil), pr.missing...)
}

// Wait blocks until the stage command ends. The stage succeeds when the command
// exits with code 0 and every declared output exists. A failed stage is not an
// error of Wait, see Status.
func (pr *Process) Wait(ctx context.Context) error {
	pr.mu.Lock()
	if pr.status == model.StatusSuccess || pr.status == model.StatusFailure {
		pr.mu.Unlock()

		return nil
	}
	pr.mu.Unlock()

	err := pr.Cmd.Wait(ctx)

	status := model.StatusFailure

	var missing []string

	if errors.Is(err, command.ErrProcessTimeout) {
		status = model.StatusTimeout
	} else if err == nil {
		missing = pr.missingOutputs()
		if pr.Cmd.ExitCode() == 0 && len(missing) == 0 {
			status = model.StatusSuccess
		}
	}

	elapsed := time.Since(pr.started)

	pr.mu.Lock()
	pr.status = status
	pr.elapsed = elapsed
	pr.missing = missing
	pr.mu.Unlock()

	pr.info.Status = status

	pr.pipeline.logger.Info("stage done",
		slog.String("stage", pr.Name()),
		slog.String("status", string(status)),
		slog.Int("exit_code", pr.Cmd.ExitCode()),
		slog.Duration("elapsed", elapsed),
	)

	for _, hook := range pr.pipeline.hooks {
		if herr := hook.OnStageDone(pr.info, elapsed); herr != nil {
			return errors.Wrapf(herr, "unable to report the end of %s", pr.Name())
		}
	}

	if err != nil {
		return errors.Wrapf(err, "stage %s", pr.Name())
	}

	return nil
}

func (pr *Process) missingOutputs() []string {
	missing := []string{}

	for _, out := range pr.Params.Outputs() {
		if !fsutil.Exists(out.Location) {
			missing = append(missing, out.Datatype)
		}
	}

	return missing
}

// LogPath is the file the stage output is logged to by Execute.
func (pr *Process) LogPath() string {
	return filepath.Join(pr.Params.OutputLocation(), pr.Name()+".log")
}

func (p *Pipeline) start() error {
	if !p.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	return nil
}

// Run launches the stages one at a time in execution order. Each stage is
// compiled right before launch, so the caller must Wait for a process before
// asking for the next one. The first error ends the sequence. A pipeline runs
// only once.
func (p *Pipeline) Run(ctx context.Context) iter.Seq2[*Process, error] {
	return func(yield func(*Process, error) bool) {
		if err := p.start(); err != nil {
			yield(nil, err)

			return
		}

		for _, name := range p.order {
			proc, err := p.launch(ctx, name)
			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(proc, nil) {
				return
			}
		}
	}
}

// launch renders the command of a stage and starts it in the stage output directory.
func (p *Pipeline) launch(ctx context.Context, name string) (*Process, error) {
	stage := p.stages[name]

	data, err := stage.Dict()
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s is not ready", name)
	}

	line, err := p.renderer.Render(stage, data)
	if err != nil {
		return nil, err
	}

	cmd, err := command.New(line, p.profile,
		command.WithTimeout(p.timeout),
		command.WithLogger(p.logger.With(slog.String("stage", name))),
		command.WithStdout(p.stdout),
		command.WithStderr(p.stderr),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to build the command of %s", name)
	}

	if err := os.MkdirAll(stage.OutputLocation(), 0o755); err != nil {
		return nil, errors.Wrapf(err, "unable to create the output directory of %s", name)
	}

	if err := cmd.Run(ctx, stage.OutputLocation()); err != nil {
		return nil, errors.Wrapf(err, "unable to launch %s", name)
	}

	info := p.infos[name]
	info.Status = model.StatusRunning

	p.logger.Info("stage started", slog.String("stage", name), slog.String("cmd", cmd.Cmd()))

	proc := &Process{
		Params:   stage,
		Cmd:      cmd,
		pipeline: p,
		info:     info,
		started:  time.Now(),
		status:   model.StatusRunning,
	}

	for _, hook := range p.hooks {
		if err := hook.OnStageStart(info); err != nil {
			return proc, errors.Wrapf(err, "unable to report the start of %s", name)
		}
	}

	return proc, nil
}

// Execute runs the whole pipeline. Stages of the same depth run concurrently,
// at most concurrency at a time, and a stage always starts after its parents
// have succeeded. The output of every stage is logged under its output
// directory. The first stage that does not succeed stops the run. Pipeline
// options are finished whatever the outcome.
func (p *Pipeline) Execute(ctx context.Context, concurrency int) error {
	if err := p.start(); err != nil {
		return err
	}

	runErr := p.executeLevels(ctx, max(concurrency, 1))

	if err := p.Finish(); err != nil {
		if runErr == nil {
			return err
		}

		p.logger.Error("unable to finish pipeline options", slog.Any("error", err))
	}

	return runErr
}

func (p *Pipeline) executeLevels(ctx context.Context, concurrency int) error {
	for depth, level := range p.levels() {
		p.logger.Debug("running level", slog.Int("depth", depth), slog.Any("stages", level))

		group, gctx := errgroup.WithContext(ctx)
		group.SetLimit(concurrency)

		for _, name := range level {
			group.Go(func() error {
				return p.executeStage(gctx, name)
			})
		}

		if err := group.Wait(); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) executeStage(ctx context.Context, name string) error {
	proc, err := p.launch(ctx, name)
	if err != nil {
		return err
	}

	if err := proc.Wait(ctx); err != nil {
		return err
	}

	if err := proc.Cmd.Log(ctx, proc.LogPath()); err != nil {
		return errors.Wrapf(err, "unable to log %s", name)
	}

	if proc.Status() == model.StatusSuccess {
		return nil
	}

	if missing := proc.MissingOutputs(); len(missing) > 0 && proc.Cmd.ExitCode() == 0 {
		return errors.Wrapf(ErrStageFailed, "%s did not produce %v, see %s", name, missing, proc.LogPath())
	}

	return errors.Wrapf(ErrStageFailed, "%s exited with code %d, see %s", name, proc.Cmd.ExitCode(), proc.LogPath())
}

// Finish calls Finish on every pipeline option once.
func (p *Pipeline) Finish() error {
	p.finishOnce.Do(func() {
		for _, hook := range p.hooks {
			if err := hook.Finish(); err != nil {
				p.finishErr = errors.Wrap(err, "unable to finish pipeline option")

				return
			}
		}
	})

	return p.finishErr
}
