package pipeline

import (
	"io"
	"time"

	"github.com/askiada/go-mindpipe/pkg/pipeline/command"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

type Option func(p *Pipeline)

// WithProfile sets the profile every stage command runs under.
func WithProfile(profile command.Profile) Option {
	return func(p *Pipeline) {
		p.profile = profile
	}
}

// WithOutputLocation sets the directory the stage output directories are created in.
func WithOutputLocation(dir string) Option {
	return func(p *Pipeline) {
		p.outputLocation = dir
	}
}

// WithBaseDir sets the directory relative input locations are resolved against.
func WithBaseDir(dir string) Option {
	return func(p *Pipeline) {
		p.baseDir = dir
	}
}

// WithTimeout sets the time each stage is given to complete.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = timeout
	}
}

func WithRenderer(renderer Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = renderer
	}
}

// WithOutput sets the writers stage logs are mirrored to.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// WithPipelineOptions registers hooks called while the pipeline is built and run.
func WithPipelineOptions(opts ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.hooks = append(p.hooks, opts...)
	}
}
