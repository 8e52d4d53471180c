package pipeline_test

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mindpipe/pkg/pipeline"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

func ioSpec(datatype, location string) params.IOSpec {
	return params.IOSpec{Datatype: datatype, Format: []string{"txt"}, Location: location}
}

// stageDefinition declares a stage reading inputs and writing one file per output.
func stageDefinition(command string, inputs []params.IOSpec, outputs ...string) params.Definition {
	def := params.Definition{
		Root:           "stages",
		OutputLocation: "",
		Command:        command,
		Input:          append([]params.IOSpec{}, inputs...),
		Output:         []params.IOSpec{},
		Parameters:     []map[string]any{},
	}

	for _, out := range outputs {
		def.Output = append(def.Output, ioSpec(out, out+".txt"))
	}

	return def
}

// newRegistry builds a registry where every stage writes under a directory named after it.
func newRegistry(t *testing.T, catalog map[string]params.Definition) *params.Set {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stages"), 0o755))

	for name, def := range catalog {
		if def.OutputLocation == "" {
			def.OutputLocation = name
		}
		catalog[name] = def
	}

	set, err := params.NewInternalSet(dir, catalog)
	require.NoError(t, err)

	return set
}

func settingsFor(names ...string) model.Settings {
	settings := model.Settings{}
	for _, name := range names {
		settings[name] = model.StageSettings{}
	}

	return settings
}

func newPipeline(t *testing.T, settings model.Settings, registry pipeline.Registry, opts ...pipeline.Option) (*pipeline.Pipeline, string) {
	t.Helper()

	out := t.TempDir()
	opts = append([]pipeline.Option{
		pipeline.WithOutputLocation(out),
		pipeline.WithBaseDir(out),
		pipeline.WithOutput(io.Discard, io.Discard),
	}, opts...)

	p, err := pipeline.New(t.Context(), settings, registry, opts...)
	require.NoError(t, err)

	return p, out
}

// recorder records the pipeline option calls.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) New() error {
	r.add("new")

	return nil
}

func (r *recorder) PrepareStage(parents []*model.StageInfo, stage *model.StageInfo) error {
	call := "prepare " + stage.Name + " <-"
	for _, parent := range parents {
		call += " " + parent.Name
	}
	r.add(call)

	return nil
}

func (r *recorder) OnStageStart(stage *model.StageInfo) error {
	r.add("start " + stage.Name)

	return nil
}

func (r *recorder) OnStageDone(stage *model.StageInfo, _ time.Duration) error {
	r.add("done " + stage.Name + " " + string(stage.Status))

	return nil
}

func (r *recorder) Finish() error {
	r.add("finish")

	return nil
}
