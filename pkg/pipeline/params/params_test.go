package params_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

func TestNew(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)
	assert.Equal(t, "sparcc", p.Name())
	assert.Equal(t, "sparcc", p.OutputLocation())
	assert.Empty(t, p.Env())
	assert.True(t, filepath.IsAbs(p.Root()))
	assert.True(t, strings.HasSuffix(p.Root(), filepath.FromSlash("network_inference/correlation/sparcc")))
	assert.Equal(t, []model.IO{{Datatype: "otu_table", Format: []string{"biom", "tsv"}}}, p.Inputs())
	assert.Len(t, p.Outputs(), 2)
	assert.Len(t, p.ParameterSets(), 2)
	assert.Equal(t, "<Params name=sparcc input=[otu_table] output=[correlations pvalues]>", p.GoString())
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		update  func(def *params.Definition)
		wantErr error
	}{
		"missing root": {
			update:  func(def *params.Definition) { def.Root = "" },
			wantErr: model.ErrSchema,
		},
		"missing output location": {
			update:  func(def *params.Definition) { def.OutputLocation = "" },
			wantErr: model.ErrSchema,
		},
		"missing parameters": {
			update:  func(def *params.Definition) { def.Parameters = nil },
			wantErr: model.ErrSchema,
		},
		"missing input": {
			update:  func(def *params.Definition) { def.Input = nil },
			wantErr: model.ErrSchema,
		},
		"input without datatype": {
			update:  func(def *params.Definition) { def.Input[0].Datatype = "" },
			wantErr: model.ErrSchema,
		},
		"output without location": {
			update:  func(def *params.Definition) { def.Output[0].Location = "" },
			wantErr: model.ErrSchema,
		},
		"root not installed": {
			update:  func(def *params.Definition) { def.Root = "network_inference/correlation/flashweave" },
			wantErr: model.ErrNotFound,
		},
		"env not installed": {
			update:  func(def *params.Definition) { def.Env = "envs/sparcc" },
			wantErr: model.ErrNotFound,
		},
		"duplicate input": {
			update: func(def *params.Definition) {
				def.Input = append(def.Input, params.IOSpec{Datatype: "otu_table", Format: []string{"biom"}})
			},
			wantErr: model.ErrDuplicate,
		},
		"duplicate output": {
			update: func(def *params.Definition) {
				def.Output = append(def.Output, params.IOSpec{Datatype: "pvalues", Format: []string{"tsv"}, Location: "p2.tsv"})
			},
			wantErr: model.ErrDuplicate,
		},
		"parameters without process": {
			update:  func(def *params.Definition) { def.Parameters[0] = map[string]any{"iterations": 5} },
			wantErr: model.ErrSchema,
		},
		"duplicate process": {
			update: func(def *params.Definition) {
				def.Parameters = append(def.Parameters, map[string]any{"process": "sparcc"})
			},
			wantErr: model.ErrDuplicate,
		},
		"reserved process": {
			update:  func(def *params.Definition) { def.Parameters[0]["process"] = "output_dir" },
			wantErr: model.ErrSchema,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := createPipelineDir(t, "network_inference/correlation/sparcc")
			def := sparccDefinition()
			tc.update(&def)

			_, err := params.New(dir, "sparcc", def)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewWithEnv(t *testing.T) {
	t.Parallel()

	dir := createPipelineDir(t, "network_inference/correlation/sparcc", "envs/sparcc")
	def := sparccDefinition()
	def.Env = "envs/sparcc"

	p, err := params.New(dir, "sparcc", def)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "envs/sparcc"), p.Env())
}

func TestIO(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)

	in, err := p.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, "otu_table", in.Datatype)

	out, err := p.IO("pvalues", model.OutputCategory)
	require.NoError(t, err)
	assert.Equal(t, "pvalues.tsv", out.Location)

	_, err = p.IO("pvalues", model.InputCategory)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = p.IO("sparcc", model.ParametersCategory)
	assert.ErrorIs(t, err, model.ErrCategory)

	_, err = p.IO("otu_table", model.Category("environment"))
	assert.ErrorIs(t, err, model.ErrCategory)

	param, err := p.Parameter("pvalues")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bootstraps": 1000}, param.Params)

	_, err = p.Parameter("spieceasi")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestIOReturnsCopies(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)

	in, err := p.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	in.Format[0] = "json"

	param, err := p.Parameter("sparcc")
	require.NoError(t, err)
	param.Params["iterations"] = 1

	in, err = p.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"biom", "tsv"}, in.Format)

	param, err = p.Parameter("sparcc")
	require.NoError(t, err)
	assert.Equal(t, 50, param.Params["iterations"])
}

func TestUpdateLocation(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)

	require.NoError(t, p.UpdateLocation("otu_table", "/data/otu.biom", model.InputCategory))
	in, err := p.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, "/data/otu.biom", in.Location)
	assert.Equal(t, []string{"biom", "tsv"}, in.Format)

	assert.ErrorIs(t, p.UpdateLocation("network", "/x", model.OutputCategory), model.ErrNotFound)
	assert.ErrorIs(t, p.UpdateLocation("sparcc", "/x", model.ParametersCategory), model.ErrCategory)
}

func TestVerifyIO(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		prepare func(t *testing.T, p *params.Params, dir string)
		wantErr bool
	}{
		"relative output dir": {
			prepare: func(t *testing.T, p *params.Params, dir string) {
				t.Helper()
				touch(t, filepath.Join(dir, "otu.biom"))
				require.NoError(t, p.UpdateLocation("otu_table", filepath.Join(dir, "otu.biom"), model.InputCategory))
			},
			wantErr: true,
		},
		"input not assigned": {
			prepare: func(t *testing.T, p *params.Params, dir string) {
				t.Helper()
				p.ResolveOutputs(dir)
			},
			wantErr: true,
		},
		"input missing on disk": {
			prepare: func(t *testing.T, p *params.Params, dir string) {
				t.Helper()
				p.ResolveOutputs(dir)
				require.NoError(t, p.UpdateLocation("otu_table", filepath.Join(dir, "otu.biom"), model.InputCategory))
			},
			wantErr: true,
		},
		"output not absolute": {
			prepare: func(t *testing.T, p *params.Params, dir string) {
				t.Helper()
				p.ResolveOutputs(dir)
				touch(t, filepath.Join(dir, "otu.biom"))
				require.NoError(t, p.UpdateLocation("otu_table", filepath.Join(dir, "otu.biom"), model.InputCategory))
				require.NoError(t, p.UpdateLocation("pvalues", "pvalues.tsv", model.OutputCategory))
			},
			wantErr: true,
		},
		"glob input": {
			prepare: func(t *testing.T, p *params.Params, dir string) {
				t.Helper()
				p.ResolveOutputs(dir)
				touch(t, filepath.Join(dir, "tables", "a.biom"))
				require.NoError(t, p.UpdateLocation("otu_table", filepath.Join(dir, "tables", "*.biom"), model.InputCategory))
			},
		},
		"ready": {
			prepare: func(t *testing.T, p *params.Params, dir string) {
				t.Helper()
				p.ResolveOutputs(dir)
				touch(t, filepath.Join(dir, "otu.biom"))
				require.NoError(t, p.UpdateLocation("otu_table", filepath.Join(dir, "otu.biom"), model.InputCategory))
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := newSparcc(t)
			dir := t.TempDir()
			tc.prepare(t, p, dir)

			err := p.VerifyIO()
			if tc.wantErr {
				assert.ErrorIs(t, err, model.ErrValidation)

				_, err = p.Dict()
				assert.ErrorIs(t, err, model.ErrValidation)

				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDict(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)
	dir := t.TempDir()
	p.ResolveOutputs(dir)

	otu := filepath.Join(dir, "otu.biom")
	touch(t, otu)
	require.NoError(t, p.UpdateLocation("otu_table", otu, model.InputCategory))

	got, err := p.Dict()
	require.NoError(t, err)

	want := map[string]any{
		"input": map[string]string{"otu_table": otu},
		"output": map[string]string{
			"correlations": filepath.Join(dir, "sparcc", "correlations.tsv"),
			"pvalues":      filepath.Join(dir, "sparcc", "pvalues.tsv"),
		},
		"output_dir": filepath.Join(dir, "sparcc"),
		"sparcc":     map[string]any{"iterations": 50, "x_iter": 10},
		"pvalues":    map[string]any{"bootstraps": 1000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dict() mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)

	err := p.Merge(model.StageSettings{
		Input: []model.InputOverride{{Datatype: "otu_table", Format: []string{"tsv"}, Location: "data/otu.tsv"}},
		Parameters: []model.Parameters{
			{Process: "sparcc", Params: map[string]any{"iterations": 20, "threshold": 0.1}},
		},
	})
	require.NoError(t, err)

	in, err := p.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, model.IO{Datatype: "otu_table", Format: []string{"tsv"}, Location: "data/otu.tsv"}, in)

	param, err := p.Parameter("sparcc")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"iterations": 20, "x_iter": 10, "threshold": 0.1}, param.Params)

	other, err := p.Parameter("pvalues")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bootstraps": 1000}, other.Params)
}

func TestMergeKeepsUnsetFields(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)
	require.NoError(t, p.Merge(model.StageSettings{
		Input: []model.InputOverride{{Datatype: "otu_table", Location: "otu.biom"}},
	}))

	in, err := p.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"biom", "tsv"}, in.Format)
	assert.Equal(t, "otu.biom", in.Location)
}

func TestMergeRejected(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		settings model.StageSettings
		wantErr  error
	}{
		"unsupported format": {
			settings: model.StageSettings{
				Input: []model.InputOverride{{Datatype: "otu_table", Format: []string{"biom", "json"}, Location: "otu.json"}},
			},
			wantErr: model.ErrValidation,
		},
		"unknown input": {
			settings: model.StageSettings{
				Input: []model.InputOverride{{Datatype: "network", Format: []string{"json"}}},
			},
			wantErr: model.ErrNotFound,
		},
		"unknown process after a valid input": {
			settings: model.StageSettings{
				Input:      []model.InputOverride{{Datatype: "otu_table", Location: "otu.biom"}},
				Parameters: []model.Parameters{{Process: "flashweave", Params: map[string]any{"n": 1}}},
			},
			wantErr: model.ErrNotFound,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := newSparcc(t)
			before := p.Clone()

			err := p.Merge(tc.settings)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)

			assert.Equal(t, before.Inputs(), p.Inputs())
			assert.Equal(t, before.ParameterSets(), p.ParameterSets())
		})
	}
}

func TestAttachTo(t *testing.T) {
	t.Parallel()

	group := newGroup(t)
	group.ResolveOutputs("/results")
	sparcc := newSparcc(t)

	require.NoError(t, sparcc.AttachTo(group))
	in, err := sparcc.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, "/results/group/group_otu.biom", in.Location)

	require.NoError(t, sparcc.AttachTo(group))
	again, err := sparcc.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, in, again)
}

func TestAttachToMissingOutput(t *testing.T) {
	t.Parallel()

	sparcc := newSparcc(t)
	group := newGroup(t)

	err := group.AttachTo(sparcc)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)

	in, err := group.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, "data/otu_table.biom", in.Location)
}

func TestAttachOutputs(t *testing.T) {
	t.Parallel()

	group := newGroup(t)
	group.ResolveOutputs("/results")
	sparcc := newSparcc(t)

	require.NoError(t, sparcc.AttachOutputs(group))
	in, err := sparcc.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Empty(t, in.Location)

	require.NoError(t, sparcc.AttachOutputs(group, "otu_table"))
	in, err = sparcc.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, "/results/group/group_otu.biom", in.Location)

	err = sparcc.AttachOutputs(group, "correlations")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestResolveInputs(t *testing.T) {
	t.Parallel()

	group := newGroup(t)
	group.ResolveInputs("/inputs")

	in, err := group.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Equal(t, "/inputs/data/otu_table.biom", in.Location)

	sparcc := newSparcc(t)
	sparcc.ResolveInputs("/inputs")
	in, err = sparcc.IO("otu_table", model.InputCategory)
	require.NoError(t, err)
	assert.Empty(t, in.Location)
}

func TestClone(t *testing.T) {
	t.Parallel()

	p := newSparcc(t)
	clone := p.Clone()

	clone.ResolveOutputs("/results")
	require.NoError(t, clone.Merge(model.StageSettings{
		Parameters: []model.Parameters{{Process: "sparcc", Params: map[string]any{"iterations": 1}}},
	}))

	assert.Equal(t, "sparcc", p.OutputLocation())
	assert.Equal(t, "/results/sparcc", clone.OutputLocation())

	param, err := p.Parameter("sparcc")
	require.NoError(t, err)
	assert.Equal(t, 50, param.Params["iterations"])
}
