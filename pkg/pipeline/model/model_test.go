package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

func TestKeyed(t *testing.T) {
	t.Parallel()

	var k model.Keyed[int]

	assert.Equal(t, 0, k.Len())
	assert.False(t, k.Replace("a", 1))
	assert.True(t, k.Add("b", 2))
	assert.True(t, k.Add("a", 1))
	assert.False(t, k.Add("b", 3))
	assert.True(t, k.Replace("b", 4))

	v, ok := k.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	assert.True(t, k.Has("a"))
	assert.False(t, k.Has("c"))
	assert.Equal(t, []string{"b", "a"}, k.Keys())

	got := []int{}
	for _, v := range k.All() {
		got = append(got, v)
	}
	assert.Equal(t, []int{4, 1}, got)

	clone := k.Clone(func(v int) int { return v * 10 })
	clone.Add("c", 3)
	assert.Equal(t, 2, k.Len())
	assert.Equal(t, []string{"b", "a", "c"}, clone.Keys())

	v, _ = clone.Get("a")
	assert.Equal(t, 10, v)
}

func TestKeyedAllStops(t *testing.T) {
	t.Parallel()

	var k model.Keyed[string]
	k.Add("x", "1")
	k.Add("y", "2")

	seen := 0
	for range k.All() {
		seen++

		break
	}
	assert.Equal(t, 1, seen)
}

func TestParametersFromMap(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		raw     map[string]any
		want    model.Parameters
		wantErr error
	}{
		"ok": {
			raw:  map[string]any{"process": "sparcc", "iterations": 10},
			want: model.Parameters{Process: "sparcc", Params: map[string]any{"iterations": 10}},
		},
		"missing process": {
			raw:     map[string]any{"iterations": 10},
			wantErr: model.ErrSchema,
		},
		"process not a string": {
			raw:     map[string]any{"process": 3},
			wantErr: model.ErrType,
		},
		"empty process": {
			raw:     map[string]any{"process": ""},
			wantErr: model.ErrType,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := model.ParametersFromMap(tc.raw)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParametersMerge(t *testing.T) {
	t.Parallel()

	base := model.Parameters{Process: "sparcc", Params: map[string]any{"iterations": 50, "x_iter": 10}}
	merged := base.Merge(map[string]any{"iterations": 5, "threshold": 0.3})

	assert.Equal(t, map[string]any{"iterations": 5, "x_iter": 10, "threshold": 0.3}, merged.Params)
	assert.Equal(t, map[string]any{"iterations": 50, "x_iter": 10}, base.Params)
}

func TestIOAcceptsFormat(t *testing.T) {
	t.Parallel()

	io := model.IO{Datatype: "otu_table", Format: []string{"biom", "tsv"}}
	assert.True(t, io.AcceptsFormat("tsv"))
	assert.False(t, io.AcceptsFormat("json"))

	clone := io.Clone()
	clone.Format[0] = "json"
	assert.Equal(t, "biom", io.Format[0])
}

func TestParseSettings(t *testing.T) {
	t.Parallel()

	settings, err := model.ParseSettings([]byte(`
otu_processing:
  filter:
    group:
      input:
        - datatype: otu_table
          format: [biom]
          location: data/otu.biom
      parameters:
        - process: group
          tax_levels: [Genus]
network_inference.correlation.sparcc:
  parameters:
    - process: sparcc
      iterations: 5
otu_processing.transform.normalize: {}
`))
	require.NoError(t, err)

	want := model.Settings{
		"otu_processing.filter.group": {
			Input: []model.InputOverride{{Datatype: "otu_table", Format: []string{"biom"}, Location: "data/otu.biom"}},
			Parameters: []model.Parameters{
				{Process: "group", Params: map[string]any{"tax_levels": []any{"Genus"}}},
			},
		},
		"network_inference.correlation.sparcc": {
			Parameters: []model.Parameters{{Process: "sparcc", Params: map[string]any{"iterations": 5}}},
		},
		"otu_processing.transform.normalize": {
			Parameters: []model.Parameters{},
		},
	}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Errorf("ParseSettings() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{
		"network_inference.correlation.sparcc",
		"otu_processing.filter.group",
		"otu_processing.transform.normalize",
	}, settings.Names())
}

func TestParseSettingsErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		doc     string
		wantErr error
	}{
		"stage not a mapping": {
			doc:     "sparcc: [a, b]\n",
			wantErr: model.ErrType,
		},
		"duplicate flattened stage": {
			doc: `
a.b:
  parameters: []
a:
  b:
    parameters: []
`,
			wantErr: model.ErrDuplicate,
		},
		"input override without datatype": {
			doc: `
sparcc:
  input:
    - location: otu.biom
`,
			wantErr: model.ErrSchema,
		},
		"parameters without process": {
			doc: `
sparcc:
  parameters:
    - iterations: 3
`,
			wantErr: model.ErrSchema,
		},
		"parameters not a list": {
			doc: `
sparcc:
  parameters:
    process: sparcc
`,
			wantErr: model.ErrType,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := model.ParseSettings([]byte(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sparcc": {"parameters": [{"process": "sparcc", "iterations": 3}]}}`), 0o600))

	settings, err := model.LoadSettings(path)
	require.NoError(t, err)
	require.Contains(t, settings, "sparcc")
	assert.Equal(t, 3, settings["sparcc"].Parameters[0].Params["iterations"])

	_, err = model.LoadSettings(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
