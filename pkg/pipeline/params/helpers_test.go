package params_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

// createPipelineDir creates a pipeline directory holding the given stage roots.
func createPipelineDir(t *testing.T, roots ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, root := range roots {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, root), 0o755))
	}

	return dir
}

func sparccDefinition() params.Definition {
	return params.Definition{
		Root:           "network_inference/correlation/sparcc",
		OutputLocation: "sparcc",
		Command:        "sparcc {{ index .input \"otu_table\" }}",
		Input: []params.IOSpec{
			{Datatype: "otu_table", Format: []string{"biom", "tsv"}},
		},
		Output: []params.IOSpec{
			{Datatype: "correlations", Format: []string{"tsv"}, Location: "correlations.tsv"},
			{Datatype: "pvalues", Format: []string{"tsv"}, Location: "pvalues.tsv"},
		},
		Parameters: []map[string]any{
			{"process": "sparcc", "iterations": 50, "x_iter": 10},
			{"process": "pvalues", "bootstraps": 1000},
		},
	}
}

func groupDefinition() params.Definition {
	return params.Definition{
		Root:           "otu_processing/transform/group",
		OutputLocation: "group",
		Input: []params.IOSpec{
			{Datatype: "otu_table", Format: []string{"biom"}, Location: "data/otu_table.biom"},
		},
		Output: []params.IOSpec{
			{Datatype: "otu_table", Format: []string{"biom"}, Location: "group_otu.biom"},
		},
		Parameters: []map[string]any{
			{"process": "group", "tax_levels": []any{"Family", "Genus"}},
		},
	}
}

func newSparcc(t *testing.T) *params.Params {
	t.Helper()

	dir := createPipelineDir(t, "network_inference/correlation/sparcc")
	p, err := params.New(dir, "sparcc", sparccDefinition())
	require.NoError(t, err)

	return p
}

func newGroup(t *testing.T) *params.Params {
	t.Helper()

	dir := createPipelineDir(t, "otu_processing/transform/group")
	p, err := params.New(dir, "group", groupDefinition())
	require.NoError(t, err)

	return p
}

func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#"), 0o600))
}
