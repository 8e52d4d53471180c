package params

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

const (
	InternalKind = "InternalParamsSet"
	ExternalKind = "ExternalParamsSet"
	UnionKind    = "ParamsSet"
)

// Entry is one named catalog definition.
type Entry struct {
	Name       string
	Definition Definition
}

// Set is the registry of the stages available to a pipeline, keyed by stage name.
// It is read-only once built.
type Set struct {
	kind      string
	processes map[string]*Params
}

// NewSet builds a Params for every entry. A repeated name is an error.
func NewSet(kind, pipelineDir string, entries []Entry) (*Set, error) {
	set := &Set{
		kind:      kind,
		processes: make(map[string]*Params, len(entries)),
	}

	for _, entry := range entries {
		if _, ok := set.processes[entry.Name]; ok {
			return nil, errors.Wrapf(model.ErrDuplicate, "duplicate process definitions detected for %s, aborting", entry.Name)
		}

		process, err := New(pipelineDir, entry.Name, entry.Definition)
		if err != nil {
			return nil, err
		}

		set.processes[entry.Name] = process
	}

	return set, nil
}

// NewInternalSet builds the registry of the stages shipped with the pipeline.
func NewInternalSet(pipelineDir string, catalog map[string]Definition) (*Set, error) {
	entries := make([]Entry, 0, len(catalog))
	for name, def := range catalog {
		entries = append(entries, Entry{Name: name, Definition: def})
	}
	sortEntries(entries)

	return NewSet(InternalKind, pipelineDir, entries)
}

// NewExternalSet builds the registry of plugin stages. The catalog is nested
// three levels deep and each stage is named level1.level2.level3.
func NewExternalSet(pipelineDir string, catalog map[string]map[string]map[string]Definition) (*Set, error) {
	entries := []Entry{}

	for level1, l2 := range catalog {
		for level2, l3 := range l2 {
			for level3, def := range l3 {
				entries = append(entries, Entry{
					Name:       strings.Join([]string{level1, level2, level3}, "."),
					Definition: def,
				})
			}
		}
	}
	sortEntries(entries)

	return NewSet(ExternalKind, pipelineDir, entries)
}

// Union merges several registries. A stage name present in more than one is an error.
func Union(sets ...*Set) (*Set, error) {
	union := &Set{kind: UnionKind, processes: map[string]*Params{}}

	for _, set := range sets {
		for name, process := range set.processes {
			if _, ok := union.processes[name]; ok {
				return nil, errors.Wrapf(model.ErrDuplicate, "process %s is defined in more than one catalog", name)
			}
			union.processes[name] = process
		}
	}

	return union, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}

func (s *Set) Kind() string { return s.kind }

func (s *Set) Len() int { return len(s.processes) }

func (s *Set) Contains(name string) bool {
	_, ok := s.processes[name]

	return ok
}

// Get returns the catalog template of a stage. Callers that mutate the stage
// must work on a Clone.
func (s *Set) Get(name string) (*Params, error) {
	process, ok := s.processes[name]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "%s is not in %s", name, s.kind)
	}

	return process, nil
}

// Names returns the stage names in lexical order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.processes))
	for name := range s.processes {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Processes returns the stages ordered by name.
func (s *Set) Processes() []*Params {
	names := s.Names()
	out := make([]*Params, len(names))

	for i, name := range names {
		out[i] = s.processes[name]
	}

	return out
}

func (s *Set) String() string {
	return fmt.Sprintf("<%s n=%d processes=%v>", s.kind, s.Len(), s.Names())
}

// ParseInternalCatalog decodes a flat YAML or JSON catalog.
func ParseInternalCatalog(data []byte) (map[string]Definition, error) {
	catalog := map[string]Definition{}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, wrapDecodeError(err)
	}

	return catalog, nil
}

// ParseExternalCatalog decodes a YAML or JSON catalog nested three levels deep.
func ParseExternalCatalog(data []byte) (map[string]map[string]map[string]Definition, error) {
	catalog := map[string]map[string]map[string]Definition{}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, wrapDecodeError(err)
	}

	return catalog, nil
}

func wrapDecodeError(err error) error {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return errors.Wrap(model.ErrType, err.Error())
	}

	return errors.Wrap(err, "unable to parse catalog")
}

// LoadInternalSet reads a flat catalog file and builds its registry.
func LoadInternalSet(path, pipelineDir string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read catalog %s", path)
	}

	catalog, err := ParseInternalCatalog(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}

	return NewInternalSet(pipelineDir, catalog)
}

// LoadExternalSet reads a nested catalog file and builds its registry.
func LoadExternalSet(path, pipelineDir string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read catalog %s", path)
	}

	catalog, err := ParseExternalCatalog(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}

	return NewExternalSet(pipelineDir, catalog)
}
