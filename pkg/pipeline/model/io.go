package model

import (
	"maps"
	"slices"

	"github.com/pkg/errors"
)

// Category selects which collection of a stage a lookup targets.
type Category string

const (
	InputCategory      Category = "input"
	OutputCategory     Category = "output"
	ParametersCategory Category = "parameters"
)

// IO describes one typed input or output slot of a stage.
// An empty Location means the slot has not been assigned yet.
type IO struct {
	Datatype string
	Format   []string
	Location string
}

// AcceptsFormat reports whether format is one of the accepted formats.
func (io IO) AcceptsFormat(format string) bool {
	return slices.Contains(io.Format, format)
}

// Clone returns a copy that does not share the format slice.
func (io IO) Clone() IO {
	io.Format = slices.Clone(io.Format)

	return io
}

// Parameters binds the parameter map of a sub-process to a stage.
type Parameters struct {
	Process string
	Params  map[string]any
}

// Clone returns a copy with its own top-level parameter map.
func (p Parameters) Clone() Parameters {
	p.Params = maps.Clone(p.Params)
	if p.Params == nil {
		p.Params = map[string]any{}
	}

	return p
}

// Merge returns a copy of p where every key of override replaces the existing one.
func (p Parameters) Merge(override map[string]any) Parameters {
	merged := p.Clone()
	for k, v := range override {
		merged.Params[k] = v
	}

	return merged
}

// ParametersFromMap splits a free-form parameter entry into its process name and its parameters.
func ParametersFromMap(raw map[string]any) (Parameters, error) {
	process, ok := raw["process"]
	if !ok {
		return Parameters{}, errors.Wrap(ErrSchema, "parameters entry is missing 'process' field")
	}

	name, ok := process.(string)
	if !ok || name == "" {
		return Parameters{}, errors.Wrapf(ErrType, "parameters 'process' must be a non empty string, got %v", process)
	}

	params := make(map[string]any, len(raw)-1)
	for k, v := range raw {
		if k == "process" {
			continue
		}
		params[k] = v
	}

	return Parameters{Process: name, Params: params}, nil
}
