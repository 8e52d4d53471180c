package params

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/pkg/errors"

	"github.com/askiada/go-mindpipe/internal/fsutil"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

// OutputDirKey is the key of the stage output directory in the materialized context.
const OutputDirKey = "output_dir"

var reservedProcesses = []string{string(model.InputCategory), string(model.OutputCategory), OutputDirKey}

// Params is the definition of one stage: where its scripts live, where it
// writes, what it reads and produces and how its sub-processes are configured.
// It is mutated in place by Merge, AttachTo and UpdateLocation and is not safe
// for concurrent writes.
type Params struct {
	name           string
	root           string
	env            string
	outputLocation string
	command        string
	input          *model.Keyed[model.IO]
	output         *model.Keyed[model.IO]
	parameters     *model.Keyed[model.Parameters]
}

// New builds the Params of the stage name from its catalog definition. Root and
// env are resolved under pipelineDir and must be existing directories.
func New(pipelineDir, name string, def Definition) (*Params, error) {
	if err := def.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid process data for %s", name)
	}

	p := &Params{
		name:           name,
		root:           filepath.Join(pipelineDir, def.Root),
		outputLocation: def.OutputLocation,
		command:        def.Command,
		input:          &model.Keyed[model.IO]{},
		output:         &model.Keyed[model.IO]{},
		parameters:     &model.Keyed[model.Parameters]{},
	}

	if !fsutil.IsDir(p.root) {
		return nil, errors.Wrapf(model.ErrNotFound, "the root directory %s of %s doesn't exist, please reinstall the package", p.root, name)
	}

	if def.Env != "" {
		p.env = filepath.Join(pipelineDir, def.Env)
		if !fsutil.IsDir(p.env) {
			return nil, errors.Wrapf(model.ErrNotFound, "the environment directory %s of %s doesn't exist, please reinstall the package", p.env, name)
		}
	}

	if err := addIO(p.input, def.Input, model.InputCategory); err != nil {
		return nil, errors.Wrapf(err, "invalid process data for %s", name)
	}

	if err := addIO(p.output, def.Output, model.OutputCategory); err != nil {
		return nil, errors.Wrapf(err, "invalid process data for %s", name)
	}

	for _, raw := range def.Parameters {
		param, err := model.ParametersFromMap(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid process data for %s", name)
		}

		if slices.Contains(reservedProcesses, param.Process) {
			return nil, errors.Wrapf(model.ErrSchema, "process name %q of %s is reserved", param.Process, name)
		}

		if !p.parameters.Add(param.Process, param) {
			return nil, errors.Wrapf(model.ErrDuplicate, "process %s is defined twice in %s", param.Process, name)
		}
	}

	return p, nil
}

func addIO(dst *model.Keyed[model.IO], specs []IOSpec, category model.Category) error {
	for _, spec := range specs {
		if category == model.OutputCategory && spec.Location == "" {
			return errors.Wrapf(model.ErrSchema, "output %s is missing location", spec.Datatype)
		}

		io := model.IO{
			Datatype: spec.Datatype,
			Format:   slices.Clone(spec.Format),
			Location: spec.Location,
		}
		if !dst.Add(spec.Datatype, io) {
			return errors.Wrapf(model.ErrDuplicate, "%s %s is declared twice", category, spec.Datatype)
		}
	}

	return nil
}

func (p *Params) Name() string { return p.name }

func (p *Params) Root() string { return p.root }

// Env is the environment directory of the stage, empty when it has none.
func (p *Params) Env() string { return p.env }

func (p *Params) OutputLocation() string { return p.outputLocation }

// Command is the command template of the stage, empty when the catalog has none.
func (p *Params) Command() string { return p.command }

func (p *Params) String() string { return p.name }

// GoString mirrors the short description used in logs.
func (p *Params) GoString() string {
	return fmt.Sprintf("<Params name=%s input=%v output=%v>", p.name, p.input.Keys(), p.output.Keys())
}

// Inputs returns the inputs in declaration order.
func (p *Params) Inputs() []model.IO {
	return collect(p.input)
}

// Outputs returns the outputs in declaration order.
func (p *Params) Outputs() []model.IO {
	return collect(p.output)
}

// ParameterSets returns the parameter records in declaration order.
func (p *Params) ParameterSets() []model.Parameters {
	out := make([]model.Parameters, 0, p.parameters.Len())
	for _, param := range p.parameters.All() {
		out = append(out, param.Clone())
	}

	return out
}

func collect(k *model.Keyed[model.IO]) []model.IO {
	out := make([]model.IO, 0, k.Len())
	for _, io := range k.All() {
		out = append(out, io.Clone())
	}

	return out
}

func (p *Params) ioSet(category model.Category) (*model.Keyed[model.IO], error) {
	switch category {
	case model.InputCategory:
		return p.input, nil
	case model.OutputCategory:
		return p.output, nil
	case model.ParametersCategory:
		return nil, errors.Wrap(model.ErrCategory, "parameters are not an IO category")
	default:
		return nil, errors.Wrapf(model.ErrCategory, "unknown category %q", category)
	}
}

// IO returns the input or output with the given datatype.
func (p *Params) IO(datatype string, category model.Category) (model.IO, error) {
	set, err := p.ioSet(category)
	if err != nil {
		return model.IO{}, err
	}

	io, ok := set.Get(datatype)
	if !ok {
		return model.IO{}, errors.Wrapf(model.ErrNotFound, "%s not found in %s of %s", datatype, category, p.name)
	}

	return io.Clone(), nil
}

// Parameter returns the parameter record of a sub-process.
func (p *Params) Parameter(process string) (model.Parameters, error) {
	param, ok := p.parameters.Get(process)
	if !ok {
		return model.Parameters{}, errors.Wrapf(model.ErrNotFound, "%s not found in %s of %s", process, model.ParametersCategory, p.name)
	}

	return param.Clone(), nil
}

// UpdateLocation sets the location of the input or output with the given datatype.
func (p *Params) UpdateLocation(datatype, location string, category model.Category) error {
	set, err := p.ioSet(category)
	if err != nil {
		return err
	}

	io, ok := set.Get(datatype)
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "%s not found in %s of %s", datatype, category, p.name)
	}

	io.Location = location
	set.Replace(datatype, io)

	return nil
}

// VerifyIO checks that the stage is ready to run: its output directory and all
// of its outputs are absolute and all of its inputs exist.
func (p *Params) VerifyIO() error {
	if !filepath.IsAbs(p.outputLocation) {
		return errors.Wrapf(model.ErrValidation, "the output location %q of %s must be absolute", p.outputLocation, p.name)
	}

	for datatype, io := range p.input.All() {
		if io.Location == "" {
			return errors.Wrapf(model.ErrValidation, "input %s of %s has not been assigned a location yet", datatype, p.name)
		}

		if !fsutil.Exists(io.Location) {
			return errors.Wrapf(model.ErrValidation, "unable to locate input %s of %s at %s", datatype, p.name, io.Location)
		}
	}

	for datatype, io := range p.output.All() {
		if io.Location == "" {
			return errors.Wrapf(model.ErrValidation, "output %s of %s has not been assigned a location yet", datatype, p.name)
		}

		if !filepath.IsAbs(io.Location) {
			return errors.Wrapf(model.ErrValidation, "output %s of %s must have an absolute path, got %s", datatype, p.name, io.Location)
		}
	}

	return nil
}

// Dict verifies the stage and returns the context used to render its command:
// the input and output locations keyed by datatype, the output directory and
// one entry per sub-process holding its parameters.
func (p *Params) Dict() (map[string]any, error) {
	if err := p.VerifyIO(); err != nil {
		return nil, err
	}

	inputs := make(map[string]string, p.input.Len())
	for datatype, io := range p.input.All() {
		inputs[datatype] = io.Location
	}

	outputs := make(map[string]string, p.output.Len())
	for datatype, io := range p.output.All() {
		outputs[datatype] = io.Location
	}

	data := map[string]any{
		string(model.InputCategory):  inputs,
		string(model.OutputCategory): outputs,
		OutputDirKey:                 p.outputLocation,
	}
	for process, param := range p.parameters.All() {
		data[process] = param.Clone().Params
	}

	return data, nil
}

// Merge applies the user overrides of the stage. Every override is checked
// before any is applied, so a rejected override leaves p unchanged.
func (p *Params) Merge(settings model.StageSettings) error {
	inputs := make([]model.IO, 0, len(settings.Input))

	for _, override := range settings.Input {
		io, err := p.IO(override.Datatype, model.InputCategory)
		if err != nil {
			return err
		}

		for _, format := range override.Format {
			if !io.AcceptsFormat(format) {
				return errors.Wrapf(model.ErrValidation, "%s is not a supported format for input %s of %s, expected one of %v", format, io.Datatype, p.name, io.Format)
			}
		}

		if override.Format != nil {
			io.Format = slices.Clone(override.Format)
		}

		if override.Location != "" {
			io.Location = override.Location
		}

		inputs = append(inputs, io)
	}

	params := make([]model.Parameters, 0, len(settings.Parameters))

	for _, override := range settings.Parameters {
		param, err := p.Parameter(override.Process)
		if err != nil {
			return err
		}

		params = append(params, param.Merge(override.Params))
	}

	for _, io := range inputs {
		p.input.Replace(io.Datatype, io)
	}

	for _, param := range params {
		p.parameters.Replace(param.Process, param)
	}

	return nil
}

// AttachTo copies the location of every output of previous into the input of p
// with the same datatype. Every input of p must be an output of previous.
func (p *Params) AttachTo(previous *Params) error {
	return p.AttachOutputs(previous, p.input.Keys()...)
}

// AttachOutputs copies the location of the listed outputs of previous into the
// inputs of p with the same datatypes.
func (p *Params) AttachOutputs(previous *Params, datatypes ...string) error {
	locations := make(map[string]string, len(datatypes))

	for _, datatype := range datatypes {
		if !p.input.Has(datatype) {
			return errors.Wrapf(model.ErrNotFound, "%s not found in %s of %s", datatype, model.InputCategory, p.name)
		}

		out, err := previous.IO(datatype, model.OutputCategory)
		if err != nil {
			return errors.Wrapf(err, "unable to attach %s to %s", p.name, previous.name)
		}

		locations[datatype] = out.Location
	}

	for datatype, location := range locations {
		if err := p.UpdateLocation(datatype, location, model.InputCategory); err != nil {
			return err
		}
	}

	return nil
}

// ResolveInputs makes every assigned relative input location absolute under base.
func (p *Params) ResolveInputs(base string) {
	for datatype, io := range p.input.All() {
		if io.Location == "" {
			continue
		}

		io.Location = fsutil.Abs(base, io.Location)
		p.input.Replace(datatype, io)
	}
}

// ResolveOutputs makes the output directory absolute under base and every
// relative output location absolute under the output directory.
func (p *Params) ResolveOutputs(base string) {
	p.outputLocation = fsutil.Abs(base, p.outputLocation)

	for datatype, io := range p.output.All() {
		io.Location = fsutil.Abs(p.outputLocation, io.Location)
		p.output.Replace(datatype, io)
	}
}

// Clone returns a deep copy of p. The registry keeps its templates untouched by
// handing out clones to every pipeline.
func (p *Params) Clone() *Params {
	clone := *p
	clone.input = p.input.Clone(model.IO.Clone)
	clone.output = p.output.Clone(model.IO.Clone)
	clone.parameters = p.parameters.Clone(model.Parameters.Clone)

	return &clone
}
