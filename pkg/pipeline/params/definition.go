package params

import (
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

// IOSpec is the catalog form of an input or output slot.
type IOSpec struct {
	Datatype string   `yaml:"datatype" validate:"required"`
	Format   []string `yaml:"format" validate:"required"`
	Location string   `yaml:"location,omitempty"`
}

// Definition is the catalog entry of a stage.
type Definition struct {
	Root           string           `yaml:"root" validate:"required"`
	Env            string           `yaml:"env,omitempty"`
	OutputLocation string           `yaml:"output_location" validate:"required"`
	Command        string           `yaml:"command,omitempty"`
	Input          []IOSpec         `yaml:"input" validate:"required,dive"`
	Output         []IOSpec         `yaml:"output" validate:"required,dive"`
	Parameters     []map[string]any `yaml:"parameters" validate:"required"`
}

var (
	requiredKeys = []string{"root", "output_location", "input", "output", "parameters"}
	listKeys     = []string{"input", "output", "parameters"}
	ioKeys       = []string{"datatype", "format", "location"}
)

var definitionValidate *validator.Validate

func init() {
	definitionValidate = validator.New()
	definitionValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Validate checks that every required field of the definition is set.
func (d *Definition) Validate() error {
	err := definitionValidate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(model.ErrSchema, err.Error())
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, strings.TrimPrefix(fe.Namespace(), "Definition."))
	}

	return errors.Wrapf(model.ErrSchema, "missing %s", strings.Join(missing, ", "))
}

// UnmarshalYAML checks the shape of a catalog entry before decoding it, so that
// a missing key, a non list value or an unknown IO field is reported precisely.
func (d *Definition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return errors.Wrapf(model.ErrType, "process data must be a mapping, line %d", value.Line)
	}

	fields := mappingFields(value)

	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return errors.Wrapf(model.ErrSchema, "invalid process data: %s not found", key)
		}
	}

	for _, key := range listKeys {
		if fields[key].Kind != yaml.SequenceNode {
			return errors.Wrapf(model.ErrType, "%s must be a list", key)
		}
	}

	for _, category := range []string{"input", "output"} {
		for _, item := range fields[category].Content {
			if err := checkIONode(item, model.Category(category)); err != nil {
				return err
			}
		}
	}

	type rawDefinition Definition

	if err := value.Decode((*rawDefinition)(d)); err != nil {
		return errors.Wrap(model.ErrType, err.Error())
	}

	return nil
}

func checkIONode(node *yaml.Node, category model.Category) error {
	if node.Kind != yaml.MappingNode {
		return errors.Wrapf(model.ErrType, "every %s must be a mapping, line %d", category, node.Line)
	}

	fields := mappingFields(node)

	for key := range fields {
		if !slices.Contains(ioKeys, key) {
			return errors.Wrapf(model.ErrSchema, "invalid %s at line %d: extra %s", category, node.Line, key)
		}
	}

	required := []string{"datatype", "format"}
	if category == model.OutputCategory {
		required = append(required, "location")
	}

	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return errors.Wrapf(model.ErrSchema, "invalid %s at line %d: missing %s", category, node.Line, key)
		}
	}

	if fields["format"].Kind != yaml.SequenceNode {
		return errors.Wrapf(model.ErrType, "format of %s at line %d must be a list", category, node.Line)
	}

	return nil
}

func mappingFields(node *yaml.Node) map[string]*yaml.Node {
	fields := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1]
	}

	return fields
}
