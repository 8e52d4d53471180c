package model

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// InputOverride replaces the format and location of one input of a stage.
// Empty fields keep the catalog value.
type InputOverride struct {
	Datatype string   `yaml:"datatype"`
	Format   []string `yaml:"format,omitempty"`
	Location string   `yaml:"location,omitempty"`
}

// StageSettings holds the user overrides for one stage.
type StageSettings struct {
	Input      []InputOverride
	Parameters []Parameters
}

type rawStageSettings struct {
	Input      []InputOverride  `yaml:"input"`
	Parameters []map[string]any `yaml:"parameters"`
}

// UnmarshalYAML decodes the input overrides and the free-form parameter entries.
func (s *StageSettings) UnmarshalYAML(value *yaml.Node) error {
	var raw rawStageSettings
	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(ErrType, err.Error())
	}

	for i, in := range raw.Input {
		if in.Datatype == "" {
			return errors.Wrapf(ErrSchema, "input override %d is missing 'datatype'", i)
		}
	}

	s.Input = raw.Input
	s.Parameters = make([]Parameters, 0, len(raw.Parameters))

	for _, entry := range raw.Parameters {
		p, err := ParametersFromMap(entry)
		if err != nil {
			return err
		}
		s.Parameters = append(s.Parameters, p)
	}

	return nil
}

// Settings maps a stage name to the user overrides of that stage.
// Nested namespaces are flattened into dotted stage names.
type Settings map[string]StageSettings

// Names returns the stage names in lexical order.
func (s Settings) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

var stageKeys = map[string]struct{}{
	"input":      {},
	"parameters": {},
}

// UnmarshalYAML accepts both a flat and a nested settings document.
// A mapping that is empty or carries an input or parameters key is a stage.
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	out := Settings{}
	if err := flattenSettings(value, "", out); err != nil {
		return err
	}
	*s = out

	return nil
}

func flattenSettings(node *yaml.Node, prefix string, out Settings) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}

	if node.Kind != yaml.MappingNode {
		return errors.Wrapf(ErrType, "settings %q must be a mapping", prefix)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]

		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		if value.Kind != yaml.MappingNode {
			return errors.Wrapf(ErrType, "settings %q must be a mapping", name)
		}

		if !isStageNode(value) {
			if err := flattenSettings(value, name, out); err != nil {
				return err
			}

			continue
		}

		if _, ok := out[name]; ok {
			return errors.Wrapf(ErrDuplicate, "stage %q is defined more than once in settings", name)
		}

		var stage StageSettings
		if err := value.Decode(&stage); err != nil {
			return errors.Wrapf(err, "stage %q", name)
		}
		out[name] = stage
	}

	return nil
}

func isStageNode(node *yaml.Node) bool {
	if len(node.Content) == 0 {
		return true
	}

	for i := 0; i < len(node.Content); i += 2 {
		if _, ok := stageKeys[node.Content[i].Value]; ok {
			return true
		}
	}

	return false
}

// ParseSettings decodes a YAML or JSON settings document.
func ParseSettings(data []byte) (Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, errors.Wrap(err, "unable to parse settings")
	}

	return settings, nil
}

// LoadSettings reads and decodes a settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read settings %s", path)
	}

	return ParseSettings(data)
}
