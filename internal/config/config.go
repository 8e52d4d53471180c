// Package config loads the run configuration of the mindpipe command.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a loaded configuration does not validate.
var ErrInvalid = errors.New("invalid configuration")

// PipelineDirEnv overrides the directory stage roots are resolved against.
const PipelineDirEnv = "MINDPIPE_PIPELINE_DIR"

// Duration is a time.Duration that unmarshals from YAML strings such as "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "duration %q", raw)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config is the configuration of a pipeline run.
type Config struct {
	Profile         string   `yaml:"profile" validate:"oneof=local grid"`
	Timeout         Duration `yaml:"timeout" validate:"gte=0"`
	OutputDir       string   `yaml:"output_dir" validate:"required"`
	BaseDir         string   `yaml:"base_dir"`
	PipelineDir     string   `yaml:"pipeline_dir" validate:"required"`
	InternalCatalog string   `yaml:"internal_catalog" validate:"required_without=ExternalCatalog"`
	ExternalCatalog string   `yaml:"external_catalog"`
	Concurrency     int      `yaml:"concurrency" validate:"min=1"`
	LogLevel        string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	DotFile         string   `yaml:"dot_file"`
}

// Defaults returns the configuration used when no file sets a field.
func Defaults() *Config {
	return &Config{
		Profile:         "local",
		Timeout:         Duration(1000 * time.Second),
		OutputDir:       "mindpipe_output",
		PipelineDir:     ".",
		InternalCatalog: "catalog.yaml",
		Concurrency:     1,
		LogLevel:        "info",
	}
}

// DefaultPaths lists the user file then the project file. Later files win.
func DefaultPaths() []string {
	paths := []string{}

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".mindpipe", "config.yaml"))
	}

	return append(paths, filepath.Join(".mindpipe", "config.yaml"))
}

// Load starts from Defaults and merges every file of paths in order. Missing
// files are skipped. PipelineDirEnv, when set, wins over the files.
func Load(paths ...string) (*Config, error) {
	cfg := Defaults()

	for _, path := range paths {
		err := mergeFile(cfg, path)
		if err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "unable to load config %s", path)
		}
	}

	if dir := os.Getenv(PipelineDirEnv); dir != "" {
		cfg.PipelineDir = dir
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func mergeFile(dst *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, dst)
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
}

// Validate checks the field values.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(ErrInvalid, err.Error())
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}

	return errors.Wrapf(ErrInvalid, "bad %s", strings.Join(fields, ", "))
}

// Catalogs returns the catalog paths, relative paths being resolved against
// the pipeline directory. An unset catalog is returned empty.
func (c *Config) Catalogs() (internal, external string) {
	return c.resolve(c.InternalCatalog), c.resolve(c.ExternalCatalog)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(c.PipelineDir, path)
}
