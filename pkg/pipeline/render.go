package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/pkg/errors"

	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

// Renderer turns a stage and its materialized context into a command line.
type Renderer interface {
	// Prepare checks that the stage can be rendered. It is called once per stage while the pipeline is built.
	Prepare(stage *params.Params) error
	// Render returns the command line of the stage.
	Render(stage *params.Params, data map[string]any) (string, error)
}

// TemplateRenderer executes the command of a stage as a text/template over
// the materialized context. A key missing from the context is an error.
type TemplateRenderer struct {
	mu        sync.Mutex
	templates map[string]*template.Template
}

func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{templates: map[string]*template.Template{}}
}

var templateFuncs = template.FuncMap{
	"join": join,
}

// join concatenates the items of a list parameter with sep.
func join(sep string, list any) (string, error) {
	switch v := list.(type) {
	case []string:
		return strings.Join(v, sep), nil
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(item)
		}

		return strings.Join(items, sep), nil
	default:
		return "", errors.Errorf("join expects a list, got %T", list)
	}
}

func (r *TemplateRenderer) Prepare(stage *params.Params) error {
	_, err := r.template(stage)

	return err
}

func (r *TemplateRenderer) template(stage *params.Params) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tpl, ok := r.templates[stage.Name()]; ok {
		return tpl, nil
	}

	if strings.TrimSpace(stage.Command()) == "" {
		return nil, errors.Wrapf(model.ErrSchema, "stage %s has no command", stage.Name())
	}

	tpl, err := template.New(stage.Name()).Option("missingkey=error").Funcs(templateFuncs).Parse(stage.Command())
	if err != nil {
		return nil, errors.Wrapf(model.ErrSchema, "invalid command of %s: %s", stage.Name(), err)
	}

	r.templates[stage.Name()] = tpl

	return tpl, nil
}

func (r *TemplateRenderer) Render(stage *params.Params, data map[string]any) (string, error) {
	tpl, err := r.template(stage)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, "unable to render the command of %s", stage.Name())
	}

	return sb.String(), nil
}

var _ Renderer = (*TemplateRenderer)(nil)
