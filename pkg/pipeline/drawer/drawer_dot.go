package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-mindpipe/pkg/pipeline/measure"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

// DOTDrawer draws the stage graph in the DOT language.
type DOTDrawer struct {
	mu          sync.Mutex
	graph       graph.Graph[string, string]
	stages      map[string]struct{}
	dotFileName string
	out         io.Writer
}

// NewDOTDrawer creates a drawer writing to the file dotFileName.
func NewDOTDrawer(dotFileName string) *DOTDrawer {
	return &DOTDrawer{
		dotFileName: dotFileName,
		graph:       graph.New(graph.StringHash, graph.Directed()),
		stages:      make(map[string]struct{}),
	}
}

// NewDOTWriterDrawer creates a drawer writing to w.
func NewDOTWriterDrawer(w io.Writer) *DOTDrawer {
	d := NewDOTDrawer("")
	d.out = w

	return d
}

// AddStage adds a stage to the graph. Adding a stage twice is a no-op.
func (d *DOTDrawer) AddStage(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stages[name]; ok {
		return nil
	}

	err := d.graph.AddVertex(name, graph.VertexAttribute("shape", "box"))
	if err != nil {
		return errors.Wrap(err, "unable to add vertex")
	}

	d.stages[name] = struct{}{}

	return nil
}

// AddLink adds a link between parent and child stages.
func (d *DOTDrawer) AddLink(parentName, childName, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	opts := []func(*graph.EdgeProperties){}
	if label != "" {
		opts = append(opts, graph.EdgeAttribute("label", label))
	}

	err := d.graph.AddEdge(parentName, childName, opts...)
	if errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

var statusRGB = map[model.Status][3]uint8{
	model.StatusPending: {211, 211, 211},
	model.StatusRunning: {135, 206, 250},
	model.StatusSuccess: {144, 238, 144},
	model.StatusFailure: {240, 128, 128},
	model.StatusTimeout: {255, 165, 0},
}

func statusColour(status model.Status) (string, error) {
	rgb, ok := statusRGB[status]
	if !ok {
		rgb = statusRGB[model.StatusPending]
	}

	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2])
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

// SetStatus fills the stage with the colour of its status.
func (d *DOTDrawer) SetStatus(name string, status model.Status) error {
	colour, err := statusColour(status)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, properties, err := d.graph.VertexWithProperties(name)
	if err != nil {
		return errors.Wrapf(err, "unable to get %s vertex properties", name)
	}

	properties.Attributes["style"] = "filled"
	properties.Attributes["fillcolor"] = colour
	properties.Attributes["tooltip"] = string(status)

	return nil
}

// Draw writes the graph.
func (d *DOTDrawer) Draw() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.out != nil {
		return dot(d.graph, d.out)
	}

	file, err := os.Create(d.dotFileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.dotFileName)
	}
	defer file.Close()

	err = dot(d.graph, file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.dotFileName)
	}

	return errors.Wrapf(file.Close(), "unable to close dot file %s", d.dotFileName)
}

// SetTotalTime sets the total time for the stage.
func (d *DOTDrawer) SetTotalTime(stageName string, startTime time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, properties, err := d.graph.VertexWithProperties(stageName)
	if err != nil {
		return errors.Wrap(err, "unable to get end vertex properties")
	}

	properties.Attributes["xlabel"] = time.Since(startTime).Round(time.Millisecond).String()

	return nil
}

const maxRGB = 240

// AddMeasure labels stages with their average duration and colours links from
// blue to red after the time a stage waited for its parent.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	allWaits := make(map[time.Duration]string)
	sortedWaits := []time.Duration{}

	for _, stage := range msr.AllMetrics() {
		for _, info := range stage.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			if _, ok := allWaits[info.Elapsed]; ok {
				continue
			}

			allWaits[info.Elapsed] = ""

			sortedWaits = append(sortedWaits, info.Elapsed)
		}
	}

	sort.Slice(sortedWaits, func(i, j int) bool {
		return sortedWaits[i] > sortedWaits[j]
	})

	if len(sortedWaits) > 0 {
		maxValue := sortedWaits[0]
		minValue := sortedWaits[len(sortedWaits)-1]

		for curr := range allWaits {
			fraction := 1.0
			if maxValue > minValue {
				fraction = float64(curr-minValue) / float64(maxValue-minValue)
			}

			red := maxRGB * fraction
			blue := maxRGB - red

			colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
			if err != nil {
				return errors.Wrap(err, "unable to get colour")
			}

			allWaits[curr] = colour.ToHEX().String()
		}
	}

	err := d.updateMetrics(msr, allWaits)
	if err != nil {
		return errors.Wrap(err, "unable to update metrics")
	}

	return nil
}

func (d *DOTDrawer) updateMetrics(msr measure.Measure, allWaits map[time.Duration]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, stage := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(name)
		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}

		if stageAvg := stage.AVGDuration(); stageAvg != 0 {
			properties.Attributes["xlabel"] = stageAvg.String()
		}

		if stage.GetTotalDuration() > 0 {
			properties.Attributes["xlabel"] = "total: " + stage.GetTotalDuration().String()
		}

		for parent, info := range stage.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			edge, err := d.graph.Edge(parent, name)
			if err != nil {
				return errors.Wrapf(err, "unable to get edge from %s to %s", parent, name)
			}

			label := info.Elapsed.String()
			if datatypes := edge.Properties.Attributes["label"]; datatypes != "" {
				label = datatypes + " (" + label + ")"
			}

			err = d.graph.UpdateEdge(parent, name,
				graph.EdgeAttribute("label", label),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", allWaits[info.Elapsed]),
			)
			if err != nil {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot(g graph.Graph[string, string], wrt io.Writer, options ...func(*description)) error {
	desc, err := generateDOT(g, options...)
	if err != nil {
		return fmt.Errorf("failed to generate DOT description: %w", err)
	}

	return renderDOT(wrt, desc)
}

// GraphAttribute is a functional option for the [DOT] method.
func GraphAttribute(key, value string) func(*description) {
	return func(d *description) {
		d.Attributes[key] = value
	}
}

func generateDOT(gra graph.Graph[string, string], options ...func(*description)) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}

	for _, option := range options {
		option(&desc)
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]string, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}
	sort.Strings(vertices)

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)
		sourceAttributes := make(map[string]string, len(sourceProperties.Attributes))

		for k, v := range sourceProperties.Attributes {
			if k == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%+v <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, v)

				continue
			}

			sourceAttributes[k] = v
		}

		stmt := statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		}
		desc.Statements = append(desc.Statements, stmt)

		targets := make([]string, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}
		sort.Strings(targets)

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			stmt := statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			}
			desc.Statements = append(desc.Statements, stmt)
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
