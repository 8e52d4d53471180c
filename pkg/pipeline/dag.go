package pipeline

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-mindpipe/pkg/pipeline/params"
)

func stageHash(stage *params.Params) string {
	return stage.Name()
}

// buildDAG links every unassigned input to the only other stage producing its
// datatype and orders the stages topologically, breaking ties by name.
func (p *Pipeline) buildDAG() error {
	p.dag = graph.New(stageHash, graph.Directed(), graph.PreventCycles())
	p.parents = map[string]map[string][]string{}

	names := make([]string, 0, len(p.stages))
	for name := range p.stages {
		names = append(names, name)
	}
	sort.Strings(names)

	producers := map[string][]string{}

	for _, name := range names {
		if err := p.dag.AddVertex(p.stages[name]); err != nil {
			return errors.Wrapf(err, "unable to add stage %s", name)
		}

		for _, out := range p.stages[name].Outputs() {
			producers[out.Datatype] = append(producers[out.Datatype], name)
		}
	}

	for _, name := range names {
		parents, err := p.producersOf(name, producers)
		if err != nil {
			return err
		}

		p.parents[name] = parents

		for _, parent := range sortedKeys(parents) {
			err := p.dag.AddEdge(parent, name, graph.EdgeAttribute("label", strings.Join(parents[parent], ", ")))
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return errors.Wrapf(ErrCycle, "linking %s to %s", parent, name)
			}

			if err != nil {
				return errors.Wrapf(err, "unable to link %s to %s", parent, name)
			}

			p.logger.Debug("stages linked",
				slog.String("from", parent),
				slog.String("to", name),
				slog.Any("datatypes", parents[parent]),
			)
		}
	}

	order, err := graph.StableTopologicalSort(p.dag, func(a, b string) bool { return a < b })
	if err != nil {
		return errors.Wrap(err, "unable to order stages")
	}

	p.order = order
	p.depth = make(map[string]int, len(order))

	for _, name := range order {
		for parent := range p.parents[name] {
			p.depth[name] = max(p.depth[name], p.depth[parent]+1)
		}
	}

	return nil
}

// producersOf maps every parent of the stage to the datatypes it provides.
func (p *Pipeline) producersOf(name string, producers map[string][]string) (map[string][]string, error) {
	parents := map[string][]string{}

	for _, in := range p.stages[name].Inputs() {
		if in.Location != "" {
			continue
		}

		candidates := []string{}
		for _, producer := range producers[in.Datatype] {
			if producer != name {
				candidates = append(candidates, producer)
			}
		}

		switch len(candidates) {
		case 0:
			return nil, errors.Wrapf(ErrUnresolvedInput, "input %s of %s has no location and no stage produces it", in.Datatype, name)
		case 1:
			parents[candidates[0]] = append(parents[candidates[0]], in.Datatype)
		default:
			return nil, errors.Wrapf(ErrAmbiguousInput, "input %s of %s is produced by %s", in.Datatype, name, strings.Join(candidates, ", "))
		}
	}

	return parents, nil
}

// attach copies the producer output locations into the consumer inputs, in execution order.
func (p *Pipeline) attach() error {
	for _, name := range p.order {
		stage := p.stages[name]

		for _, parent := range p.Parents(name) {
			if err := stage.AttachOutputs(p.stages[parent], p.parents[name][parent]...); err != nil {
				return errors.Wrapf(err, "unable to attach %s to %s", name, parent)
			}
		}
	}

	return nil
}

// Parents returns the stages name depends on, sorted by name.
func (p *Pipeline) Parents(name string) []string {
	return sortedKeys(p.parents[name])
}

// Children returns the stages depending on name, sorted by name.
func (p *Pipeline) Children(name string) []string {
	children := []string{}

	for child, parents := range p.parents {
		if _, ok := parents[name]; ok {
			children = append(children, child)
		}
	}
	sort.Strings(children)

	return children
}

// levels groups the stages by depth. Stages of the same level never depend on each other.
func (p *Pipeline) levels() [][]string {
	levels := [][]string{}

	for _, name := range p.order {
		d := p.depth[name]
		for len(levels) <= d {
			levels = append(levels, []string{})
		}

		levels[d] = append(levels[d], name)
	}

	return levels
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
