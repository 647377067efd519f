package engine

import (
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// executionOrder sorts pipelines so every pipeline runs after the pipelines it
// depends on. Among pipelines that are ready at the same time declaration
// order wins, so independent pipelines run in the order they were added.
func executionOrder(pipelines []*Pipeline) ([]*Pipeline, error) {
	index := make(map[string]int, len(pipelines))
	for i, p := range pipelines {
		index[strings.ToLower(p.name)] = i
	}

	dependents := make([][]int, len(pipelines))
	inDegree := make([]int, len(pipelines))
	for i, p := range pipelines {
		for _, dep := range p.dependencies() {
			j, ok := index[strings.ToLower(dep)]
			if !ok {
				return nil, errors.ConfigError("unknown pipeline dependency").
					WithContext(errors.ContextPipeline, p.name).
					WithContext("dependency", dep).
					Build()
			}
			if j == i {
				return nil, errors.ConfigError("pipeline depends on itself").
					WithContext(errors.ContextPipeline, p.name).
					Build()
			}
			dependents[j] = append(dependents[j], i)
			inDegree[i]++
		}
	}

	order := make([]*Pipeline, 0, len(pipelines))
	done := make([]bool, len(pipelines))
	for len(order) < len(pipelines) {
		next := -1
		for i := range pipelines {
			if !done[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var cyclic []string
			for i, p := range pipelines {
				if !done[i] {
					cyclic = append(cyclic, p.name)
				}
			}
			return nil, errors.ConfigError("circular pipeline dependency").
				WithContext("pipelines", strings.Join(cyclic, ",")).
				Build()
		}
		done[next] = true
		order = append(order, pipelines[next])
		for _, d := range dependents[next] {
			inDegree[d]--
		}
	}
	return order, nil
}

// Plan returns the names of the registered pipelines in the order the next
// execution will run them.
func (e *Engine) Plan() ([]string, error) {
	order, err := executionOrder(e.pipelines.snapshot())
	if err != nil {
		return nil, err
	}
	names := make([]string, len(order))
	for i, p := range order {
		names[i] = p.name
	}
	return names, nil
}
