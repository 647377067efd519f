package engine

import (
	"fmt"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitepipe/internal/cache"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// PipelineCollection is the ordered set of pipelines registered with an
// engine. Names are unique ignoring case.
type PipelineCollection struct {
	mu       sync.RWMutex
	items    []*Pipeline
	recorder metrics.Recorder
	unnamed  int
	locked   func() bool
}

func newPipelineCollection(recorder metrics.Recorder, locked func() bool) *PipelineCollection {
	return &PipelineCollection{recorder: recorder, locked: locked}
}

func (c *PipelineCollection) indexOf(name string) int {
	for i, p := range c.items {
		if strings.EqualFold(p.name, name) {
			return i
		}
	}
	return -1
}

func (c *PipelineCollection) checkMutable() error {
	if c.locked != nil && c.locked() {
		return errors.RuntimeError("pipelines cannot be changed while the engine is executing").Build()
	}
	return nil
}

func (c *PipelineCollection) insertAt(index int, name string, modules []pipeline.Module) (*Pipeline, error) {
	if err := c.checkMutable(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.ConfigError("pipeline name must not be empty").Build()
	}
	if existing := c.indexOf(name); existing >= 0 {
		return nil, errors.ConfigError("duplicate pipeline name").
			WithContext(errors.ContextPipeline, name).
			WithContext("existing", c.items[existing].name).
			Build()
	}
	if index < 0 || index > len(c.items) {
		return nil, errors.ConfigError(fmt.Sprintf("pipeline index %d out of range", index)).
			WithContext(errors.ContextPipeline, name).
			Build()
	}
	p := newPipeline(name, modules)
	p.cache = cache.New(name, c.recorder)
	c.items = append(c.items, nil)
	copy(c.items[index+1:], c.items[index:])
	c.items[index] = p
	return p, nil
}

// Add appends a pipeline. Duplicate names are a configuration error.
func (c *PipelineCollection) Add(name string, modules ...pipeline.Module) (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertAt(len(c.items), name, modules)
}

// AddUnnamed appends a pipeline named "Pipeline N", skipping numbers that
// are already taken.
func (c *PipelineCollection) AddUnnamed(modules ...pipeline.Module) (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		c.unnamed++
		name := fmt.Sprintf("Pipeline %d", c.unnamed)
		if c.indexOf(name) < 0 {
			return c.insertAt(len(c.items), name, modules)
		}
	}
}

// Insert places a pipeline at index.
func (c *PipelineCollection) Insert(index int, name string, modules ...pipeline.Module) (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertAt(index, name, modules)
}

// Get returns the pipeline called name, ignoring case.
func (c *PipelineCollection) Get(name string) (*Pipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(name); i >= 0 {
		return c.items[i], true
	}
	return nil, false
}

// Remove deletes the pipeline called name and reports whether it existed.
func (c *PipelineCollection) Remove(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkMutable(); err != nil {
		return false, err
	}
	i := c.indexOf(name)
	if i < 0 {
		return false, nil
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true, nil
}

// Names returns pipeline names in declaration order.
func (c *PipelineCollection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.items))
	for i, p := range c.items {
		names[i] = p.name
	}
	return names
}

// Len returns the number of pipelines.
func (c *PipelineCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *PipelineCollection) snapshot() []*Pipeline {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Pipeline, len(c.items))
	copy(out, c.items)
	return out
}
