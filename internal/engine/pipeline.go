package engine

import (
	"slices"
	"sync"

	"git.home.luguber.info/inful/sitepipe/internal/cache"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// State is the lifecycle state of a pipeline within the engine.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// Pipeline is a named, ordered list of modules. Configure it before the first
// execution; the engine reads the configuration on every run.
type Pipeline struct {
	name    string
	modules []pipeline.Module

	// ErrorPolicy governs recoverable module errors.
	ErrorPolicy pipeline.ErrorPolicy
	// ProcessOnce runs the pipeline on the first execution only and keeps its
	// documents for later executions.
	ProcessOnce bool
	// InputPipeline starts this pipeline from another pipeline's documents
	// instead of a fresh seed document.
	InputPipeline string
	// Dependencies lists pipelines that must run first.
	Dependencies []string
	// Metadata is layered over the engine settings for this pipeline.
	Metadata *metadata.Metadata

	mu          sync.Mutex
	state       State
	executions  int
	fingerprint map[string]string
	cache       *cache.ExecutionCache
}

func newPipeline(name string, modules []pipeline.Module) *Pipeline {
	return &Pipeline{
		name:        name,
		modules:     slices.Clone(modules),
		fingerprint: make(map[string]string),
	}
}

// Name returns the pipeline name as registered.
func (p *Pipeline) Name() string { return p.name }

// Modules returns a copy of the module list.
func (p *Pipeline) Modules() []pipeline.Module { return slices.Clone(p.modules) }

// Append adds modules to the end of the pipeline.
func (p *Pipeline) Append(modules ...pipeline.Module) *Pipeline {
	p.modules = append(p.modules, modules...)
	return p
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Executions counts how many times the pipeline's modules actually ran.
func (p *Pipeline) Executions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.executions
}

// Cache returns the pipeline's execution cache. It is nil until the pipeline
// is added to an engine.
func (p *Pipeline) Cache() *cache.ExecutionCache { return p.cache }

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	if s == StateRunning {
		p.executions++
	}
	p.mu.Unlock()
}

func (p *Pipeline) skip() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ProcessOnce && p.executions > 0 && p.state == StateCompleted
}

// dependencies returns explicit dependencies plus the input pipeline.
func (p *Pipeline) dependencies() []string {
	deps := slices.Clone(p.Dependencies)
	if p.InputPipeline != "" {
		deps = append(deps, p.InputPipeline)
	}
	return deps
}

// diff compares outputs with the previous run by (source, fingerprint) and
// records the new state. Documents without a source are not tracked.
func (p *Pipeline) diff(outputs []*document.Document) (changed, removed int) {
	current := make(map[string]string, len(outputs))
	for _, doc := range outputs {
		src := doc.Source()
		if src == "" {
			continue
		}
		fp := doc.Fingerprint()
		current[src] = fp
		if prev, ok := p.fingerprint[src]; !ok || prev != fp {
			changed++
		}
	}
	for src := range p.fingerprint {
		if _, ok := current[src]; !ok {
			removed++
		}
	}
	p.fingerprint = current
	return changed, removed
}
