package modules

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Factory builds a module from its configuration options.
type Factory func(options map[string]any) (pipeline.Module, error)

// Registry maps module type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func normalizeType(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a factory. Type names are case-insensitive and must be unique.
func (r *Registry) Register(name string, f Factory) error {
	key := normalizeType(name)
	if key == "" || f == nil {
		return errors.InternalError("module type needs a name and a factory").Build()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		return errors.ConfigError("module type already registered").WithContext("type", name).Build()
	}
	r.factories[key] = f
	return nil
}

// New builds a module of the given type.
func (r *Registry) New(typeName string, options map[string]any) (pipeline.Module, error) {
	r.mu.RLock()
	f, ok := r.factories[normalizeType(typeName)]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.ConfigError("unknown module type").
			WithContext("type", typeName).
			WithContext("known", strings.Join(r.Types(), ",")).
			Build()
	}
	m, err := f(options)
	if err != nil {
		if _, classified := errors.AsClassified(err); classified {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid module options").
			WithContext("type", typeName).
			Build()
	}
	return m, nil
}

// NewChain builds modules from a list of {type, options} entries as decoded
// from configuration.
func (r *Registry) NewChain(specs []any) ([]pipeline.Module, error) {
	out := make([]pipeline.Module, 0, len(specs))
	for i, raw := range specs {
		spec, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("module %d is not a mapping", i)).Build()
		}
		typeName := cast.ToString(spec["type"])
		opts, err := cast.ToStringMapE(spec["options"])
		if spec["options"] != nil && err != nil {
			return nil, errors.ConfigError("module options must be a mapping").WithContext("type", typeName).Build()
		}
		m, err := r.New(typeName, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Types lists registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// options wraps a module's option map with typed, validated accessors.
type options struct {
	module string
	values map[string]any
}

func newOptions(module string, values map[string]any, allowed ...string) (options, error) {
	for key := range values {
		if !slices.Contains(allowed, key) {
			return options{}, errors.ConfigError("unknown module option").
				WithContext("type", module).
				WithContext("option", key).
				Build()
		}
	}
	return options{module: module, values: values}, nil
}

func (o options) invalid(key string, err error) error {
	return errors.WrapError(err, errors.CategoryConfig, "invalid module option").
		WithContext("type", o.module).
		WithContext("option", key).
		Build()
}

func (o options) string(key, def string) (string, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", o.invalid(key, err)
	}
	return s, nil
}

func (o options) int(key string, def int) (int, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, o.invalid(key, err)
	}
	return n, nil
}

func (o options) bool(key string, def bool) (bool, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, o.invalid(key, err)
	}
	return b, nil
}

// strings accepts a single string or a list.
func (o options) strings(key string) ([]string, error) {
	v, ok := o.values[key]
	if !ok {
		return nil, nil
	}
	if s, isString := v.(string); isString {
		return []string{s}, nil
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, o.invalid(key, err)
	}
	return list, nil
}

func (o options) list(key string) []any {
	v, ok := o.values[key]
	if !ok {
		return nil
	}
	if l, isList := v.([]any); isList {
		return l
	}
	return []any{v}
}

// DefaultRegistry returns a registry with every built-in module registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, f := range builtins(r) {
		// Built-in names are unique.
		_ = r.Register(name, f)
	}
	return r
}

func builtins(r *Registry) map[string]Factory {
	return map[string]Factory{
		"read_files": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("read_files", raw, "root", "pattern", "patterns")
			if err != nil {
				return nil, err
			}
			root, err := o.string("root", ".")
			if err != nil {
				return nil, err
			}
			patterns, err := o.strings("pattern")
			if err != nil {
				return nil, err
			}
			more, err := o.strings("patterns")
			if err != nil {
				return nil, err
			}
			return NewReadFiles(root, append(patterns, more...)...), nil
		},
		"write_files": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("write_files", raw, "root", "extension")
			if err != nil {
				return nil, err
			}
			root, err := o.string("root", ".")
			if err != nil {
				return nil, err
			}
			ext, err := o.string("extension", "")
			if err != nil {
				return nil, err
			}
			return NewWriteFiles(root).WithExtension(ext), nil
		},
		"front_matter": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("front_matter", raw, "delimiter")
			if err != nil {
				return nil, err
			}
			d, err := o.string("delimiter", "")
			if err != nil {
				return nil, err
			}
			fm := NewFrontMatter()
			if d != "" {
				fm.WithDelimiter(d)
			}
			return fm, nil
		},
		"markdown": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("markdown", raw, "allow_html")
			if err != nil {
				return nil, err
			}
			allow, err := o.bool("allow_html", false)
			if err != nil {
				return nil, err
			}
			if allow {
				return NewMarkdown().AllowHTML(), nil
			}
			return NewMarkdown(), nil
		},
		"excerpt": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("excerpt", raw, "tag", "key")
			if err != nil {
				return nil, err
			}
			tag, err := o.string("tag", "p")
			if err != nil {
				return nil, err
			}
			key, err := o.string("key", KeyExcerpt)
			if err != nil {
				return nil, err
			}
			return NewExcerpt().WithTag(tag).WithKey(key), nil
		},
		"title": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("title", raw, "key", "overwrite")
			if err != nil {
				return nil, err
			}
			key, err := o.string("key", KeyTitle)
			if err != nil {
				return nil, err
			}
			overwrite, err := o.bool("overwrite", false)
			if err != nil {
				return nil, err
			}
			t := NewTitle().WithKey(key)
			if overwrite {
				t.Overwrite()
			}
			return t, nil
		},
		"links": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("links", raw, "key", "internal_only")
			if err != nil {
				return nil, err
			}
			key, err := o.string("key", KeyLinks)
			if err != nil {
				return nil, err
			}
			internal, err := o.bool("internal_only", false)
			if err != nil {
				return nil, err
			}
			l := NewLinks().WithKey(key)
			if internal {
				l.InternalOnly()
			}
			return l, nil
		},
		"fingerprint": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("fingerprint", raw, "upsert")
			if err != nil {
				return nil, err
			}
			upsert, err := o.bool("upsert", false)
			if err != nil {
				return nil, err
			}
			if upsert {
				return NewFingerprint().Upsert(), nil
			}
			return NewFingerprint(), nil
		},
		"meta": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("meta", raw, "key", "value", "if_missing")
			if err != nil {
				return nil, err
			}
			key, err := o.string("key", "")
			if err != nil {
				return nil, err
			}
			if key == "" {
				return nil, o.invalid("key", fmt.Errorf("key is required"))
			}
			ifMissing, err := o.bool("if_missing", false)
			if err != nil {
				return nil, err
			}
			m := NewMeta(key, o.values["value"])
			if ifMissing {
				m.IfMissing()
			}
			return m, nil
		},
		"where": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("where", raw, "key", "equals", "not")
			if err != nil {
				return nil, err
			}
			key, err := o.string("key", "")
			if err != nil {
				return nil, err
			}
			if key == "" {
				return nil, o.invalid("key", fmt.Errorf("key is required"))
			}
			negate, err := o.bool("not", false)
			if err != nil {
				return nil, err
			}
			want, hasWant := o.values["equals"]
			return Where(func(doc *document.Document) bool {
				v, ok := doc.TryGetValue(key)
				match := ok
				if ok && hasWant {
					match = equalValues(v, want)
				}
				return match != negate
			}), nil
		},
		"order_by": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("order_by", raw, "key", "descending", "then_by")
			if err != nil {
				return nil, err
			}
			key, err := o.string("key", "")
			if err != nil {
				return nil, err
			}
			if key == "" {
				return nil, o.invalid("key", fmt.Errorf("key is required"))
			}
			desc, err := o.bool("descending", false)
			if err != nil {
				return nil, err
			}
			then, err := o.strings("then_by")
			if err != nil {
				return nil, err
			}
			ob := NewOrderBy(key)
			if desc {
				ob.Descending()
			}
			for _, k := range then {
				ob.ThenBy(k)
			}
			return ob, nil
		},
		"index": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("index", raw, "key", "start")
			if err != nil {
				return nil, err
			}
			key, err := o.string("key", KeyIndex)
			if err != nil {
				return nil, err
			}
			start, err := o.int("start", 1)
			if err != nil {
				return nil, err
			}
			return NewIndex().WithKey(key).StartAt(start), nil
		},
		"paginate": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("paginate", raw, "size")
			if err != nil {
				return nil, err
			}
			size, err := o.int("size", 10)
			if err != nil {
				return nil, err
			}
			if size <= 0 {
				return nil, o.invalid("size", fmt.Errorf("size must be positive, got %d", size))
			}
			return NewPaginate(size), nil
		},
		"take": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("take", raw, "count")
			if err != nil {
				return nil, err
			}
			n, err := o.int("count", 0)
			if err != nil {
				return nil, err
			}
			return Take(n), nil
		},
		"documents": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("documents", raw, "pipelines")
			if err != nil {
				return nil, err
			}
			names, err := o.strings("pipelines")
			if err != nil {
				return nil, err
			}
			return Documents(names...), nil
		},
		"branch": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("branch", raw, "modules")
			if err != nil {
				return nil, err
			}
			chain, err := r.NewChain(o.list("modules"))
			if err != nil {
				return nil, err
			}
			return Branch(chain...), nil
		},
		"concat": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("concat", raw, "modules")
			if err != nil {
				return nil, err
			}
			chain, err := r.NewChain(o.list("modules"))
			if err != nil {
				return nil, err
			}
			return Concat(chain...), nil
		},
		"parallel": func(raw map[string]any) (pipeline.Module, error) {
			o, err := newOptions("parallel", raw, "module", "limit")
			if err != nil {
				return nil, err
			}
			limit, err := o.int("limit", 0)
			if err != nil {
				return nil, err
			}
			chain, err := r.NewChain(o.list("module"))
			if err != nil {
				return nil, err
			}
			if len(chain) != 1 {
				return nil, o.invalid("module", fmt.Errorf("exactly one module expected, got %d", len(chain)))
			}
			return NewAsParallel(chain[0]).WithLimit(limit), nil
		},
	}
}

// equalValues compares configured and document values loosely so that
// `equals: 3` matches both int and float metadata.
func equalValues(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	return cast.ToString(a) == cast.ToString(b) && cast.ToString(a) != ""
}
