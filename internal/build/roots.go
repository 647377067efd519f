package build

import (
	"maps"
	"strings"

	"github.com/spf13/cast"

	"git.home.luguber.info/inful/sitepipe/internal/config"
)

// defaultRoots maps file modules onto the configured directory they read
// from or write to when no root option is given.
var defaultRoots = map[string]func(*config.Config) string{
	"read_files":  (*config.Config).InputDir,
	"write_files": (*config.Config).OutputDir,
}

// resolveRoots returns a copy of a module spec whose file roots are absolute.
// Nested module lists are resolved recursively.
func resolveRoots(cfg *config.Config, spec any) any {
	m, err := cast.ToStringMapE(spec)
	if err != nil {
		return spec
	}
	out := maps.Clone(m)
	opts, _ := cast.ToStringMapE(m["options"])
	opts = maps.Clone(opts)
	if opts == nil {
		opts = map[string]any{}
	}

	if dflt, ok := defaultRoots[strings.ToLower(strings.TrimSpace(cast.ToString(m["type"])))]; ok {
		if root := cast.ToString(opts["root"]); root != "" {
			opts["root"] = cfg.ResolvePath(root)
		} else {
			opts["root"] = dflt(cfg)
		}
	}
	for _, key := range []string{"modules", "module"} {
		switch nested := opts[key].(type) {
		case []any:
			resolved := make([]any, len(nested))
			for i, n := range nested {
				resolved[i] = resolveRoots(cfg, n)
			}
			opts[key] = resolved
		case map[string]any:
			opts[key] = resolveRoots(cfg, nested)
		}
	}

	if len(opts) > 0 {
		out["options"] = opts
	}
	return out
}
