package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

func TestDefaultRegistryBuildsChain(t *testing.T) {
	fs := seedFS(t, map[string]string{
		"in/b.md": "---\nweight: 2\n---\n# B\n\nSecond post.",
		"in/a.md": "---\nweight: 1\ndraft: true\n---\n# A",
		"in/c.md": "---\nweight: 3\n---\n# C\n\nThird post.",
	})
	r := DefaultRegistry()
	chain, err := r.NewChain([]any{
		map[string]any{"type": "read_files", "options": map[string]any{"root": "in", "pattern": "**/*.md"}},
		map[string]any{"type": "fingerprint"},
		map[string]any{"type": "front_matter"},
		map[string]any{"type": "where", "options": map[string]any{"key": "draft", "equals": true, "not": true}},
		map[string]any{"type": "order_by", "options": map[string]any{"key": "weight", "descending": true}},
		map[string]any{"type": "parallel", "options": map[string]any{
			"module": map[string]any{"type": "markdown"},
			"limit":  2,
		}},
		map[string]any{"type": "excerpt"},
		map[string]any{"type": "title"},
		map[string]any{"type": "index"},
		map[string]any{"type": "write_files", "options": map[string]any{"root": "out", "extension": "html"}},
	})
	require.NoError(t, err)
	require.Len(t, chain, 10)
	assert.Equal(t, "AsParallel(Markdown)", pipeline.NameOf(chain[5]))

	out := run(t, fs, chain...)
	require.Len(t, out, 2)
	assert.Equal(t, "C", out[0].String(KeyTitle, ""))
	assert.Equal(t, "<p>Third post.</p>", out[0].String(KeyExcerpt, ""))
	assert.Equal(t, []int{1, 2}, ints(t, out, KeyIndex))
	assert.NotEmpty(t, out[1].String(KeyFingerprint, ""))
	assert.Equal(t, "out/b.html", out[1].String(KeyDestinationFilePath, ""))
}

func TestRegistryErrors(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.New("minify", nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = r.New("markdown", map[string]any{"unknown": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown module option")

	_, err = r.New("paginate", map[string]any{"size": "many"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = r.New("paginate", map[string]any{"size": 0})
	require.Error(t, err)

	_, err = r.New("order_by", nil)
	require.Error(t, err)

	_, err = r.NewChain([]any{"not a map"})
	require.Error(t, err)

	_, err = r.New("parallel", map[string]any{"module": []any{}})
	require.Error(t, err)

	require.Error(t, r.Register("Markdown", func(map[string]any) (pipeline.Module, error) { return NewMarkdown(), nil }))
}

func TestRegistryTypesAndCustomFactory(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Shout", func(map[string]any) (pipeline.Module, error) {
		return NewMeta("Shout", true), nil
	}))
	m, err := r.New("  shout ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Meta", pipeline.NameOf(m))
	assert.Equal(t, []string{"shout"}, r.Types())

	assert.Contains(t, DefaultRegistry().Types(), "read_files")
}
