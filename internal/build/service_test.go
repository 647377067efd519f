package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

const siteConfig = `
input: input
output: output
settings:
  site_title: Test Site
pipelines:
  - name: pages
    modules:
      - type: read_files
        options: {pattern: "**/*.md"}
      - type: front_matter
      - type: title
      - type: markdown
      - type: excerpt
      - type: write_files
        options: {extension: ".html"}
  - name: index
    dependencies: [pages]
    modules:
      - type: documents
        options: {pipelines: [pages]}
      - type: order_by
        options: {key: Title}
      - type: index
`

func loadConfig(t *testing.T, raw string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(raw))
	require.NoError(t, err)
	cfg.BaseDir = filepath.FromSlash("/site")
	return cfg
}

func newService(fs afero.Fs, opts ...Option) *Service {
	opts = append([]Option{
		WithFS(fs),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewService(opts...)
}

func seedSite(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/site/input/world.md":       "# World\n\nSecond page.\n",
		"/site/input/hello.md":       "---\nauthor: ada\n---\n# Hello\n\nFirst page.\n",
		"/site/input/notes/draft.txt": "not markdown",
	}
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.FromSlash(p), []byte(content), 0o644))
	}
	return fs
}

func TestServiceBuildsConfiguredSite(t *testing.T) {
	fs := seedSite(t)
	svc := newService(fs)

	eng, err := svc.NewEngine(loadConfig(t, siteConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"pages", "index"}, eng.Pipelines().Names())
	assert.Equal(t, "Test Site", eng.Settings().StringOr("site_title", ""))

	res, err := svc.Run(context.Background(), eng)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.Status.IsSuccess())
	assert.Positive(t, res.Duration)

	html, err := afero.ReadFile(fs, filepath.FromSlash("/site/output/hello.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), `<h1 id="hello">Hello</h1>`)
	assert.NotContains(t, string(html), "author")

	exists, err := afero.Exists(fs, filepath.FromSlash("/site/output/notes/draft.html"))
	require.NoError(t, err)
	assert.False(t, exists)

	index := eng.Documents().ByPipeline("index")
	require.Len(t, index, 2)
	assert.Equal(t, "Hello", index[0].String(modules.KeyTitle, ""))
	assert.Equal(t, "World", index[1].String(modules.KeyTitle, ""))
	assert.EqualValues(t, 1, index[0].Get(modules.KeyIndex, 0))
	assert.EqualValues(t, 2, index[1].Get(modules.KeyIndex, 0))
	assert.Equal(t, "ada", index[0].String("author", ""))
}

func TestServiceResolvesExplicitRoots(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.FromSlash("/site/docs/a.md"), []byte("a"), 0o644))
	cfg := loadConfig(t, `
pipelines:
  - name: copy
    modules:
      - type: branch
        options:
          modules:
            - {type: meta, options: {key: Seen, value: true}}
      - type: read_files
        options: {root: docs}
      - type: write_files
        options: {root: /out}
`)
	svc := newService(fs)
	eng, err := svc.NewEngine(cfg)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), eng)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, filepath.FromSlash("/out/a.md"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestServiceNamesInvalidPipeline(t *testing.T) {
	cfg := loadConfig(t, `
pipelines:
  - modules:
      - type: no_such_module
`)
	_, err := newService(afero.NewMemMapFs()).NewEngine(cfg)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	v, _ := ce.Context().GetString(errors.ContextPipeline)
	assert.Equal(t, "#1", v)
}

func TestServiceRejectsNilConfig(t *testing.T) {
	_, err := newService(afero.NewMemMapFs()).NewEngine(nil)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

func TestServiceDegradedUnderContinuePolicy(t *testing.T) {
	reg := modules.DefaultRegistry()
	require.NoError(t, reg.Register("reject_world", func(map[string]any) (pipeline.Module, error) {
		return pipeline.ForEach(func(_ context.Context, doc *document.Document, _ pipeline.Context) ([]*document.Document, error) {
			if doc.String(modules.KeySourceFileBase, "") == "world" {
				return nil, fmt.Errorf("rejected")
			}
			return []*document.Document{doc}, nil
		}), nil
	}))
	cfg := loadConfig(t, `
pipelines:
  - name: pages
    error_policy: continue
    modules:
      - {type: read_files, options: {pattern: "*.md"}}
      - {type: reject_world}
`)
	svc := newService(seedSite(t), WithRegistry(reg))
	eng, err := svc.NewEngine(cfg)
	require.NoError(t, err)

	res, err := svc.Run(context.Background(), eng)
	require.NoError(t, err)
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Len(t, eng.Documents().ByPipeline("pages"), 1)
}

func TestServiceCancelled(t *testing.T) {
	svc := newService(seedSite(t))
	eng, err := svc.NewEngine(loadConfig(t, siteConfig))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Run(ctx, eng)
	require.Error(t, err)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.False(t, res.Status.IsSuccess())
}

func TestResolveRootsLeavesOtherModules(t *testing.T) {
	cfg := &config.Config{Input: "in", Output: "out", BaseDir: filepath.FromSlash("/base")}
	got := resolveRoots(cfg, map[string]any{
		"type": "parallel",
		"options": map[string]any{
			"module": map[string]any{"type": "READ_FILES"},
		},
	})
	assert.Equal(t, map[string]any{
		"type": "parallel",
		"options": map[string]any{
			"module": map[string]any{
				"type":    "READ_FILES",
				"options": map[string]any{"root": filepath.FromSlash("/base/in")},
			},
		},
	}, got)
	assert.Equal(t, map[string]any{"type": "markdown"}, resolveRoots(cfg, map[string]any{"type": "markdown"}))
}
