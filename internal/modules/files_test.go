package modules

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

func seedFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestReadFiles(t *testing.T) {
	fs := seedFS(t, map[string]string{
		"site/index.md":         "home",
		"site/posts/hello.md":   "hello",
		"site/posts/draft.md":   "draft",
		"site/assets/style.css": "body{}",
	})

	out := run(t, fs, NewReadFiles("site", "**/*.md", "!**/draft.md"))
	require.Len(t, out, 2)
	assert.Equal(t, []string{"home", "hello"}, contents(out))

	post := out[1]
	assert.Equal(t, "site/posts/hello.md", post.Source())
	assert.Equal(t, "posts/hello.md", post.String(KeyRelativeFilePath, ""))
	assert.Equal(t, "posts", post.String(KeyRelativeFileDir, ""))
	assert.Equal(t, "hello.md", post.String(KeySourceFileName, ""))
	assert.Equal(t, "hello", post.String(KeySourceFileBase, ""))
	assert.Equal(t, ".md", post.String(KeySourceFileExt, ""))
	assert.Equal(t, "site/posts", post.String(KeySourceFileDir, ""))
	assert.Equal(t, "", out[0].String(KeyRelativeFileDir, "x"))
}

func TestReadFilesDefaultsToEverything(t *testing.T) {
	fs := seedFS(t, map[string]string{"in/a.txt": "a", "in/b/c.txt": "c"})
	out := run(t, fs, NewReadFiles("in"))
	assert.Equal(t, []string{"a", "c"}, contents(out))
}

func TestReadFilesErrors(t *testing.T) {
	e := newEngine(afero.NewMemMapFs())
	_, err := e.Pipelines().Add("Missing", NewReadFiles("nowhere"))
	require.NoError(t, err)
	_, err = e.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryModule))

	e = newEngine(afero.NewMemMapFs())
	_, err = e.Pipelines().Add("BadPattern", NewReadFiles(".", "[unclosed"))
	require.NoError(t, err)
	_, err = e.Execute(context.Background())
	require.Error(t, err)
}

func TestWriteFiles(t *testing.T) {
	fs := seedFS(t, map[string]string{"in/a.md": "A", "in/sub/b.md": "B"})
	custom := Execute(func(_ context.Context, d *document.Document, ec pipeline.Context) ([]*document.Document, error) {
		if d.String(KeySourceFileBase, "") == "b" {
			return []*document.Document{ec.GetDocument(d, document.WithValue(KeyDestinationPath, "custom/b.txt"))}, nil
		}
		return []*document.Document{d}, nil
	})
	unsourced := Concat(docs("no destination"))

	out := run(t, fs, NewReadFiles("in", "**/*.md"), custom, unsourced, NewWriteFiles("out").WithExtension("html"))
	require.Len(t, out, 3)

	data, err := afero.ReadFile(fs, "out/a.html")
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))
	data, err = afero.ReadFile(fs, "out/custom/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "B", string(data))

	assert.Equal(t, "out/a.html", out[0].String(KeyDestinationFilePath, ""))
	assert.False(t, out[2].ContainsKey(KeyDestinationFilePath))
}

func TestWriteFilesSkipsUnchangedContent(t *testing.T) {
	fs := seedFS(t, map[string]string{"in/a.md": "A"})
	e := newEngine(fs)
	p, err := e.Pipelines().Add("Write", NewReadFiles("in"), NewWriteFiles("out"))
	require.NoError(t, err)

	_, err = e.Execute(context.Background())
	require.NoError(t, err)
	_, err = e.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Cache().Stats().Hits)

	// A deleted output is rewritten even when the content is unchanged.
	require.NoError(t, fs.Remove("out/a.md"))
	_, err = e.Execute(context.Background())
	require.NoError(t, err)
	ok, err := afero.Exists(fs, "out/a.md")
	require.NoError(t, err)
	assert.True(t, ok)
}
