package modules

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// ReadFiles replaces the inputs with one document per file under root that
// matches the patterns. Patterns are doublestar globs relative to root; a
// leading "!" excludes matches. File contents are opened lazily.
type ReadFiles struct {
	root     string
	patterns []string
}

// NewReadFiles reads files below root. Without patterns every file matches.
func NewReadFiles(root string, patterns ...string) *ReadFiles {
	if len(patterns) == 0 {
		patterns = []string{"**"}
	}
	return &ReadFiles{root: root, patterns: patterns}
}

func (r *ReadFiles) Name() string { return "ReadFiles" }

func (r *ReadFiles) Execute(ctx context.Context, _ []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	fsys := ec.FS()
	for _, p := range r.patterns {
		if !doublestar.ValidatePattern(strings.TrimPrefix(p, "!")) {
			return nil, errors.ConfigError("invalid file pattern").WithContext("pattern", p).Build()
		}
	}

	var out []*document.Document
	err := afero.Walk(fsys, r.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !r.matches(rel) {
			return nil
		}
		out = append(out, ec.GetDocument(nil,
			document.WithSource(filepath.ToSlash(p)),
			document.WithOpener(func() (io.ReadCloser, error) { return fsys.Open(p) }),
			document.WithMetadata(fileMetadata(p, rel)),
		))
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read files").
			WithContext("root", r.root).
			Build()
	}
	ec.Logger().Debug("Read files", logfields.Path(r.root), logfields.Documents(len(out)))
	return out, nil
}

func (r *ReadFiles) matches(rel string) bool {
	matched := false
	for _, p := range r.patterns {
		if exclude, ok := strings.CutPrefix(p, "!"); ok {
			if doublestar.MatchUnvalidated(exclude, rel) {
				return false
			}
			continue
		}
		if !matched && doublestar.MatchUnvalidated(p, rel) {
			matched = true
		}
	}
	return matched
}

func fileMetadata(fullPath, rel string) map[string]any {
	full := filepath.ToSlash(fullPath)
	name := path.Base(full)
	ext := path.Ext(name)
	relDir := path.Dir(rel)
	if relDir == "." {
		relDir = ""
	}
	return map[string]any{
		KeySourceFilePath:   full,
		KeySourceFileName:   name,
		KeySourceFileBase:   strings.TrimSuffix(name, ext),
		KeySourceFileExt:    ext,
		KeySourceFileDir:    path.Dir(full),
		KeyRelativeFilePath: rel,
		KeyRelativeFileDir:  relDir,
	}
}

// WriteFiles writes each document's content below root and records the
// written path under KeyDestinationFilePath. The destination is taken from
// KeyDestinationPath, or from KeyRelativeFilePath with the extension replaced.
// Documents with neither key pass through unwritten. Unchanged content that
// was already written in an earlier execution is not rewritten.
type WriteFiles struct {
	root      string
	extension string
}

// NewWriteFiles writes below root.
func NewWriteFiles(root string) *WriteFiles {
	return &WriteFiles{root: root}
}

// WithExtension replaces the extension of relative paths, e.g. ".html".
func (w *WriteFiles) WithExtension(ext string) *WriteFiles {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	w.extension = ext
	return w
}

func (w *WriteFiles) Name() string { return "WriteFiles" }

func (w *WriteFiles) destination(doc *document.Document) string {
	if dest := doc.String(KeyDestinationPath, ""); dest != "" {
		return filepath.ToSlash(dest)
	}
	rel := doc.String(KeyRelativeFilePath, "")
	if rel == "" {
		return ""
	}
	if w.extension != "" {
		rel = strings.TrimSuffix(rel, path.Ext(rel)) + w.extension
	}
	return rel
}

func (w *WriteFiles) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		dest := w.destination(doc)
		if dest == "" {
			return doc, nil
		}
		full := filepath.Join(w.root, filepath.FromSlash(dest))
		data := doc.Bytes()
		if err := doc.Err(); err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}

		fsys := ec.FS()
		if _, hit := ec.Cache().TryGetValue(doc, "write", full); hit {
			if ok, _ := afero.Exists(fsys, full); ok {
				return ec.GetDocument(doc, document.WithValue(KeyDestinationFilePath, full)), nil
			}
		}
		if err := fsys.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
				WithContext(logfields.KeyPath, full).
				Build()
		}
		if err := afero.WriteFile(fsys, full, data, 0o644); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "write file").
				WithContext(logfields.KeyPath, full).
				Build()
		}
		ec.Cache().Set(doc, full, "write", full)
		ec.Logger().Debug("Wrote file", logfields.Path(full))
		return ec.GetDocument(doc, document.WithValue(KeyDestinationFilePath, full)), nil
	})(ctx, inputs, ec)
}
