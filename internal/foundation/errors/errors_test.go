package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "sitepipe.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, exists := err.Context().GetString("file")
		assert.True(t, exists)
		assert.Equal(t, "sitepipe.yaml", file)
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		assert.True(t, IsClassified(err))
		assert.True(t, HasCategory(err, CategoryConfig))
		assert.True(t, err.IsFatal())
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := ModuleError("render failed").Build()
		wrapped := fmt.Errorf("pipeline pages: %w", inner)

		assert.True(t, IsClassified(wrapped))
		assert.Equal(t, CategoryModule, GetCategory(wrapped))
		assert.Equal(t, SeverityError, GetSeverity(wrapped))
	})

	t.Run("Unclassified defaults", func(t *testing.T) {
		plain := errors.New("plain")
		assert.Equal(t, CategoryInternal, GetCategory(plain))
		assert.Equal(t, SeverityError, GetSeverity(plain))
	})
}

func TestErrorMessageIncludesLocation(t *testing.T) {
	cause := errors.New("unexpected token")
	err := WrapError(cause, CategoryModule, "module failed").
		WithContext(ContextPipeline, "pages").
		WithContext(ContextModule, "Markdown").
		WithContext(ContextSource, "docs/intro.md").
		Build()

	assert.Equal(t,
		"[module:error] module failed (pipeline=pages module=Markdown source=docs/intro.md): unexpected token",
		err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("original error")
		err := WrapError(originalErr, CategoryFileSystem, "write failed").
			Warning().
			WithContext("path", "out/index.html").
			Build()

		assert.Equal(t, CategoryFileSystem, err.Category())
		assert.Equal(t, SeverityWarning, err.Severity())
		assert.ErrorIs(t, err, originalErr)
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal},
			{"ModuleError", ModuleError("test"), CategoryModule, SeverityError},
			{"PipelineError", PipelineError("test"), CategoryPipeline, SeverityFatal},
			{"ConversionError", ConversionError("test"), CategoryConversion, SeverityError},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError},
			{"NotFoundError", NotFoundError("test"), CategoryNotFound, SeverityError},
			{"RuntimeError", RuntimeError("test"), CategoryRuntime, SeverityFatal},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				assert.Equal(t, tt.category, err.Category())
				assert.Equal(t, tt.severity, err.Severity())
			})
		}
	})

	t.Run("Built errors do not share context", func(t *testing.T) {
		b := ConfigError("dup").WithContext("a", 1)
		first := b.Build()
		second := b.WithContext("b", 2).Build()

		_, ok := first.Context().Get("b")
		assert.False(t, ok)
		_, ok = second.Context().Get("b")
		assert.True(t, ok)
	})
}

func TestClassifiedErrorWithContextIsCopy(t *testing.T) {
	base := ModuleError("failed").Build()
	derived := base.WithContext(ContextSource, "a.md")

	_, ok := base.Context().Get(ContextSource)
	require.False(t, ok)
	src, ok := derived.Context().GetString(ContextSource)
	require.True(t, ok)
	assert.Equal(t, "a.md", src)
	assert.ErrorIs(t, derived, base)
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"x": 1, "y": 2}
	b := ErrorContext{"y": 3}

	merged := a.Merge(b)
	assert.Equal(t, 1, merged["x"])
	assert.Equal(t, 3, merged["y"])
	assert.Equal(t, 2, a["y"])
}
