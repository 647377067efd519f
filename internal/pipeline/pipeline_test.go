package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

type upper struct{}

func (upper) Execute(_ context.Context, inputs []*document.Document, _ Context) ([]*document.Document, error) {
	return inputs, nil
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "upper", NameOf(upper{}))
	assert.Equal(t, "upper", NameOf(&upper{}))
	assert.Equal(t, "Render", NameOf(WithName("Render", upper{})))
	assert.Equal(t, "<nil>", NameOf(nil))
	assert.Equal(t, "ModuleFunc", NameOf(ModuleFunc(nil)))
}

func TestForEachCollectsFailures(t *testing.T) {
	docs := []*document.Document{
		document.New("a.md", "a", nil),
		document.New("b.md", "b", nil),
		document.New("c.md", "c", nil),
	}
	boom := errors.New("boom")
	m := ForEach(func(_ context.Context, doc *document.Document, _ Context) ([]*document.Document, error) {
		if doc.Source() == "b.md" {
			return nil, boom
		}
		return []*document.Document{doc, doc}, nil
	})

	out, err := m.Execute(context.Background(), docs, nil)
	require.Error(t, err)
	assert.Len(t, out, 4)
	assert.ErrorIs(t, err, boom)
	assert.True(t, Recoverable(err))

	failures := ModuleErrors(err)
	require.Len(t, failures, 1)
	assert.Equal(t, "b.md", failures[0].Source)
}

func TestForEachStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := ForEach(func(context.Context, *document.Document, Context) ([]*document.Document, error) {
		t.Fatal("must not run after cancellation")
		return nil, nil
	})
	_, err := m.Execute(ctx, []*document.Document{document.New("a", "", nil)}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, Recoverable(err))
}

func TestMap(t *testing.T) {
	m := Map(func(_ context.Context, doc *document.Document, _ Context) (*document.Document, error) {
		return doc.Clone(document.WithContent(doc.Content() + "!")), nil
	})
	out, err := m.Execute(context.Background(), []*document.Document{document.New("a", "hi", nil)}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hi!", out[0].Content())
}

func TestModuleErrorsAndRecoverable(t *testing.T) {
	a := &ModuleExecutionError{Source: "a", Err: errors.New("x")}
	b := &ModuleExecutionError{Source: "b", Err: errors.New("y")}

	joined := errors.Join(a, fmt.Errorf("wrapped: %w", b))
	assert.Len(t, ModuleErrors(joined), 2)
	assert.True(t, Recoverable(joined))

	mixed := errors.Join(a, errors.New("disk full"))
	assert.False(t, Recoverable(mixed))
	assert.Len(t, ModuleErrors(mixed), 1)

	assert.True(t, Recoverable(nil))
	assert.Nil(t, JoinErrors(nil))
	assert.Same(t, a, JoinErrors([]error{a}))
}

func TestModuleExecutionErrorMessage(t *testing.T) {
	err := &ModuleExecutionError{Pipeline: "pages", Module: "Markdown", Source: "a.md", Err: errors.New("bad")}
	assert.Equal(t, "pipeline pages, module Markdown, source a.md: bad", err.Error())
	assert.Equal(t, "module execution failed: bad", (&ModuleExecutionError{Err: errors.New("bad")}).Error())

	var target *ModuleExecutionError
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &target)
	assert.Equal(t, "Markdown", target.Module)
}

func TestDocumentErrorKeepsExisting(t *testing.T) {
	orig := &ModuleExecutionError{Source: "x", Err: errors.New("e")}
	assert.Same(t, orig, DocumentError(document.New("y", "", nil), orig))
	assert.Nil(t, DocumentError(nil, nil))
}

func TestParseErrorPolicy(t *testing.T) {
	for raw, want := range map[string]ErrorPolicy{
		"":          PolicyAbort,
		"abort":     PolicyAbort,
		" Continue": PolicyContinue,
		"warn":      PolicyContinue,
	} {
		got, err := ParseErrorPolicy(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseErrorPolicy("retry")
	require.Error(t, err)
	assert.Equal(t, "continue", PolicyContinue.String())
}

func TestChainOrder(t *testing.T) {
	var calls []string
	trace := func(label string) Middleware {
		return Around(func(_ context.Context, name string, _ []*document.Document, next func() ([]*document.Document, error)) ([]*document.Document, error) {
			calls = append(calls, label+">"+name)
			return next()
		})
	}
	m := Chain(WithName("Inner", upper{}), trace("outer"), trace("inner"))
	assert.Equal(t, "Inner", NameOf(m))

	_, err := m.Execute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>Inner", "inner>Inner"}, calls)
}
