package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	reasons []string
	calls   atomic.Int32
}

func (r *recorder) rebuild(_ context.Context, reason string) error {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
	r.calls.Add(1)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// start runs w until the test ends.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestTriggerDebounces(t *testing.T) {
	rec := &recorder{}
	w := New(nil, rec.rebuild, WithDebounce(50*time.Millisecond), quiet())
	start(t, w)

	for range 5 {
		w.Trigger("burst")
	}
	require.Eventually(t, func() bool { return rec.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"burst"}, rec.seen())
}

func TestFileChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "posts"), 0o755))
	rec := &recorder{}
	w := New([]string{dir}, rec.rebuild, WithDebounce(20*time.Millisecond), quiet())
	start(t, w)

	// Give the watcher time to register directories.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts", "a.md"), []byte("# A"), 0o644))

	require.Eventually(t, func() bool { return rec.calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.seen(), "a.md")
}

func TestIgnoredDirectoryDoesNotTrigger(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "output")
	require.NoError(t, os.MkdirAll(out, 0o755))
	rec := &recorder{}
	w := New([]string{dir}, rec.rebuild, WithDebounce(20*time.Millisecond), WithIgnored(out), quiet())
	start(t, w)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.html"), []byte("<p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, rec.calls.Load())
}

func TestRebuildIntervalSchedulesRebuilds(t *testing.T) {
	rec := &recorder{}
	w := New(nil, rec.rebuild, WithRebuildInterval(30*time.Millisecond), quiet())
	start(t, w)

	require.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "schedule", rec.seen()[0])
}

func TestRebuildsAreSerialized(t *testing.T) {
	var active, maxActive atomic.Int32
	var calls atomic.Int32
	rebuild := func(context.Context, string) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
		calls.Add(1)
		return errors.New("boom")
	}
	w := New(nil, rebuild, WithDebounce(time.Millisecond), quiet())
	start(t, w)

	for range 10 {
		w.request("direct")
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestShouldIgnoreEvent(t *testing.T) {
	tests := map[string]bool{
		"notes/.draft.md":  true,
		"notes/a.md~":      true,
		"notes/a.md.swp":   true,
		"notes/#a.md#":     true,
		"notes/Thumbs.db":  true,
		"notes/a.md":       false,
		"notes/index.html": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, shouldIgnoreEvent(filepath.FromSlash(path)), path)
	}
}
