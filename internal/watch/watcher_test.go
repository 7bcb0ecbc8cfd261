package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder collects handler calls.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
	ch    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 16)}
}

func (r *recorder) handle(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.ch <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func yamlOnly(path string) bool {
	return strings.HasSuffix(path, ".yaml")
}

// TestWatcher_DebouncesBurst writes several files in quick succession and
// expects one handler call listing all of them.
func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()

	w, err := New([]string{dir}, rec.handle, WithDebounce(100*time.Millisecond), WithFilter(yamlOnly))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for _, name := range []string{"a.yaml", "b.yaml", "a.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0o644))
	}
	rec.wait(t)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{clean(filepath.Join(dir, "a.yaml")), clean(filepath.Join(dir, "b.yaml"))}, calls[0])
	assert.Equal(t, 1, w.Stats().Runs)
}

// TestWatcher_IgnoresFilteredAndOutput checks that neither non-matching
// files nor the ignored output trigger a run.
func TestWatcher_IgnoresFilteredAndOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "merged.yaml")
	rec := newRecorder()

	w, err := New([]string{dir}, rec.handle,
		WithDebounce(50*time.Millisecond),
		WithFilter(yamlOnly),
		WithIgnore(output))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(output, []byte("name: merged\n"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "source.yaml"), []byte("name: s\n"), 0o644))
	rec.wait(t)
	assert.Equal(t, [][]string{{clean(filepath.Join(dir, "source.yaml"))}}, rec.snapshot())
}

// TestWatcher_RunStopsOnCancel checks that Run returns after cancellation
// and leaves no goroutines behind (verified by TestMain).
func TestWatcher_RunStopsOnCancel(t *testing.T) {
	w, err := New([]string{t.TempDir()}, newRecorder().handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	w.Stop()
}

func TestWatcher_HandlerErrorCounted(t *testing.T) {
	dir := t.TempDir()
	called := make(chan struct{}, 1)
	handler := func(context.Context, []string) error {
		select {
		case called <- struct{}{}:
		default:
		}
		return assert.AnError
	}

	w, err := New([]string{dir}, handler, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644))
	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}
	w.Stop()
	assert.GreaterOrEqual(t, w.Stats().Errors, 1)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, newRecorder().handle)
	assert.Error(t, err)

	_, err = New([]string{t.TempDir()}, nil)
	assert.Error(t, err)
}

func TestStart_MissingDirectory(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "missing")}, newRecorder().handle)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
