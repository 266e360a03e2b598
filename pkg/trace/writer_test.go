package trace

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentci/agentci/pkg/event"
)

func openTestWriter(t *testing.T, opts ...Option) *Writer {
	t.Helper()
	dir := t.TempDir()
	runDir := filepath.Join(dir, "run")
	w, err := Open(runDir, "run-1", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if sc.Text() != "" {
			n++
		}
	}
	return n
}

func TestOpenCreatesRunDirAndTraceFile(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "run")
	w, err := Open(runDir, "run-1", WithFlushInterval(time.Hour))
	require.NoError(t, err)
	defer w.Close()

	info, err := os.Stat(runDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(w.Path())
	require.NoError(t, err)
}

func TestWriteFlushesWhenBufferFull(t *testing.T) {
	w := openTestWriter(t, WithBufferSize(2), WithFlushInterval(time.Hour))

	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle, Data: event.Marshal(event.LifecycleData{Stage: event.StageStart})}))
	assert.Equal(t, int64(0), w.GetMetrics().TotalEvents)

	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle, Data: event.Marshal(event.LifecycleData{Stage: event.StageStop})}))
	assert.Equal(t, int64(2), w.GetMetrics().TotalEvents)
	assert.Equal(t, 2, countLines(t, w.Path()))
}

func TestExplicitFlush(t *testing.T) {
	w := openTestWriter(t, WithBufferSize(64), WithFlushInterval(time.Hour))
	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle, Data: event.Marshal(event.LifecycleData{Stage: event.StageStart})}))
	require.NoError(t, w.Flush())
	assert.Equal(t, int64(1), w.GetMetrics().TotalEvents)
	assert.Equal(t, 1, countLines(t, w.Path()))
}

func TestRateLimitDropsBeyondLimit(t *testing.T) {
	w := openTestWriter(t, WithRateLimit(1), WithBufferSize(64), WithFlushInterval(time.Hour))
	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle}))
	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle}))
	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle}))
	assert.Equal(t, int64(2), w.GetMetrics().TotalDropped)
}

func TestRateLimitZeroDisables(t *testing.T) {
	w := openTestWriter(t, WithRateLimit(0), WithBufferSize(1000), WithFlushInterval(time.Hour))
	for i := 0; i < 50; i++ {
		require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle}))
	}
	assert.Equal(t, int64(0), w.GetMetrics().TotalDropped)
}

func TestCloseIsIdempotentAndFlushesRemainder(t *testing.T) {
	w := openTestWriter(t, WithBufferSize(64), WithFlushInterval(time.Hour))
	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, int64(1), w.GetMetrics().TotalEvents)
}

func TestWriteAfterCloseErrors(t *testing.T) {
	w := openTestWriter(t, WithFlushInterval(time.Hour))
	require.NoError(t, w.Close())
	err := w.Write(event.TraceEvent{Type: event.TypeLifecycle})
	assert.Error(t, err)
}

func TestBypassGuardDuringFlush(t *testing.T) {
	w := openTestWriter(t, WithBufferSize(1), WithFlushInterval(time.Hour))
	assert.False(t, w.Bypass())
	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle}))
	// Flush is synchronous and already returned; bypass must be released.
	assert.False(t, w.Bypass())
}

func TestEventIDAndTimestampDefaulted(t *testing.T) {
	w := openTestWriter(t, WithBufferSize(64), WithFlushInterval(time.Hour))
	require.NoError(t, w.Write(event.TraceEvent{Type: event.TypeLifecycle}))
	require.NoError(t, w.Flush())

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"run-1"`)
	assert.NotContains(t, string(data), `"id":""`)
}
