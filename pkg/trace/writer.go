// Package trace implements the Trace Writer (C3): a buffered, rate-limited,
// append-only JSONL writer, per spec.md §4.3.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/agentci/agentci/pkg/event"
)

const (
	defaultBufferSize      = 64
	defaultFlushIntervalMs = 250
	defaultRateLimitPerSec = 10000

	runDirMode    os.FileMode = 0o700
	traceFileMode os.FileMode = 0o600
)

// Metrics reports the writer's lifetime counters, returned by get_metrics().
type Metrics struct {
	TotalEvents  int64 `json:"total_events"`
	TotalDropped int64 `json:"total_dropped"`
	BufferLength int   `json:"buffer_length"`
}

// Writer is the append-only JSONL trace writer described in spec.md §4.3.
// It buffers events in memory and flushes them to trace.jsonl either when
// the buffer fills or on a fixed interval, whichever comes first. A single
// Writer is shared by the entire recording session; its bypass flag lets
// components that are themselves instrumented (the writer's own file
// append call) skip re-entrant effect capture.
type Writer struct {
	mu sync.Mutex

	runID         string
	traceFilePath string
	bufferSize    int
	flushInterval time.Duration
	limiter       *rate.Limiter

	buf    []event.TraceEvent
	file   *os.File
	closed bool

	bypass bool

	metrics   Metrics
	stopTimer chan struct{}
	clock     func() time.Time
}

// Option configures a Writer at construction time.
type Option func(*Writer)

// WithBufferSize overrides the default buffer_size (64).
func WithBufferSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.bufferSize = n
		}
	}
}

// WithFlushInterval overrides the default flush_interval_ms (250).
func WithFlushInterval(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

// WithRateLimit overrides the default events-per-second rate limit
// (10000). A limit of 0 disables rate limiting entirely, per spec.md §4.3.
func WithRateLimit(perSecond int) Option {
	return func(w *Writer) {
		if perSecond <= 0 {
			w.limiter = nil
			return
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
}

// WithClock overrides the writer's clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(w *Writer) {
		w.clock = clock
	}
}

// Open creates runDir (0700) if needed, opens runDir/trace.jsonl (0600) for
// append, and starts the flush-interval timer. The open itself is one of
// the "captured original" primitives: it must happen before any filesystem
// patch is installed, so the writer's own I/O is never self-recorded.
func Open(runDir, runID string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(runDir, runDirMode); err != nil {
		return nil, fmt.Errorf("trace: create run dir: %w", err)
	}

	path := filepath.Join(runDir, "trace.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, traceFileMode)
	if err != nil {
		return nil, fmt.Errorf("trace: open trace file: %w", err)
	}

	w := &Writer{
		runID:         runID,
		traceFilePath: path,
		bufferSize:    defaultBufferSize,
		flushInterval: time.Duration(defaultFlushIntervalMs) * time.Millisecond,
		limiter:       rate.NewLimiter(rate.Limit(defaultRateLimitPerSec), defaultRateLimitPerSec),
		file:          f,
		stopTimer:     make(chan struct{}),
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.flushLoop()
	return w, nil
}

func (w *Writer) flushLoop() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = w.Flush()
		case <-w.stopTimer:
			return
		}
	}
}

// Bypass reports whether the writer is currently in a self-write window,
// during which patches must not record effects (spec.md §4.3, §4.4).
func (w *Writer) Bypass() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bypass
}

// setBypass toggles the reentrancy guard. Patches check Bypass() before
// emitting an effect event for a filesystem operation; the writer sets it
// around its own append so its trace-file write is never itself traced.
func (w *Writer) setBypass(v bool) {
	w.mu.Lock()
	w.bypass = v
	w.mu.Unlock()
}

// Write appends an event to the in-memory buffer, flushing immediately if
// the buffer is full. Events beyond the rate limit are dropped and counted
// in total_dropped rather than blocking the caller, per spec.md §4.3.
func (w *Writer) Write(evt event.TraceEvent) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = w.clock().UnixMilli()
	}
	if evt.RunID == "" {
		evt.RunID = w.runID
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("trace: write after close")
	}
	if w.limiter != nil && !w.limiter.AllowN(w.clock(), 1) {
		w.metrics.TotalDropped++
		w.mu.Unlock()
		return nil
	}
	w.buf = append(w.buf, evt)
	full := len(w.buf) >= w.bufferSize
	w.mu.Unlock()

	if full {
		return w.Flush()
	}
	return nil
}

// Flush serializes and appends all buffered events to the trace file in a
// single write, under the bypass guard, then clears the buffer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	if len(w.buf) == 0 {
		w.mu.Unlock()
		return nil
	}
	pending := w.buf
	w.buf = nil
	w.mu.Unlock()

	var out []byte
	for _, evt := range pending {
		line, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}

	w.setBypass(true)
	defer w.setBypass(false)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return fmt.Errorf("trace: file not open")
	}
	if _, err := w.file.Write(out); err != nil {
		return fmt.Errorf("trace: flush: %w", err)
	}
	w.metrics.TotalEvents += int64(len(pending))
	return nil
}

// Close flushes any remaining buffered events, stops the flush timer, and
// closes the underlying file. Close is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stopTimer)
	if err := w.Flush(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// GetMetrics returns a snapshot of the writer's lifetime counters.
func (w *Writer) GetMetrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := w.metrics
	m.BufferLength = len(w.buf)
	return m
}

// Path returns the trace file's path on disk.
func (w *Writer) Path() string {
	return w.traceFilePath
}
