// Package recorder implements the Recorder Runtime (C5): it initializes
// the writer, installs patches in a fixed order, emits lifecycle records,
// and handles termination, per spec.md §4.5.
package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/agentci/agentci/pkg/enforcer"
	"github.com/agentci/agentci/pkg/event"
	"github.com/agentci/agentci/pkg/patches"
	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/runctx"
	"github.com/agentci/agentci/pkg/trace"
)

// State is the recorder's lifecycle state, per spec.md §4.5.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateStopping
	StateStopped
)

// Recorder owns the writer, the patch facade, and the lifecycle state
// machine for a single recording run.
type Recorder struct {
	ctx      *runctx.Context
	cfg      *policyconfig.Config
	writer   *trace.Writer
	facade   *patches.Facade
	enforcer *enforcer.Enforcer

	FS   *patches.WrappedFS
	Exec *patches.WrappedExec
	Net  *patches.WrappedNet
	Env  *patches.WrappedEnv

	state     atomic.Int32
	startedAt time.Time
	stopOnce  atomic.Bool
}

// Start runs the startup sequence from spec.md §4.5: load config, open the
// writer with captured originals, emit lifecycle:start, install patches in
// the fixed order (env-sensitive, file, subprocess, low-level network,
// fetch, pooled-network, collapsed here into one facade since Go's net
// client has no separate global-fetch/pooled variants to distinguish),
// and register termination handlers.
func Start(rc *runctx.Context, toolVersion string) (*Recorder, error) {
	cfg := policyconfig.Load(rc.ConfigPath, rc.WorkspaceRoot)

	w, err := trace.Open(rc.RunDir, rc.RunID)
	if err != nil {
		return nil, fmt.Errorf("recorder: start writer: %w", err)
	}

	r := &Recorder{ctx: rc, cfg: cfg, writer: w, startedAt: time.Now()}
	r.enforcer = enforcer.New(cfg, rc.Enforce, os.Stderr)
	r.facade = patches.New(w, r.enforcer, cfg)

	r.emitLifecycleStart(toolVersion)

	// Fixed install order: env-sensitive, file, subprocess, network.
	r.Env = patches.NewWrappedEnv(r.facade)
	r.FS = patches.NewWrappedFS(r.facade)
	r.Exec = patches.NewWrappedExec(r.facade)
	r.Net = patches.NewWrappedNet(r.facade)

	r.state.Store(int32(StateReady))
	r.registerTerminationHandlers()

	return r, nil
}

func (r *Recorder) emitLifecycleStart(toolVersion string) {
	data := event.LifecycleData{
		Stage:              event.StageStart,
		InterpreterVersion: runtime.Version(),
		Platform:           runtime.GOOS + "/" + runtime.GOARCH,
	}
	_ = r.writer.Write(event.TraceEvent{
		Type:     event.TypeLifecycle,
		RunID:    r.ctx.RunID,
		Data:     event.Marshal(data),
		Metadata: map[string]any{"tool_version": toolVersion},
	})
}

// State returns the recorder's current lifecycle state.
func (r *Recorder) State() State {
	return State(r.state.Load())
}

// registerTerminationHandlers wires process-exit-equivalent and signal
// handlers. Go has no uncaught-exception/unhandled-rejection hooks; SIGINT
// and SIGTERM are the closest host-side termination signals, and the
// caller's explicit Stop() call covers normal return, per spec.md §4.5.
func (r *Recorder) registerTerminationHandlers() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		_ = sig
		r.Stop(1, fmt.Errorf("terminated by signal"))
		os.Exit(1)
	}()
}

// Stop transitions READY -> STOPPING -> STOPPED, emits lifecycle:stop (or
// error+stop), and closes the writer. Stop is idempotent: transitions past
// STOPPED are no-ops, per spec.md §4.5.
func (r *Recorder) Stop(exitCode int, runErr error) {
	if !r.stopOnce.CompareAndSwap(false, true) {
		return
	}
	r.state.Store(int32(StateStopping))

	duration := time.Since(r.startedAt).Milliseconds()
	if runErr != nil {
		errData := event.LifecycleData{Stage: event.StageError, Error: runErr.Error()}
		_ = r.writer.Write(event.TraceEvent{Type: event.TypeLifecycle, RunID: r.ctx.RunID, Data: event.Marshal(errData)})
	}

	stopData := event.LifecycleData{Stage: event.StageStop, ExitCode: &exitCode, DurationMs: &duration}
	_ = r.writer.Write(event.TraceEvent{Type: event.TypeLifecycle, RunID: r.ctx.RunID, Data: event.Marshal(stopData)})

	if err := r.writer.Close(); err != nil {
		slog.Warn("recorder: writer close failed", "error", err)
	}

	r.state.Store(int32(StateStopped))
}

// Metrics exposes the writer's counters for diagnostics.
func (r *Recorder) Metrics() trace.Metrics {
	return r.writer.GetMetrics()
}
