// Package patches implements the Patches (C4) interception wrappers for
// file, subprocess, network, and sensitive-env operations, per spec.md
// §4.4. Go has no ambient monkey-patching of runtime primitives, so each
// wrapper is an explicit facade type: the host program calls through
// WrappedFS/WrappedExec/WrappedNet/WrappedEnv in place of the bare
// os/exec/net/os.Getenv primitives it would otherwise use directly.
package patches

import (
	"path/filepath"

	"github.com/agentci/agentci/internal/globmatch"
	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/enforcer"
	"github.com/agentci/agentci/pkg/event"
	"github.com/agentci/agentci/pkg/normalize"
	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/trace"
)

// Facade bundles the shared state every wrapper needs: the writer to emit
// through, the enforcer to consult, the policy config for normalization,
// and the workspace's .agentci self-exclusion prefix.
type Facade struct {
	Writer        *trace.Writer
	Enforcer      *enforcer.Enforcer
	Config        *policyconfig.Config
	WorkspaceRoot string

	agentciPrefixes []string
}

// New builds a Facade and caches the workspace's .agentci prefix (both its
// literal and realpath forms), computed once at patch-init time per
// spec.md §4.4.
func New(w *trace.Writer, e *enforcer.Enforcer, cfg *policyconfig.Config) *Facade {
	f := &Facade{Writer: w, Enforcer: e, Config: cfg, WorkspaceRoot: cfg.WorkspaceRoot}

	literal := filepath.Join(cfg.WorkspaceRoot, ".agentci")
	f.agentciPrefixes = []string{literal}
	if real, err := filepath.EvalSymlinks(literal); err == nil && real != literal {
		f.agentciPrefixes = append(f.agentciPrefixes, real)
	}
	return f
}

// isSelfExcluded reports whether a resolved path falls under the
// recorder's own .agentci directory, whose I/O must never appear in the
// log, per spec.md §4.4.
func (f *Facade) isSelfExcluded(resolvedAbs string) bool {
	for _, prefix := range f.agentciPrefixes {
		if resolvedAbs == prefix {
			return true
		}
		if rel, err := filepath.Rel(prefix, resolvedAbs); err == nil && rel != ".." && !hasDotDotPrefix(rel) {
			return true
		}
	}
	return false
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}

// emit writes an effect event, honoring the writer's bypass flag (the
// writer's own append must never be self-recorded) and the enforcer.
func (f *Facade) emit(data event.EffectData) {
	if f.Writer == nil || f.Writer.Bypass() {
		return
	}
	data.Kind = event.KindObserved
	evt := event.TraceEvent{Type: event.TypeEffect, Data: event.Marshal(data)}
	_ = f.Writer.Write(evt)

	if f.Enforcer != nil {
		f.Enforcer.Check(data, f.Writer)
	}
}

func (f *Facade) resolve(path string) canonicalize.PathResolution {
	res, err := canonicalize.ResolvePath(path, f.WorkspaceRoot)
	if err != nil {
		return canonicalize.PathResolution{RequestedAbs: path, ResolvedAbs: path}
	}
	return res
}

// isSensitiveFileRead reports whether a resolved path matches
// policy.sensitive.block_file_globs, per spec.md §4.4's fs_read ->
// sensitive_access escalation rule.
func (f *Facade) isSensitiveFileRead(resolvedAbs string) bool {
	return globmatch.MatchAny(f.Config.Policy.Sensitive.BlockFileGlobs, resolvedAbs)
}
