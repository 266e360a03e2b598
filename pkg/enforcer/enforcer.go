// Package enforcer implements the Enforcer (C6): an optional synchronous
// policy check performed at record time that aborts the run on a BLOCK
// finding, per spec.md §4.6.
package enforcer

import (
	"fmt"
	"io"
	"os"

	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/event"
	"github.com/agentci/agentci/pkg/policy"
	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/signature"
	"github.com/agentci/agentci/pkg/trace"
)

// Enforcer evaluates a single effect event against the policy. It mirrors
// §4.9 but scoped to one event rather than a whole signature by wrapping
// the event in a one-element signature before delegating to policy.Evaluate.
type Enforcer struct {
	cfg     *policyconfig.Config
	enabled bool
	stderr  io.Writer
	exit    func(int)
}

// New constructs an Enforcer. enabled mirrors the run's enforce_mode flag;
// when false, Check is a no-op so the recorder can call it unconditionally.
func New(cfg *policyconfig.Config, enabled bool, stderr io.Writer) *Enforcer {
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Enforcer{cfg: cfg, enabled: enabled, stderr: stderr, exit: os.Exit}
}

// Check evaluates a single effect. On any BLOCK finding it prints a
// diagnostic, flushes the writer, and terminates the process with exit
// code 1, per spec.md §4.6. When disabled, Check always returns immediately.
func (e *Enforcer) Check(data event.EffectData, w *trace.Writer) {
	if !e.enabled {
		return
	}

	sig := singleEventSignature(data)
	findings := policy.Evaluate(sig, e.cfg)

	for _, f := range findings {
		if f.Severity != policy.SeverityBlock {
			continue
		}
		fmt.Fprintf(e.stderr, "agentci: blocked by policy: %s\n", f.Message)
		if w != nil {
			_ = w.Flush()
		}
		e.exit(1)
		return
	}
}

func singleEventSignature(data event.EffectData) *signature.Signature {
	sig := &signature.Signature{}
	switch data.Category {
	case event.CategoryFSWrite:
		if data.PathResolved != "" {
			sig.Effects.FSWrites = []string{data.PathResolved}
		}
	case event.CategoryFSDelete:
		if data.PathResolved != "" {
			sig.Effects.FSDeletes = []string{data.PathResolved}
		}
	case event.CategoryNetOutbound:
		if data.HostRaw != "" {
			sig.Effects.NetHosts = []string{data.HostRaw}
		}
		if data.Protocol != "" {
			sig.Effects.NetProtocols = []string{data.Protocol}
		}
		if data.Port != nil {
			sig.Effects.NetPorts = []int{*data.Port}
		}
	case event.CategoryExec:
		cmd := data.CommandRaw
		if len(data.ArgvNormalized) > 0 {
			cmd = data.ArgvNormalized[0]
		}
		cmd = canonicalize.CommandBasename(cmd)
		if cmd != "" {
			sig.Effects.ExecCommands = []string{cmd}
		}
	case event.CategorySensitiveAccess:
		if data.KeyName != "" {
			sig.Effects.SensitiveKeysAccessed = []string{data.KeyName}
		}
	}
	return sig
}
