package patches

import (
	"os/exec"

	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/event"
)

// WrappedExec intercepts subprocess spawn/exec primitives, per spec.md
// §4.4's "Subprocess exec" category.
type WrappedExec struct {
	facade *Facade
}

// NewWrappedExec returns a subprocess wrapper bound to a Facade.
func NewWrappedExec(f *Facade) *WrappedExec {
	return &WrappedExec{facade: f}
}

// Run delegates to cmd.Run and, on success only, emits an exec effect
// carrying the raw command and normalized argv, per spec.md §4.4 "Async
// correctness": a command that exits non-zero or fails to start is never
// recorded as an effect that happened.
func (w *WrappedExec) Run(cmd *exec.Cmd) error {
	if err := cmd.Run(); err != nil {
		return err
	}
	w.record(cmd)
	return nil
}

// Output delegates to cmd.Output and emits on success.
func (w *WrappedExec) Output(cmd *exec.Cmd) ([]byte, error) {
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	w.record(cmd)
	return out, nil
}

// record emits the argv with argv[0] reduced to its basename; the
// remaining C2 rules (secret masking, argv_mode reduction) are deferred to
// the Signature Builder, which normalizes raw observed events uniformly
// regardless of how they were captured.
func (w *WrappedExec) record(cmd *exec.Cmd) {
	argv := append([]string{}, cmd.Args...)
	commandRaw := cmd.Path
	if len(argv) > 0 {
		commandRaw = argv[0]
		argv[0] = canonicalize.CommandBasename(argv[0])
	}

	w.facade.emit(event.EffectData{
		Category:       event.CategoryExec,
		CommandRaw:     commandRaw,
		ArgvNormalized: argv,
	})
}
