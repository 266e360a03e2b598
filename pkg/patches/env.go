package patches

import (
	"os"
	"strings"

	"github.com/agentci/agentci/internal/globmatch"
	"github.com/agentci/agentci/pkg/event"
)

// WrappedEnv intercepts process environment reads, per spec.md §4.4's
// "Sensitive env" category and its "Sensitive-env proxy" semantics: every
// read access is inspected, writes pass through unchanged (os.Setenv is
// never wrapped).
type WrappedEnv struct {
	facade *Facade
}

// NewWrappedEnv returns an environment wrapper bound to a Facade.
func NewWrappedEnv(f *Facade) *WrappedEnv {
	return &WrappedEnv{facade: f}
}

// Getenv delegates to os.Getenv and emits a sensitive_access event only
// when name matches policy.sensitive.block_env, per spec.md §4.4.
func (w *WrappedEnv) Getenv(name string) string {
	value := os.Getenv(name)
	w.recordAccess(name)
	return value
}

// LookupEnv delegates to os.LookupEnv with the same detection rule.
func (w *WrappedEnv) LookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	w.recordAccess(name)
	return value, ok
}

// Environ delegates to os.Environ. Because it exposes the full map, every
// key present is checked against block_env, modeling the "own-key
// descriptor and iteration" probes spec.md §4.4 calls out.
func (w *WrappedEnv) Environ() []string {
	entries := os.Environ()
	for _, kv := range entries {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			w.recordAccess(kv[:i])
		}
	}
	return entries
}

func (w *WrappedEnv) recordAccess(name string) {
	if !globmatch.MatchAny(w.facade.Config.Policy.Sensitive.BlockEnv, name) {
		return
	}
	w.facade.emit(event.EffectData{
		Category:      event.CategorySensitiveAccess,
		SensitiveType: "env_var",
		KeyName:       name,
	})
}
