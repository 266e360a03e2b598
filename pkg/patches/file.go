package patches

import (
	"os"

	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/event"
)

// WrappedFS intercepts file write/read/delete primitives, per spec.md
// §4.4's "File write" / "File read" / "File delete" categories.
type WrappedFS struct {
	facade *Facade
}

// NewWrappedFS returns a filesystem wrapper bound to a Facade.
func NewWrappedFS(f *Facade) *WrappedFS {
	return &WrappedFS{facade: f}
}

// WriteFile delegates to os.WriteFile and, on success only, emits an
// fs_write effect. Emission never happens for a failed write: the
// signature describes effects that happened, not attempts, per spec.md
// §4.4 "Async correctness".
func (w *WrappedFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	res := w.facade.resolve(path)
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	w.recordWrite(res)
	return nil
}

// MkdirAll delegates to os.MkdirAll and emits an fs_write effect on success.
func (w *WrappedFS) MkdirAll(path string, perm os.FileMode) error {
	res := w.facade.resolve(path)
	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	w.recordWrite(res)
	return nil
}

// OpenAppend opens a file for append/create, returning the *os.File and
// deferring emission to the caller via RecordAppendSuccess (the write
// itself may stream across many calls).
func (w *WrappedFS) OpenAppend(path string, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// RecordAppendSuccess emits the fs_write effect for a path written via
// OpenAppend, to be called once the caller's write sequence completed
// without error.
func (w *WrappedFS) RecordAppendSuccess(path string) {
	w.recordWrite(w.facade.resolve(path))
}

// ReadFile delegates to os.ReadFile and, on success, emits an fs_read
// effect (and a sensitive_access escalation when the path matches
// block_file_globs).
func (w *WrappedFS) ReadFile(path string) ([]byte, error) {
	res := w.facade.resolve(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w.recordRead(res)
	return data, nil
}

// Remove delegates to os.Remove and emits an fs_delete effect on success.
func (w *WrappedFS) Remove(path string) error {
	res := w.facade.resolve(path)
	if err := os.Remove(path); err != nil {
		return err
	}
	w.recordDelete(res)
	return nil
}

// RemoveAll delegates to os.RemoveAll and emits an fs_delete effect on
// success.
func (w *WrappedFS) RemoveAll(path string) error {
	res := w.facade.resolve(path)
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	w.recordDelete(res)
	return nil
}

// Rename delegates to os.Rename and, on success, emits an fs_delete of the
// source plus an fs_write of the destination, per spec.md §4.4.
func (w *WrappedFS) Rename(oldPath, newPath string) error {
	oldRes := w.facade.resolve(oldPath)
	newRes := w.facade.resolve(newPath)
	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}
	w.recordDelete(oldRes)
	w.recordWrite(newRes)
	return nil
}

func (w *WrappedFS) recordWrite(res canonicalize.PathResolution) {
	if w.facade.isSelfExcluded(res.ResolvedAbs) {
		return
	}
	local := res.IsWorkspaceLocal
	w.facade.emit(event.EffectData{
		Category:         event.CategoryFSWrite,
		PathRequested:    res.RequestedAbs,
		PathResolved:     res.ResolvedAbs,
		IsWorkspaceLocal: &local,
	})
}

func (w *WrappedFS) recordDelete(res canonicalize.PathResolution) {
	if w.facade.isSelfExcluded(res.ResolvedAbs) {
		return
	}
	local := res.IsWorkspaceLocal
	w.facade.emit(event.EffectData{
		Category:         event.CategoryFSDelete,
		PathRequested:    res.RequestedAbs,
		PathResolved:     res.ResolvedAbs,
		IsWorkspaceLocal: &local,
	})
}

func (w *WrappedFS) recordRead(res canonicalize.PathResolution) {
	if w.facade.isSelfExcluded(res.ResolvedAbs) {
		return
	}
	local := res.IsWorkspaceLocal
	w.facade.emit(event.EffectData{
		Category:         event.CategoryFSRead,
		PathRequested:    res.RequestedAbs,
		PathResolved:     res.ResolvedAbs,
		IsWorkspaceLocal: &local,
	})

	if w.facade.isSensitiveFileRead(res.ResolvedAbs) {
		w.facade.emit(event.EffectData{
			Category:      event.CategorySensitiveAccess,
			SensitiveType: "file_read",
			KeyName:       res.ResolvedAbs,
		})
	}
}
