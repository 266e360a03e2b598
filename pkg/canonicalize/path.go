// Package canonicalize implements the Canonicalizer (C1): path resolution,
// eTLD+1 extraction, and command basename rules per spec.md §4.1.
package canonicalize

import (
	"os"
	"path/filepath"
	"strings"
)

// PathResolution is the result of resolving a single path against a
// workspace root, per spec.md §4.1.
type PathResolution struct {
	RequestedAbs    string
	ResolvedAbs     string
	IsWorkspaceLocal bool
	IsSymlinkEscape  bool
}

// ResolvePath implements the five-step algorithm from spec.md §4.1.
func ResolvePath(input, workspaceRoot string) (PathResolution, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return PathResolution{}, err
	}

	// 1. requested_abs: join with cwd, no symlink resolution.
	requestedAbs := input
	if !filepath.IsAbs(requestedAbs) {
		requestedAbs = filepath.Join(cwd, requestedAbs)
	}
	requestedAbs = filepath.Clean(requestedAbs)

	// 2. resolved_abs: best-effort realpath; on failure fall back to requested_abs.
	resolvedAbs := requestedAbs
	if real, err := filepath.EvalSymlinks(requestedAbs); err == nil {
		resolvedAbs = real
	}

	// 3. workspace_real / workspace_orig
	workspaceOrig := workspaceRoot
	if !filepath.IsAbs(workspaceOrig) {
		workspaceOrig = filepath.Join(cwd, workspaceOrig)
	}
	workspaceOrig = filepath.Clean(workspaceOrig)
	workspaceReal := workspaceOrig
	if real, err := filepath.EvalSymlinks(workspaceOrig); err == nil {
		workspaceReal = real
	}

	// 4. is_workspace_local
	resolvedInsideReal := isWithin(resolvedAbs, workspaceReal)
	resolvedInsideOrig := isWithin(resolvedAbs, workspaceOrig)
	requestedInsideReal := isWithin(requestedAbs, workspaceReal)
	requestedInsideOrig := isWithin(requestedAbs, workspaceOrig)

	isWorkspaceLocal := resolvedInsideReal || resolvedInsideOrig || requestedInsideReal || requestedInsideOrig

	// 5. is_symlink_escape
	requestedInside := requestedInsideReal || requestedInsideOrig
	resolvedInside := resolvedInsideReal || resolvedInsideOrig
	isSymlinkEscape := requestedInside && !resolvedInside

	return PathResolution{
		RequestedAbs:     requestedAbs,
		ResolvedAbs:      resolvedAbs,
		IsWorkspaceLocal: isWorkspaceLocal,
		IsSymlinkEscape:  isSymlinkEscape,
	}, nil
}

// isWithin reports whether path is equal to or a descendant of root.
func isWithin(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// WorkspaceProjection is the result of projecting a resolved path relative
// to the workspace, per spec.md §4.1 "Workspace-relative projection".
type WorkspaceProjection struct {
	Value      string
	IsExternal bool
}

// ProjectWorkspaceRelative returns the workspace-relative form of a resolved
// path, or the resolved path itself (marked external) if it falls outside
// both workspace forms.
func ProjectWorkspaceRelative(resolvedAbs, workspaceRoot string) (WorkspaceProjection, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return WorkspaceProjection{}, err
	}

	workspaceOrig := workspaceRoot
	if !filepath.IsAbs(workspaceOrig) {
		workspaceOrig = filepath.Join(cwd, workspaceOrig)
	}
	workspaceOrig = filepath.Clean(workspaceOrig)
	workspaceReal := workspaceOrig
	if real, err := filepath.EvalSymlinks(workspaceOrig); err == nil {
		workspaceReal = real
	}

	for _, root := range []string{workspaceReal, workspaceOrig} {
		if isWithin(resolvedAbs, root) {
			rel, err := filepath.Rel(root, resolvedAbs)
			if err != nil {
				continue
			}
			return WorkspaceProjection{Value: filepath.ToSlash(rel), IsExternal: false}, nil
		}
	}

	return WorkspaceProjection{Value: resolvedAbs, IsExternal: true}, nil
}
