package canonicalize

import (
	"path"
	"strings"
)

// CommandBasename implements spec.md §4.1 "Command basename": given a
// command path, return its final path component. Normalization happens
// against a slash-based form so the result is stable regardless of which
// platform recorded the original trace.
func CommandBasename(command string) string {
	if command == "" {
		return command
	}
	return path.Base(strings.ReplaceAll(command, `\`, "/"))
}
