// Package globmatch implements the extended-glob grammar spec.md §4.9
// requires for path and host matching: "**" multi-segment, "*"
// within-segment, "?" single char, and a leading "~/" expanding to home.
package globmatch

import (
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether candidate matches pattern under the extended-glob
// grammar. A leading "./" on the pattern is normalized away to match
// spec.md §4.9 ("Globs with a leading ./ are normalized equivalently to
// the candidate"). A leading "~/" expands to the user's home directory.
func Match(pattern, candidate string) bool {
	pattern = expandHome(pattern)
	pattern = strings.TrimPrefix(pattern, "./")
	candidate = strings.TrimPrefix(candidate, "./")

	ok, err := doublestar.Match(pattern, candidate)
	if err != nil {
		return false
	}
	return ok
}

// MatchAny reports whether candidate matches any of the given patterns.
func MatchAny(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if Match(p, candidate) {
			return true
		}
	}
	return false
}

func expandHome(pattern string) string {
	if !strings.HasPrefix(pattern, "~/") {
		return pattern
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return pattern
	}
	return home + "/" + strings.TrimPrefix(pattern, "~/")
}
