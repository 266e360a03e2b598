// Package normalize implements the Normalizer (C2): the three mutating
// rule sets (filesystem, host, and exec argv) from spec.md §4.2. Rule
// application is idempotent: Path(Path(p, cfg), cfg) == Path(p, cfg).
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/agentci/agentci/internal/globmatch"
	"github.com/agentci/agentci/pkg/policyconfig"
)

var tempPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^/tmp/`),
	regexp.MustCompile(`^/var/tmp/`),
	regexp.MustCompile(`^/private/var/folders/[^/]+/[^/]+/[^/]+/`),
	regexp.MustCompile(`(?i)^[a-z]:/.*?/temp/`),
	regexp.MustCompile(`(?i)^[a-z]:/temp/`),
}

// Path applies the filesystem normalization rules from spec.md §4.2 and
// returns the normalized value, or ok=false if the path was dropped by an
// ignore_glob.
func Path(path string, cfg *policyconfig.Config) (value string, ok bool) {
	rules := cfg.Normalization.Filesystem

	// (a) separators
	p := strings.ReplaceAll(path, `\`, "/")

	// (b) strip leading ./
	p = strings.TrimPrefix(p, "./")

	// (c) collapse temp
	if rules.CollapseTemp {
		for _, re := range tempPrefixes {
			if re.MatchString(p) {
				p = "<temp>/" + re.ReplaceAllString(p, "")
				break
			}
		}
	}

	// (d) collapse home
	if rules.CollapseHome {
		p = collapseHome(p)
	}

	// (e) ignore_globs drop the path entirely
	if globmatch.MatchAny(rules.IgnoreGlobs, p) {
		return "", false
	}

	// (f) redact_paths
	if globmatch.MatchAny(cfg.Redaction.RedactPaths, p) {
		if cfg.Redaction.HashValues {
			return "<hash:sha256:" + hashHex(p) + ">", true
		}
		return "<redacted:path>", true
	}

	return p, true
}

func collapseHome(p string) string {
	for _, prefix := range []string{"/home/", "/Users/"} {
		idx := strings.Index(p, prefix)
		if idx != 0 {
			continue
		}
		rest := p[len(prefix):]
		if slash := strings.Index(rest, "/"); slash != -1 {
			return "~" + rest[slash:]
		}
		return "~"
	}
	return p
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
