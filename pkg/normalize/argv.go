package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentci/agentci/pkg/policyconfig"
)

const redactedArgPlaceholder = "<redacted>"

// builtinSecretPatterns detects common secret shapes per spec.md §4.2:
// OpenAI sk-*, AWS AKIA/ASIA, Slack xox*, GitHub PATs, HF tokens,
// JWT-like triples, and PEM headers.
var builtinSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`),
	regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`),
	regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9-]{10,}\b`),
	regexp.MustCompile(`\b(ghp|gho|github_pat)_[A-Za-z0-9_]{20,}\b`),
	regexp.MustCompile(`\bhf_[A-Za-z0-9]{20,}\b`),
	regexp.MustCompile(`\b[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
}

// keyValueHintPattern detects the --token=..., --key=..., --secret=...,
// --password=... shape.
var keyValueHintPattern = regexp.MustCompile(`(?i)^--?(token|key|secret|password)=.*$`)

// MaskArgv replaces any argument matching a secret shape (builtin patterns
// plus cfg.mask_patterns) with a redaction placeholder, then reduces the
// result per argv_mode, per spec.md §4.2 "Exec argv masking".
func MaskArgv(argv []string, cfg *policyconfig.Config) []string {
	masked := make([]string, len(argv))
	userPatterns := compileUserPatterns(cfg.Normalization.Exec.MaskPatterns)

	for i, arg := range argv {
		masked[i] = maskArg(arg, userPatterns)
	}

	return reduceArgv(masked, cfg.Normalization.Exec.ArgvMode)
}

func maskArg(arg string, userPatterns []*regexp.Regexp) string {
	if keyValueHintPattern.MatchString(arg) {
		return redactedArgPlaceholder
	}
	for _, re := range builtinSecretPatterns {
		if re.MatchString(arg) {
			return redactedArgPlaceholder
		}
	}
	for _, re := range userPatterns {
		if re.MatchString(arg) {
			return redactedArgPlaceholder
		}
	}
	return arg
}

func compileUserPatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// reduceArgv applies the argv_mode reduction from spec.md §4.2.
func reduceArgv(masked []string, mode policyconfig.ArgvMode) []string {
	if len(masked) == 0 {
		return masked
	}

	switch mode {
	case policyconfig.ArgvModeNone:
		return []string{masked[0]}
	case policyconfig.ArgvModeHash:
		joined := strings.Join(masked, "\x00")
		sum := sha256.Sum256([]byte(joined))
		return []string{
			masked[0],
			fmt.Sprintf("<argv_hash:sha256:%s>", hex.EncodeToString(sum[:])),
			fmt.Sprintf("<argv_len:%d>", len(masked)),
		}
	default: // ArgvModeFull and any unrecognized value
		return masked
	}
}

// JSONArgv serializes a normalized argv vector to its canonical JSON form
// for insertion into the exec_argv signature field, per spec.md §3/§4.7.
func JSONArgv(argv []string) (string, error) {
	data, err := json.Marshal(argv)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
