package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentci/agentci/internal/globmatch"
	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/signature"
)

// Evaluate runs the full rule set from spec.md §4.9 against a signature and
// returns the findings it produced.
func Evaluate(sig *signature.Signature, cfg *policyconfig.Config) []Finding {
	var findings []Finding
	findings = append(findings, evaluateFilesystem(sig, cfg)...)
	findings = append(findings, evaluateNetwork(sig, cfg)...)
	findings = append(findings, evaluateExec(sig, cfg)...)
	findings = append(findings, evaluateSensitive(sig, cfg)...)
	findings = append(findings, evaluateCustomRules(sig, cfg)...)
	return findings
}

func expandTilde(p string) string {
	if p == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
		return p
	}
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

func evaluateFilesystem(sig *signature.Signature, cfg *policyconfig.Config) []Finding {
	var findings []Finding
	rules := cfg.Policy.Filesystem

	for _, path := range sig.Effects.FSWrites {
		expanded := expandTilde(path)
		candidate := path

		if filepath.IsAbs(expanded) {
			rel, err := filepath.Rel(cfg.WorkspaceRoot, expanded)
			outside := err != nil || rel == ".." || strings.HasPrefix(rel, "../")
			if outside {
				findings = append(findings, Finding{
					Severity: SeverityBlock, Category: CategoryFilesystem,
					Message: "write resolved outside workspace root", Evidence: path,
				})
				continue
			}
			candidate = filepath.ToSlash(rel)
		}

		if globmatch.MatchAny(rules.BlockWrites, candidate) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategoryFilesystem,
				Message: fmt.Sprintf("write to %q matches a blocked path", candidate), Evidence: candidate,
			})
			continue
		}

		if !globmatch.MatchAny(rules.AllowWrites, candidate) {
			severity := SeverityWarn
			if rules.EnforceAllowlist {
				severity = SeverityBlock
			}
			findings = append(findings, Finding{
				Severity: severity, Category: CategoryFilesystem,
				Message: fmt.Sprintf("write to %q is not on the allowlist", candidate), Evidence: candidate,
			})
		}
	}

	return findings
}

func evaluateNetwork(sig *signature.Signature, cfg *policyconfig.Config) []Finding {
	var findings []Finding
	rules := cfg.Policy.Network
	hasAllowlist := len(rules.AllowHosts) > 0 || len(rules.AllowETLDPlusOne) > 0

	for _, host := range sig.Effects.NetHosts {
		etld := canonicalize.ETLDPlusOne(host)
		allowed := hostAllowed(rules.AllowHosts, host) || hostAllowed(rules.AllowETLDPlusOne, etld)
		if !allowed && (rules.EnforceAllowlist || hasAllowlist) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategoryNetwork,
				Message: fmt.Sprintf("host %q is not allowlisted", host), Evidence: host,
			})
		}
	}

	for _, protocol := range sig.Effects.NetProtocols {
		if containsString(rules.BlockProtocols, protocol) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategoryNetwork,
				Message: fmt.Sprintf("protocol %q is blocked", protocol), Evidence: protocol,
			})
			continue
		}
		if len(rules.AllowProtocols) > 0 && !containsString(rules.AllowProtocols, protocol) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategoryNetwork,
				Message: fmt.Sprintf("protocol %q is not allowlisted", protocol), Evidence: protocol,
			})
		}
	}

	for _, port := range sig.Effects.NetPorts {
		if containsInt(rules.BlockPorts, port) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategoryNetwork,
				Message: fmt.Sprintf("port %d is blocked", port), Evidence: fmt.Sprintf("%d", port),
			})
			continue
		}
		if len(rules.AllowPorts) > 0 && !containsInt(rules.AllowPorts, port) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategoryNetwork,
				Message: fmt.Sprintf("port %d is not allowlisted", port), Evidence: fmt.Sprintf("%d", port),
			})
		}
	}

	return findings
}

func evaluateExec(sig *signature.Signature, cfg *policyconfig.Config) []Finding {
	var findings []Finding
	rules := cfg.Policy.Exec

	for _, cmd := range sig.Effects.ExecCommands {
		if globmatch.MatchAny(rules.BlockCommands, cmd) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategoryExec,
				Message: fmt.Sprintf("command %q is blocked", cmd), Evidence: cmd,
			})
			continue
		}
		if !globmatch.MatchAny(rules.AllowCommands, cmd) {
			severity := SeverityWarn
			if rules.EnforceAllowlist {
				severity = SeverityBlock
			}
			findings = append(findings, Finding{
				Severity: severity, Category: CategoryExec,
				Message: fmt.Sprintf("command %q is not on the allowlist", cmd), Evidence: cmd,
			})
		}
	}

	return findings
}

func evaluateSensitive(sig *signature.Signature, cfg *policyconfig.Config) []Finding {
	var findings []Finding
	rules := cfg.Policy.Sensitive

	for _, key := range sig.Effects.SensitiveKeysAccessed {
		if matchAnyFold(rules.BlockEnv, key) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategorySensitive,
				Message: fmt.Sprintf("access to env var %q is blocked", key), Evidence: key,
			})
			continue
		}
		if globmatch.MatchAny(rules.BlockFileGlobs, expandTilde(key)) {
			findings = append(findings, Finding{
				Severity: SeverityBlock, Category: CategorySensitive,
				Message: fmt.Sprintf("access to file %q is blocked", key), Evidence: key,
			})
		}
	}

	return findings
}

// matchAnyFold applies glob matching case-insensitively, for block_env
// patterns which spec.md §4.9 specifies as case-insensitive.
func matchAnyFold(patterns []string, candidate string) bool {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return globmatch.MatchAny(lowered, strings.ToLower(candidate))
}
