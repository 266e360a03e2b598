package normalize

import (
	"github.com/agentci/agentci/internal/globmatch"
	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/policyconfig"
)

// redactedHostPlaceholder is returned when a host matches redact_urls.
const redactedHostPlaceholder = "<redacted:host>"

// Host canonicalizes a raw host (when normalize_hosts is enabled) and then
// applies host redaction, per spec.md §4.2 "Host redaction".
func Host(raw string, cfg *policyconfig.Config) string {
	host := raw
	if cfg.Normalization.Network.NormalizeHosts {
		host = canonicalize.CanonicalHost(raw)
	}
	if globmatch.MatchAny(cfg.Redaction.RedactURLs, host) {
		return redactedHostPlaceholder
	}
	return host
}
