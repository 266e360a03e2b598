package canonicalize

import (
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

// CanonicalHost implements spec.md §4.1 "Host canonicalization": trim,
// lower-case, drop trailing dot, leave bracketed IPv6 literals unchanged
// except for a port suffix, otherwise split on the last colon if the
// suffix parses as a port.
func CanonicalHost(raw string) string {
	h := norm.NFC.String(strings.TrimSpace(raw))
	h = strings.ToLower(h)
	h = strings.TrimSuffix(h, ".")

	if strings.HasPrefix(h, "[") {
		// Bracketed IPv6, optionally with a port: [::1]:8080
		if idx := strings.LastIndex(h, "]"); idx != -1 {
			if idx+1 < len(h) && h[idx+1] == ':' {
				if _, err := strconv.Atoi(h[idx+2:]); err == nil {
					return h[:idx+1]
				}
			}
			return h
		}
		return h
	}

	if idx := strings.LastIndex(h, ":"); idx != -1 {
		if _, err := strconv.Atoi(h[idx+1:]); err == nil {
			return h[:idx]
		}
	}
	return h
}

// ETLDPlusOne implements spec.md §4.1 "eTLD+1": uses the public-suffix
// table via golang.org/x/net/publicsuffix. If the host has no resolvable
// suffix (localhost, bare names, IP literals), the input is returned
// unchanged, per spec.md's fallback rule.
func ETLDPlusOne(host string) string {
	if isIPLiteral(host) {
		return host
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}

// isIPLiteral reports whether host is an IPv4 or (optionally bracketed)
// IPv6 literal. publicsuffix.EffectiveTLDPlusOne can silently truncate an
// IPv6 literal's hex groups as if they were DNS labels, so IP literals must
// be short-circuited before reaching it rather than relying on its error
// return.
func isIPLiteral(host string) bool {
	candidate := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return net.ParseIP(candidate) != nil
}
