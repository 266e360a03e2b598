package patches

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/event"
)

// WrappedNet intercepts outbound HTTP(S) request construction, covering
// spec.md §4.4's "Network (low)", "Network (high)", and "Network (pool)"
// categories uniformly: whichever client constructs the request, it
// resolves to the same raw URL shape before the call is made.
type WrappedNet struct {
	facade *Facade
}

// NewWrappedNet returns a network wrapper bound to a Facade.
func NewWrappedNet(f *Facade) *WrappedNet {
	return &WrappedNet{facade: f}
}

// maxHostLength is RFC 1035's maximum hostname length. A host longer than
// this is rejected outright rather than recorded, per spec.md §8.
const maxHostLength = 253

// RecordSuccess emits a net_outbound effect for a request that completed
// without transport error, per spec.md §4.4's "emit on resolve only" rule.
// Callers invoke this after their round-trip returns successfully.
func (w *WrappedNet) RecordSuccess(method, rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}

	host := canonicalize.CanonicalHost(u.Host)
	if len(host) > maxHostLength {
		return
	}
	var port *int
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = &n
		}
	}

	w.facade.emit(event.EffectData{
		Category:        event.CategoryNetOutbound,
		HostRaw:         host,
		HostETLDPlusOne: canonicalize.ETLDPlusOne(host),
		Method:          strings.ToUpper(method),
		Protocol:        strings.ToLower(u.Scheme),
		Port:            port,
	})
}
