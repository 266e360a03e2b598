// Package diff implements the Diff Engine (C8): set-difference of two
// Effect Signatures across all ten effect fields, per spec.md §4.8.
package diff

import "github.com/agentci/agentci/pkg/signature"

// Result holds the drift (current \ baseline) for each effect field,
// preserving the sorted order of current.
type Result struct {
	FSWrites              []string `json:"fs_writes"`
	FSReadsExternal       []string `json:"fs_reads_external"`
	FSDeletes             []string `json:"fs_deletes"`
	NetProtocols          []string `json:"net_protocols"`
	NetETLDPlusOne        []string `json:"net_etld_plus_1"`
	NetHosts              []string `json:"net_hosts"`
	NetPorts              []int    `json:"net_ports"`
	ExecCommands          []string `json:"exec_commands"`
	ExecArgv              []string `json:"exec_argv"`
	SensitiveKeysAccessed []string `json:"sensitive_keys_accessed"`
}

// IsEmpty reports whether the diff contains no drift at all.
func (r Result) IsEmpty() bool {
	return len(r.FSWrites) == 0 && len(r.FSReadsExternal) == 0 && len(r.FSDeletes) == 0 &&
		len(r.NetProtocols) == 0 && len(r.NetETLDPlusOne) == 0 && len(r.NetHosts) == 0 &&
		len(r.NetPorts) == 0 && len(r.ExecCommands) == 0 && len(r.ExecArgv) == 0 &&
		len(r.SensitiveKeysAccessed) == 0
}

// Compute returns current \ baseline for every effect field. When baseline
// is nil, every element of current is drift, per spec.md §4.8.
func Compute(current *signature.Signature, baseline *signature.Signature) Result {
	if baseline == nil {
		return Result{
			FSWrites:              current.Effects.FSWrites,
			FSReadsExternal:       current.Effects.FSReadsExternal,
			FSDeletes:             current.Effects.FSDeletes,
			NetProtocols:          current.Effects.NetProtocols,
			NetETLDPlusOne:        current.Effects.NetETLDPlusOne,
			NetHosts:              current.Effects.NetHosts,
			NetPorts:              current.Effects.NetPorts,
			ExecCommands:          current.Effects.ExecCommands,
			ExecArgv:              current.Effects.ExecArgv,
			SensitiveKeysAccessed: current.Effects.SensitiveKeysAccessed,
		}
	}

	return Result{
		FSWrites:              diffStrings(current.Effects.FSWrites, baseline.Effects.FSWrites),
		FSReadsExternal:       diffStrings(current.Effects.FSReadsExternal, baseline.Effects.FSReadsExternal),
		FSDeletes:             diffStrings(current.Effects.FSDeletes, baseline.Effects.FSDeletes),
		NetProtocols:          diffStrings(current.Effects.NetProtocols, baseline.Effects.NetProtocols),
		NetETLDPlusOne:        diffStrings(current.Effects.NetETLDPlusOne, baseline.Effects.NetETLDPlusOne),
		NetHosts:              diffStrings(current.Effects.NetHosts, baseline.Effects.NetHosts),
		NetPorts:              diffInts(current.Effects.NetPorts, baseline.Effects.NetPorts),
		ExecCommands:          diffStrings(current.Effects.ExecCommands, baseline.Effects.ExecCommands),
		ExecArgv:              diffStrings(current.Effects.ExecArgv, baseline.Effects.ExecArgv),
		SensitiveKeysAccessed: diffStrings(current.Effects.SensitiveKeysAccessed, baseline.Effects.SensitiveKeysAccessed),
	}
}

func diffStrings(current, baseline []string) []string {
	baselineSet := make(map[string]struct{}, len(baseline))
	for _, v := range baseline {
		baselineSet[v] = struct{}{}
	}
	var out []string
	for _, v := range current {
		if _, ok := baselineSet[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func diffInts(current, baseline []int) []int {
	baselineSet := make(map[int]struct{}, len(baseline))
	for _, v := range baseline {
		baselineSet[v] = struct{}{}
	}
	var out []int
	for _, v := range current {
		if _, ok := baselineSet[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
