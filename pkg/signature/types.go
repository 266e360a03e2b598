// Package signature implements the Effect Signature data model and the
// Signature Builder (C7), per spec.md §3 and §4.7.
package signature

// Adapter identifies the source adapter that produced a log, per spec.md §3.
type Adapter string

const (
	AdapterNodeHook        Adapter = "node-hook"
	AdapterOpenClawNodeHook Adapter = "openclaw+node-hook"
)

const signatureVersion = "1.0"

// Meta carries the signature's provenance fields, per spec.md §3.
type Meta struct {
	SignatureVersion         string  `json:"signature_version"`
	NormalizationRulesVersion string `json:"normalization_rules_version"`
	ToolVersion              string  `json:"tool_version"`
	Platform                 string  `json:"platform"`
	Adapter                  Adapter `json:"adapter"`
	ScenarioID               string  `json:"scenario_id,omitempty"`
	RuntimeVersion            string `json:"runtime_version"`
}

// Effects holds the ten canonical effect fields, each sorted and
// deduplicated, per spec.md §3.
type Effects struct {
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

// Signature is the canonical Effect Signature, per spec.md §3.
type Signature struct {
	Meta    Meta    `json:"meta"`
	Effects Effects `json:"effects"`
}
