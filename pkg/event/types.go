// Package event defines the TraceEvent wire format and its typed payloads,
// per spec.md §3. TraceWriter (pkg/trace), Patches (pkg/patches), and
// Signature Builder (pkg/signature) all share this package so the JSONL
// wire format has exactly one definition.
package event

import "encoding/json"

// Type discriminates a TraceEvent's payload kind, per spec.md §3.
type Type string

const (
	TypeLifecycle  Type = "lifecycle"
	TypeEffect     Type = "effect"
	TypeToolCall   Type = "tool_call"
	TypeToolResult Type = "tool_result"
)

// Kind classifies how an effect was observed, per spec.md §3.
type Kind string

const (
	KindObserved Kind = "observed"
	KindDeclared Kind = "declared"
	KindInferred Kind = "inferred"
)

// Category discriminates an EffectData payload, per spec.md §3.
type Category string

const (
	CategoryFSWrite         Category = "fs_write"
	CategoryFSRead          Category = "fs_read"
	CategoryFSDelete        Category = "fs_delete"
	CategoryNetOutbound     Category = "net_outbound"
	CategoryExec            Category = "exec"
	CategorySensitiveAccess Category = "sensitive_access"
)

// TraceEvent is one line of the JSONL trace log, per spec.md §3.
type TraceEvent struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	RunID     string          `json:"run_id"`
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// LifecycleStage is the lifecycle payload's stage, per spec.md §3.
type LifecycleStage string

const (
	StageStart LifecycleStage = "start"
	StageStop  LifecycleStage = "stop"
	StageError LifecycleStage = "error"
)

// LifecycleData is the payload of a "lifecycle" TraceEvent.
type LifecycleData struct {
	Stage              LifecycleStage `json:"stage"`
	InterpreterVersion string         `json:"interpreter_version,omitempty"`
	Platform           string         `json:"platform,omitempty"`
	ExitCode           *int           `json:"exit_code,omitempty"`
	DurationMs         *int64         `json:"duration_ms,omitempty"`
	Error              string         `json:"error,omitempty"`
}

// EffectData is the payload of an "effect" TraceEvent. It is a flattened
// discriminated union over Category: only the fields relevant to the
// event's category are populated, per spec.md §3.
type EffectData struct {
	Category Category `json:"category"`
	Kind     Kind     `json:"kind"`

	// fs_write | fs_read | fs_delete
	PathRequested    string `json:"path_requested,omitempty"`
	PathResolved     string `json:"path_resolved,omitempty"`
	IsWorkspaceLocal *bool  `json:"is_workspace_local,omitempty"`

	// net_outbound
	HostRaw         string `json:"host_raw,omitempty"`
	HostETLDPlusOne string `json:"host_etld_plus_1,omitempty"`
	Method          string `json:"method,omitempty"`
	Protocol        string `json:"protocol,omitempty"`
	Port            *int   `json:"port,omitempty"`

	// exec
	CommandRaw     string   `json:"command_raw,omitempty"`
	ArgvNormalized []string `json:"argv_normalized,omitempty"`

	// sensitive_access
	SensitiveType string `json:"type,omitempty"` // env_var | file_read
	KeyName       string `json:"key_name,omitempty"`
}

// ToolCallData is the payload of a "tool_call" TraceEvent, emitted by
// adapters that sit above the recorder (e.g. an agent-harness integration)
// and contribute to the "declared" effect kind.
type ToolCallData struct {
	ToolName string         `json:"tool_name"`
	Params   map[string]any `json:"params,omitempty"`
}

// ToolResultData is the payload of a "tool_result" TraceEvent.
type ToolResultData struct {
	ToolName string `json:"tool_name"`
	Success  bool   `json:"success"`
}

// Marshal encodes a typed payload into a TraceEvent's Data field.
func Marshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Payloads are always one of the structs above; a marshal failure
		// here indicates a programmer error, not a runtime condition. The
		// recording path must never panic, so degrade to an empty object
		// rather than propagate.
		return json.RawMessage("{}")
	}
	return data
}
