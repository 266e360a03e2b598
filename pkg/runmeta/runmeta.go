// Package runmeta implements the supplemented metadata.json and
// attestation.json sidecars described in spec.md §6's filesystem layout,
// whose shape spec.md leaves undefined. It is grounded on the teacher's
// audit evidence-pack convention (signed sidecar summarizing a run) and on
// pkg/integrity's checksum file format for the attestation's digest fields.
package runmeta

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RunMetadata is the optional metadata.json sidecar written alongside a
// run's trace and signature: command, timing, and exit status.
type RunMetadata struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	StoppedAt   *time.Time        `json:"stopped_at,omitempty"`
	Command     []string          `json:"command,omitempty"`
	ExitCode    *int              `json:"exit_code,omitempty"`
	ToolVersion string            `json:"tool_version"`
	Adapter     string            `json:"adapter"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Attestation is the optional attestation.json sidecar: a declaration
// recording the sha256 digests of a run's trace and signature files and the
// key source of their checksums, so a verifier can check both files against
// the digests without the project secret.
type Attestation struct {
	RunID           string    `json:"run_id"`
	SignatureSHA256 string    `json:"signature_sha256"`
	TraceSHA256     string    `json:"trace_sha256"`
	KeySource       string    `json:"key_source"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// WriteMetadata marshals meta and writes it to path with the same
// restrictive permissions as the other .agentci sidecars.
func WriteMetadata(path string, meta *RunMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("runmeta: marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("runmeta: write metadata: %w", err)
	}
	return nil
}

// BuildAttestation computes the sha256 digests of the trace and signature
// files at the given paths and assembles the Attestation.
func BuildAttestation(runID, tracePath, signaturePath, keySource string, generatedAt time.Time) (*Attestation, error) {
	traceSum, err := fileSHA256(tracePath)
	if err != nil {
		return nil, fmt.Errorf("runmeta: hash trace: %w", err)
	}
	sigSum, err := fileSHA256(signaturePath)
	if err != nil {
		return nil, fmt.Errorf("runmeta: hash signature: %w", err)
	}
	return &Attestation{
		RunID:           runID,
		SignatureSHA256: sigSum,
		TraceSHA256:     traceSum,
		KeySource:       keySource,
		GeneratedAt:     generatedAt,
	}, nil
}

// WriteAttestation marshals att and writes it to path.
func WriteAttestation(path string, att *Attestation) error {
	data, err := json.MarshalIndent(att, "", "  ")
	if err != nil {
		return fmt.Errorf("runmeta: marshal attestation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("runmeta: write attestation: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
