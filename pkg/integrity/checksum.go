package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// KeySource identifies which key signed a checksum, per spec.md §4.10.
type KeySource string

const (
	KeySourceProjectSecret KeySource = "project-secret"
	KeySourceLegacy        KeySource = "legacy"
)

const checksumFileMode os.FileMode = 0o600

// Checksum is the JSON object stored adjacent to a target file, per
// spec.md §4.10's checksum file format.
type Checksum struct {
	Algorithm     string    `json:"algorithm"`
	HMAC          string    `json:"hmac"`
	TraceFile     string    `json:"trace_file,omitempty"`
	SignatureFile string    `json:"signature_file,omitempty"`
	RunID         string    `json:"run_id"`
	KeySource     KeySource `json:"key_source"`
	ComputedAt    string    `json:"computed_at"`
}

// Clock is injectable for deterministic tests.
var Clock = time.Now

// computeHMAC returns the hex-encoded HMAC-SHA256 of data keyed by key.
func computeHMAC(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign computes a checksum file for targetPath and writes it to
// checksumPath. isTraceFile selects which field carries the target's
// basename: trace_file when true, signature_file when false. agentciDir is used
// to locate the project secret, falling back to the legacy per-run key when
// no secret file exists.
func Sign(agentciDir, targetPath, checksumPath, runID string, isTraceFile bool) (*Checksum, error) {
	data, err := os.ReadFile(targetPath)
	if err != nil {
		return nil, fmt.Errorf("integrity: read target: %w", err)
	}

	key, source := resolveKey(agentciDir, runID)

	cs := &Checksum{
		Algorithm:  "hmac-sha256",
		HMAC:       computeHMAC(key, data),
		RunID:      runID,
		KeySource:  source,
		ComputedAt: Clock().UTC().Format(time.RFC3339),
	}
	if isTraceFile {
		cs.TraceFile = filepath.Base(targetPath)
	} else {
		cs.SignatureFile = filepath.Base(targetPath)
	}

	out, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("integrity: marshal checksum: %w", err)
	}
	if err := os.WriteFile(checksumPath, out, checksumFileMode); err != nil {
		return nil, fmt.Errorf("integrity: write checksum: %w", err)
	}
	return cs, nil
}

func resolveKey(agentciDir, runID string) ([]byte, KeySource) {
	secret, ok, err := LoadSecret(agentciDir)
	if err == nil && ok {
		return secret, KeySourceProjectSecret
	}
	return LegacyKey(runID), KeySourceLegacy
}

// VerificationResult is the outcome of Verify, per spec.md §4.10's
// {valid, details} return shape.
type VerificationResult struct {
	Valid   bool   `json:"valid"`
	Details string `json:"details"`
}

// Verify recomputes the HMAC over targetPath's current bytes and compares it
// against checksumPath's recorded value using a timing-safe,
// length-equalized comparison, per spec.md §4.10.
func Verify(agentciDir, targetPath, checksumPath, expectedRunID string) (VerificationResult, error) {
	raw, err := os.ReadFile(checksumPath)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("integrity: read checksum: %w", err)
	}
	var cs Checksum
	if err := json.Unmarshal(raw, &cs); err != nil {
		return VerificationResult{}, fmt.Errorf("integrity: parse checksum: %w", err)
	}

	if cs.RunID != expectedRunID {
		return VerificationResult{Valid: false, Details: fmt.Sprintf("run id mismatch: checksum has %q, expected %q", cs.RunID, expectedRunID)}, nil
	}

	data, err := os.ReadFile(targetPath)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("integrity: read target: %w", err)
	}

	var key []byte
	switch cs.KeySource {
	case KeySourceProjectSecret:
		secret, ok, err := LoadSecret(agentciDir)
		if err != nil || !ok {
			return VerificationResult{Valid: false, Details: "project secret unavailable for verification"}, nil
		}
		key = secret
	default:
		key = LegacyKey(cs.RunID)
	}

	computed := computeHMAC(key, data)
	if !timingSafeEqual(computed, cs.HMAC) {
		return VerificationResult{Valid: false, Details: fmt.Sprintf("target has been modified since signing: hmac mismatch (key_source=%s)", cs.KeySource)}, nil
	}
	return VerificationResult{Valid: true, Details: fmt.Sprintf("verified (key_source=%s)", cs.KeySource)}, nil
}

// timingSafeEqual compares two hex strings in constant time for equal
// lengths. A length mismatch still performs a dummy constant-time compare
// against a same-length buffer so the branch taken does not leak whether the
// lengths differed, per spec.md §4.10.
func timingSafeEqual(a, b string) bool {
	if len(a) != len(b) {
		dummy := make([]byte, len(a))
		subtle.ConstantTimeCompare([]byte(a), dummy)
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
