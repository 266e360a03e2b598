package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// BaselineMeta is the companion metadata file written alongside
// baseline.json, per spec.md §6.
type BaselineMeta struct {
	Creator   string `json:"creator"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
	Digest    string `json:"digest"`
}

// BaselineDigest computes the RFC 8785 JSON Canonicalization Scheme digest
// of a baseline signature: SHA-256 over the JCS-transformed encoding of the
// signature, hex-encoded. This is a convenience field for detecting
// baseline.json tampering or drift at a glance; it never substitutes for the
// raw-byte HMAC required by the checksum file format.
func BaselineDigest(signature any) (string, error) {
	raw, err := json.Marshal(signature)
	if err != nil {
		return "", fmt.Errorf("integrity: marshal signature: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("integrity: canonicalize signature: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
