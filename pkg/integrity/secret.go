// Package integrity implements the Integrity component (C10): project
// secret lifecycle, HMAC-SHA256 checksum files, and timing-safe
// verification, per spec.md §4.10.
package integrity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const (
	secretFileName = "secret"
	secretBytes    = 64
	secretFileMode os.FileMode = 0o600
)

// SecretPath returns the path of the project secret file under a workspace's
// .agentci directory.
func SecretPath(agentciDir string) string {
	return filepath.Join(agentciDir, secretFileName)
}

// GenerateSecret creates a new 64-byte random hex secret at agentciDir/secret
// with mode 0600, per spec.md §4.10. Called once at project-init time; a
// pre-existing secret is left untouched.
func GenerateSecret(agentciDir string) error {
	path := SecretPath(agentciDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("integrity: generate secret: %w", err)
	}

	if err := os.MkdirAll(agentciDir, 0o700); err != nil {
		return fmt.Errorf("integrity: create .agentci dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(buf)), secretFileMode); err != nil {
		return fmt.Errorf("integrity: write secret: %w", err)
	}
	return verifySecretPermissions(path)
}

// LoadSecret reads the project secret. A missing secret is not an error: the
// caller falls back to the legacy per-run key, per spec.md §4.10.
func LoadSecret(agentciDir string) ([]byte, bool, error) {
	path := SecretPath(agentciDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("integrity: read secret: %w", err)
	}
	return data, true, nil
}

// verifySecretPermissions warns, but never fails, when the filesystem cannot
// enforce owner-only mode (e.g. some network filesystems, or Windows),
// per spec.md §4.10.
func verifySecretPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if info.Mode().Perm() != secretFileMode {
		fmt.Fprintf(os.Stderr, "agentci: warning: secret file %s has mode %v, expected %v\n", path, info.Mode().Perm(), secretFileMode)
	}
	return nil
}

// LegacyKey derives the fallback HMAC key used when no project secret file
// exists, per spec.md §4.10.
func LegacyKey(runID string) []byte {
	return []byte("agentci-legacy:" + runID)
}
