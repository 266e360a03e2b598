//go:build property
// +build property

package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSignVerifyRoundTripsForAnyContent verifies that a freshly signed
// checksum always verifies, and that appending a single byte to the target
// is always caught, regardless of the target's content.
func TestSignVerifyRoundTripsForAnyContent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("sign then verify is valid, and tampering is always detected", prop.ForAll(
		func(content string, runID string) bool {
			if runID == "" {
				return true
			}
			dir := t.TempDir()
			agentciDir := filepath.Join(dir, ".agentci")
			if err := os.MkdirAll(agentciDir, 0o700); err != nil {
				return false
			}
			targetPath := filepath.Join(dir, "target.txt")
			if err := os.WriteFile(targetPath, []byte(content), 0o600); err != nil {
				return false
			}
			checksumPath := filepath.Join(dir, "target.checksum")

			if _, err := Sign(agentciDir, targetPath, checksumPath, runID, false); err != nil {
				return false
			}

			result, err := Verify(agentciDir, targetPath, checksumPath, runID)
			if err != nil || !result.Valid {
				return false
			}

			if err := os.WriteFile(targetPath, []byte(content+"x"), 0o600); err != nil {
				return false
			}
			tampered, err := Verify(agentciDir, targetPath, checksumPath, runID)
			if err != nil {
				return false
			}
			return !tampered.Valid
		},
		gen.AlphaString(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// TestComputeHMACDiffersWithKeyOrData verifies that changing either the key
// or the data changes the resulting HMAC (the core property any MAC must
// provide for integrity checking to be meaningful).
func TestComputeHMACDiffersWithKeyOrData(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("HMAC differs when data or key changes", prop.ForAll(
		func(key1, key2, data1, data2 string) bool {
			if key1 == key2 && data1 == data2 {
				return true
			}
			h1 := computeHMAC([]byte(key1), []byte(data1))
			h2 := computeHMAC([]byte(key2), []byte(data2))
			return h1 != h2
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestComputeHMACIsDeterministic verifies repeated calls with the same
// key/data always produce the same digest.
func TestComputeHMACIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("HMAC computation is deterministic", prop.ForAll(
		func(key, data string) bool {
			return computeHMAC([]byte(key), []byte(data)) == computeHMAC([]byte(key), []byte(data))
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
