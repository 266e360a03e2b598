package runmeta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetadataRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	exitCode := 0
	stopped := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	meta := &RunMetadata{
		RunID:       "run-1",
		StartedAt:   time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		StoppedAt:   &stopped,
		Command:     []string{"echo", "hi"},
		ExitCode:    &exitCode,
		ToolVersion: "0.1.0",
		Adapter:     "node-hook",
	}
	require.NoError(t, WriteMetadata(path, meta))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got RunMetadata
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, []string{"echo", "hi"}, got.Command)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 0, *got.ExitCode)
}

func TestBuildAttestationHashesTargetFiles(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.jsonl")
	sigPath := filepath.Join(dir, "signature.json")
	require.NoError(t, os.WriteFile(tracePath, []byte("trace-bytes"), 0o600))
	require.NoError(t, os.WriteFile(sigPath, []byte("signature-bytes"), 0o600))

	att, err := BuildAttestation("run-1", tracePath, sigPath, "project-secret", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, att.TraceSHA256, 64)
	assert.Len(t, att.SignatureSHA256, 64)
	assert.NotEqual(t, att.TraceSHA256, att.SignatureSHA256)

	att2, err := BuildAttestation("run-1", tracePath, sigPath, "project-secret", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, att.TraceSHA256, att2.TraceSHA256)
}

func TestWriteAttestationRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attestation.json")
	att := &Attestation{
		RunID:           "run-1",
		SignatureSHA256: "abc",
		TraceSHA256:     "def",
		KeySource:       "project-secret",
		GeneratedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, WriteAttestation(path, att))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Attestation
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, att.KeySource, got.KeySource)
}
