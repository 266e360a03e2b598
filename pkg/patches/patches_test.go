package patches

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/trace"
)

func newTestFacade(t *testing.T, ws string) (*Facade, *trace.Writer) {
	t.Helper()
	cfg := policyconfig.Default(ws)
	runDir := filepath.Join(t.TempDir(), "run")
	w, err := trace.Open(runDir, "run-1", trace.WithBufferSize(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return New(w, nil, cfg), w
}

func readTraceFile(t *testing.T, w *trace.Writer) string {
	t.Helper()
	require.NoError(t, w.Flush())
	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	return string(data)
}

func TestWriteFileEmitsOnSuccess(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	fs := NewWrappedFS(f)

	target := filepath.Join(ws, "out.txt")
	require.NoError(t, fs.WriteFile(target, []byte("hi"), 0o600))

	content := readTraceFile(t, w)
	assert.Contains(t, content, `"category":"fs_write"`)
}

func TestWriteFileDoesNotEmitOnFailure(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	fs := NewWrappedFS(f)

	err := fs.WriteFile(filepath.Join(ws, "missing-dir", "out.txt"), []byte("hi"), 0o600)
	assert.Error(t, err)

	content := readTraceFile(t, w)
	assert.Empty(t, content)
}

func TestSelfExclusionSkipsAgentciDir(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	fs := NewWrappedFS(f)

	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".agentci"), 0o700))
	target := filepath.Join(ws, ".agentci", "trace.jsonl")
	require.NoError(t, fs.WriteFile(target, []byte("{}"), 0o600))

	content := readTraceFile(t, w)
	assert.Empty(t, content)
}

func TestReadFileEmitsSensitiveAccessOnBlockedGlob(t *testing.T) {
	ws := t.TempDir()
	cfg := policyconfig.Default(ws)
	cfg.Policy.Sensitive.BlockFileGlobs = []string{filepath.Join(ws, "*.pem")}
	runDir := filepath.Join(t.TempDir(), "run")
	w, err := trace.Open(runDir, "run-1", trace.WithBufferSize(10))
	require.NoError(t, err)
	defer w.Close()
	f := New(w, nil, cfg)
	fs := NewWrappedFS(f)

	target := filepath.Join(ws, "key.pem")
	require.NoError(t, os.WriteFile(target, []byte("secret"), 0o600))
	_, err = fs.ReadFile(target)
	require.NoError(t, err)

	content := readTraceFile(t, w)
	assert.Contains(t, content, `"category":"fs_read"`)
	assert.Contains(t, content, `"type":"file_read"`)
}

func TestRenameEmitsDeleteThenWrite(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	fs := NewWrappedFS(f)

	src := filepath.Join(ws, "a.txt")
	dst := filepath.Join(ws, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))
	require.NoError(t, fs.Rename(src, dst))

	content := readTraceFile(t, w)
	assert.Contains(t, content, `"category":"fs_delete"`)
	assert.Contains(t, content, `"category":"fs_write"`)
}

func TestExecEmitsOnlyOnSuccess(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	ex := NewWrappedExec(f)

	ok := exec.Command("true")
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}
	require.NoError(t, ex.Run(ok))
	content := readTraceFile(t, w)
	assert.Contains(t, content, `"category":"exec"`)
}

func TestExecDoesNotEmitOnFailure(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	ex := NewWrappedExec(f)

	bad := exec.Command("/nonexistent-binary-agentci-test")
	assert.Error(t, ex.Run(bad))
	content := readTraceFile(t, w)
	assert.Empty(t, content)
}

func TestEnvRecordsOnlyBlockedNames(t *testing.T) {
	ws := t.TempDir()
	cfg := policyconfig.Default(ws)
	cfg.Policy.Sensitive.BlockEnv = []string{"AGENTCI_TEST_SECRET_*"}
	runDir := filepath.Join(t.TempDir(), "run")
	w, err := trace.Open(runDir, "run-1", trace.WithBufferSize(10))
	require.NoError(t, err)
	defer w.Close()
	f := New(w, nil, cfg)
	envw := NewWrappedEnv(f)

	t.Setenv("AGENTCI_TEST_SECRET_KEY", "xyz")
	t.Setenv("AGENTCI_TEST_HARMLESS", "abc")

	envw.Getenv("AGENTCI_TEST_SECRET_KEY")
	envw.Getenv("AGENTCI_TEST_HARMLESS")

	content := readTraceFile(t, w)
	assert.Contains(t, content, "AGENTCI_TEST_SECRET_KEY")
	assert.NotContains(t, content, "AGENTCI_TEST_HARMLESS")
}

func TestNetRecordSuccessParsesURL(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	netw := NewWrappedNet(f)

	netw.RecordSuccess("get", "https://API.Example.com:8443/v1/resource")
	content := readTraceFile(t, w)
	assert.Contains(t, content, `"host_raw":"api.example.com"`)
	assert.Contains(t, content, `"method":"GET"`)
	assert.Contains(t, content, `"protocol":"https"`)
	assert.Contains(t, content, `"port":8443`)
}

func TestNetRecordSuccessRejectsOverlongHost(t *testing.T) {
	ws := t.TempDir()
	f, w := newTestFacade(t, ws)
	netw := NewWrappedNet(f)

	longLabel := strings.Repeat("a", 250)
	netw.RecordSuccess("get", "https://"+longLabel+".example.com/x")
	content := readTraceFile(t, w)
	assert.Empty(t, content)
}
