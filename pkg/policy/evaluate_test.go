package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/signature"
)

func TestEvaluateFilesystemBlockWrites(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Filesystem.BlockWrites = []string{"secrets/**"}
	sig := &signature.Signature{Effects: signature.Effects{FSWrites: []string{"secrets/key.pem"}}}

	findings := Evaluate(sig, cfg)
	assert.Equal(t, SeverityBlock, Summary(findings))
}

func TestEvaluateFilesystemOutsideWorkspace(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	sig := &signature.Signature{Effects: signature.Effects{FSWrites: []string{"/etc/passwd"}}}

	findings := Evaluate(sig, cfg)
	require := assert.New(t)
	require.Equal(SeverityBlock, Summary(findings))
	require.Contains(findings[0].Message, "outside workspace root")
}

func TestEvaluateFilesystemWarnsWithoutAllowlistEnforcement(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	sig := &signature.Signature{Effects: signature.Effects{FSWrites: []string{"out/a.txt"}}}

	findings := Evaluate(sig, cfg)
	assert.Equal(t, SeverityWarn, Summary(findings))
}

func TestEvaluateFilesystemBlocksWithEnforceAllowlist(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Filesystem.EnforceAllowlist = true
	sig := &signature.Signature{Effects: signature.Effects{FSWrites: []string{"out/a.txt"}}}

	findings := Evaluate(sig, cfg)
	assert.Equal(t, SeverityBlock, Summary(findings))
}

func TestEvaluateNetworkHostAllowlistWildcard(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Network.AllowHosts = []string{"*.example.com"}
	sig := &signature.Signature{Effects: signature.Effects{NetHosts: []string{"api.example.com"}}}

	findings := Evaluate(sig, cfg)
	assert.Empty(t, findings)
}

func TestEvaluateNetworkHostNotAllowedWhenAllowlistPresent(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Network.AllowHosts = []string{"*.example.com"}
	sig := &signature.Signature{Effects: signature.Effects{NetHosts: []string{"evil.com"}}}

	findings := Evaluate(sig, cfg)
	assert.Equal(t, SeverityBlock, Summary(findings))
}

func TestEvaluateNetworkNoAllowlistNoEnforcementPasses(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	sig := &signature.Signature{Effects: signature.Effects{NetHosts: []string{"anything.example.com"}}}

	findings := Evaluate(sig, cfg)
	assert.Empty(t, findings)
}

func TestEvaluateNetworkBlockedProtocolAndPort(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Network.BlockProtocols = []string{"http"}
	cfg.Policy.Network.BlockPorts = []int{22}
	sig := &signature.Signature{Effects: signature.Effects{NetProtocols: []string{"http"}, NetPorts: []int{22}}}

	findings := Evaluate(sig, cfg)
	assert.Len(t, findings, 2)
	assert.Equal(t, SeverityBlock, Summary(findings))
}

func TestEvaluateExecBlockAndAllowlist(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Exec.BlockCommands = []string{"rm"}
	cfg.Policy.Exec.EnforceAllowlist = true
	cfg.Policy.Exec.AllowCommands = []string{"git"}
	sig := &signature.Signature{Effects: signature.Effects{ExecCommands: []string{"rm", "git", "curl"}}}

	findings := Evaluate(sig, cfg)
	assert.Len(t, findings, 2) // rm blocked, curl not allowlisted; git passes
}

func TestEvaluateSensitiveEnvBlock(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Sensitive.BlockEnv = []string{"AWS_*"}
	sig := &signature.Signature{Effects: signature.Effects{SensitiveKeysAccessed: []string{"AWS_SECRET_ACCESS_KEY"}}}

	findings := Evaluate(sig, cfg)
	assert.Equal(t, SeverityBlock, Summary(findings))
}

func TestEvaluateSensitiveFileGlobBlock(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Sensitive.BlockFileGlobs = []string{"~/.ssh/**"}
	sig := &signature.Signature{Effects: signature.Effects{SensitiveKeysAccessed: []string{"~/.ssh/id_rsa"}}}

	findings := Evaluate(sig, cfg)
	assert.Equal(t, SeverityBlock, Summary(findings))
}

func TestEvaluateCustomRuleWarnOnly(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.CustomRules = []policyconfig.CustomRule{
		{ID: "many-writes", Expression: "size(fs_writes) > 1", Message: "unusually many writes"},
	}
	sig := &signature.Signature{Effects: signature.Effects{FSWrites: []string{"a", "b"}, NetHosts: nil}}
	// suppress default filesystem allowlist warnings by allowing everything
	cfg.Policy.Filesystem.AllowWrites = []string{"**"}

	findings := Evaluate(sig, cfg)
	require := assert.New(t)
	require.Len(findings, 1)
	require.Equal(SeverityWarn, findings[0].Severity)
	require.Equal(CategoryCustom, findings[0].Category)
}

func TestSummaryPrefersBlockOverWarn(t *testing.T) {
	findings := []Finding{{Severity: SeverityWarn}, {Severity: SeverityBlock}}
	assert.Equal(t, SeverityBlock, Summary(findings))
}

func TestSummaryPassWhenEmpty(t *testing.T) {
	assert.EqualValues(t, "PASS", Summary(nil))
}
