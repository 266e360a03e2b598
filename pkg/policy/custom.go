package policy

import (
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/signature"
)

// customEnv is built lazily; CEL environment construction is not free and
// most configs carry no custom rules at all.
var customEnv *cel.Env

func buildCustomEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("fs_writes", cel.ListType(cel.StringType)),
		cel.Variable("fs_reads_external", cel.ListType(cel.StringType)),
		cel.Variable("fs_deletes", cel.ListType(cel.StringType)),
		cel.Variable("net_hosts", cel.ListType(cel.StringType)),
		cel.Variable("net_etld_plus_1", cel.ListType(cel.StringType)),
		cel.Variable("net_protocols", cel.ListType(cel.StringType)),
		cel.Variable("net_ports", cel.ListType(cel.IntType)),
		cel.Variable("exec_commands", cel.ListType(cel.StringType)),
		cel.Variable("sensitive_keys_accessed", cel.ListType(cel.StringType)),
	)
}

// evaluateCustomRules runs the optional policy.custom_rules CEL expressions
// against the signature. Custom rules only ever contribute WARN findings:
// they supplement the fixed rule set above but may never synthesize a
// BLOCK, which keeps a misconfigured custom rule from silently widening
// what a run is allowed to do.
func evaluateCustomRules(sig *signature.Signature, cfg *policyconfig.Config) []Finding {
	if len(cfg.Policy.CustomRules) == 0 {
		return nil
	}

	if customEnv == nil {
		env, err := buildCustomEnv()
		if err != nil {
			slog.Warn("policy: custom rule environment failed to build", "error", err)
			return nil
		}
		customEnv = env
	}

	ports := make([]int64, len(sig.Effects.NetPorts))
	for i, p := range sig.Effects.NetPorts {
		ports[i] = int64(p)
	}
	input := map[string]any{
		"fs_writes":               toAnySlice(sig.Effects.FSWrites),
		"fs_reads_external":       toAnySlice(sig.Effects.FSReadsExternal),
		"fs_deletes":              toAnySlice(sig.Effects.FSDeletes),
		"net_hosts":               toAnySlice(sig.Effects.NetHosts),
		"net_etld_plus_1":         toAnySlice(sig.Effects.NetETLDPlusOne),
		"net_protocols":           toAnySlice(sig.Effects.NetProtocols),
		"net_ports":               ports,
		"exec_commands":           toAnySlice(sig.Effects.ExecCommands),
		"sensitive_keys_accessed": toAnySlice(sig.Effects.SensitiveKeysAccessed),
	}

	var findings []Finding
	for _, rule := range cfg.Policy.CustomRules {
		matched, err := evalCustomRule(rule.Expression, input)
		if err != nil {
			slog.Warn("policy: custom rule failed to evaluate", "rule_id", rule.ID, "error", err)
			continue
		}
		if matched {
			msg := rule.Message
			if msg == "" {
				msg = "custom rule " + rule.ID + " matched"
			}
			findings = append(findings, Finding{
				Severity: SeverityWarn, Category: CategoryCustom,
				Message: msg, Evidence: rule.ID,
			})
		}
	}
	return findings
}

func evalCustomRule(expr string, input map[string]any) (bool, error) {
	ast, issues := customEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, issues.Err()
	}
	prg, err := customEnv.Program(ast)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		return false, err
	}
	val, ok := out.Value().(bool)
	return ok && val, nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
