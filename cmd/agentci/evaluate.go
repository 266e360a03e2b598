package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agentci/agentci/pkg/policy"
)

// runEvaluateCmd implements "agentci evaluate --signature <path> --config
// <path>", per spec.md §4.9. Exits 1 on a BLOCK verdict, per spec.md §7.
func runEvaluateCmd(args []string, stdout, stderr io.Writer) int {
	exitCode := 0
	withCommandSpan(stderr, "evaluate", func() {
		exitCode = runEvaluateCmdTraced(args, stdout, stderr)
	})
	return exitCode
}

func runEvaluateCmdTraced(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		sigPath       string
		configPath    string
		workspaceRoot string
		jsonOutput    bool
	)
	cmd.StringVar(&sigPath, "signature", "", "Path to signature.json (REQUIRED)")
	cmd.StringVar(&configPath, "config", "", "Policy config path")
	cmd.StringVar(&workspaceRoot, "workspace", "", "Workspace root (default: current directory)")
	cmd.Func("format", "Output format (json|text)", func(v string) error {
		jsonOutput = v == "json"
		return nil
	})

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if sigPath == "" {
		fmt.Fprintln(stderr, "Error: --signature is required")
		return 2
	}
	if workspaceRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(stderr, "agentci: cannot determine working directory: %v\n", err)
			return 1
		}
		workspaceRoot = wd
	}

	sig, err := readSignatureFile(sigPath)
	if err != nil {
		fmt.Fprintf(stderr, "agentci: %v\n", err)
		return 1
	}

	cfg := loadConfigForWorkspace(configPath, workspaceRoot)
	findings := policy.Evaluate(sig, cfg)
	verdict := policy.Summary(findings)

	if jsonOutput {
		result := map[string]any{"verdict": verdict, "findings": findings}
		if err := printJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "agentci: %v\n", err)
			return 1
		}
	} else {
		printFindingsText(stdout, verdict, findings)
	}

	if verdict == policy.SeverityBlock {
		return 1
	}
	return 0
}

func printFindingsText(w io.Writer, verdict policy.Severity, findings []policy.Finding) {
	fmt.Fprintf(w, "verdict: %s\n", verdict)
	for _, f := range findings {
		fmt.Fprintf(w, "  [%s] %s: %s\n", f.Severity, f.Category, f.Message)
		if f.Suggestion != "" {
			fmt.Fprintf(w, "      suggestion: %s\n", f.Suggestion)
		}
	}
}
