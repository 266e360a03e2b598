package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/agentci/agentci/pkg/diff"
	"github.com/agentci/agentci/pkg/signature"
)

// runDiffCmd implements "agentci diff --baseline <path> --current <path>",
// per spec.md §4.8. A nil baseline signature means all of current is drift.
func runDiffCmd(args []string, stdout, stderr io.Writer) int {
	exitCode := 0
	withCommandSpan(stderr, "diff", func() {
		exitCode = runDiffCmdTraced(args, stdout, stderr)
	})
	return exitCode
}

func runDiffCmdTraced(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("diff", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		baselinePath string
		currentPath  string
		jsonOutput   bool
	)
	cmd.StringVar(&baselinePath, "baseline", "", "Path to baseline signature.json (omit to diff against nothing)")
	cmd.StringVar(&currentPath, "current", "", "Path to current signature.json (REQUIRED)")
	cmd.Func("format", "Output format (json|text)", func(v string) error {
		jsonOutput = v == "json"
		return nil
	})

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if currentPath == "" {
		fmt.Fprintln(stderr, "Error: --current is required")
		return 2
	}

	current, err := readSignatureFile(currentPath)
	if err != nil {
		fmt.Fprintf(stderr, "agentci: %v\n", err)
		return 1
	}

	var baseline *signature.Signature
	if baselinePath != "" {
		baseline, err = readSignatureFile(baselinePath)
		if err != nil {
			fmt.Fprintf(stderr, "agentci: %v\n", err)
			return 1
		}
	}

	result := diff.Compute(current, baseline)

	if jsonOutput {
		if err := printJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "agentci: %v\n", err)
			return 1
		}
		return 0
	}

	printDiffText(stdout, result)
	return 0
}

func printDiffText(w io.Writer, result diff.Result) {
	if result.IsEmpty() {
		fmt.Fprintln(w, "no drift")
		return
	}
	printDriftList(w, "fs_writes", result.FSWrites)
	printDriftList(w, "fs_reads_external", result.FSReadsExternal)
	printDriftList(w, "fs_deletes", result.FSDeletes)
	printDriftList(w, "net_protocols", result.NetProtocols)
	printDriftList(w, "net_etld_plus_1", result.NetETLDPlusOne)
	printDriftList(w, "net_hosts", result.NetHosts)
	printDriftIntList(w, "net_ports", result.NetPorts)
	printDriftList(w, "exec_commands", result.ExecCommands)
	printDriftList(w, "exec_argv", result.ExecArgv)
	printDriftList(w, "sensitive_keys_accessed", result.SensitiveKeysAccessed)
}

func printDriftList(w io.Writer, label string, values []string) {
	for _, v := range values {
		fmt.Fprintf(w, "+ %s: %s\n", label, v)
	}
}

func printDriftIntList(w io.Writer, label string, values []int) {
	for _, v := range values {
		fmt.Fprintf(w, "+ %s: %d\n", label, v)
	}
}
