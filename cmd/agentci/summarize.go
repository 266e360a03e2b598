package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/agentci/agentci/pkg/signature"
)

// runSummarizeCmd implements "agentci summarize --trace <path>", building a
// signature from a trace log, per spec.md §4.7.
func runSummarizeCmd(args []string, stdout, stderr io.Writer) int {
	exitCode := 0
	withCommandSpan(stderr, "summarize", func() {
		exitCode = runSummarizeCmdTraced(args, stdout, stderr)
	})
	return exitCode
}

func runSummarizeCmdTraced(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("summarize", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		tracePath     string
		configPath    string
		workspaceRoot string
		outPath       string
	)
	cmd.StringVar(&tracePath, "trace", "", "Path to trace.jsonl (REQUIRED)")
	cmd.StringVar(&configPath, "config", "", "Policy config path")
	cmd.StringVar(&workspaceRoot, "workspace", "", "Workspace root (default: current directory)")
	cmd.StringVar(&outPath, "out", "", "Write signature JSON to this path instead of stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if tracePath == "" {
		fmt.Fprintln(stderr, "Error: --trace is required")
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

	cfg := loadConfigForWorkspace(configPath, workspaceRoot)
	sig, err := signature.Build(tracePath, cfg, toolVersion, runtime.Version(), platformString())
	if err != nil {
		fmt.Fprintf(stderr, "agentci: failed to build signature: %v\n", err)
		return 1
	}

	data, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "agentci: failed to marshal signature: %v\n", err)
		return 1
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			fmt.Fprintf(stderr, "agentci: failed to write %s: %v\n", outPath, err)
			return 1
		}
		fmt.Fprintf(stdout, "agentci: wrote signature to %s\n", outPath)
		return 0
	}

	fmt.Fprintln(stdout, string(data))
	return 0
}
