package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentci/agentci/pkg/integrity"
)

// runVerifyCmd implements "agentci verify --target <path> --checksum
// <path>", per spec.md §4.10. Exits 1 on any verification failure, per
// spec.md §7.
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	exitCode := 0
	withCommandSpan(stderr, "verify", func() {
		exitCode = runVerifyCmdTraced(args, stdout, stderr)
	})
	return exitCode
}

func runVerifyCmdTraced(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		targetPath    string
		checksumPath  string
		runID         string
		workspaceRoot string
		jsonOutput    bool
	)
	cmd.StringVar(&targetPath, "target", "", "Path to the file to verify (REQUIRED)")
	cmd.StringVar(&checksumPath, "checksum", "", "Path to the checksum file (REQUIRED)")
	cmd.StringVar(&runID, "run-id", "", "Expected run id (REQUIRED)")
	cmd.StringVar(&workspaceRoot, "workspace", "", "Workspace root (default: current directory)")
	cmd.Func("format", "Output format (json|text)", func(v string) error {
		jsonOutput = v == "json"
		return nil
	})

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if targetPath == "" || checksumPath == "" || runID == "" {
		fmt.Fprintln(stderr, "Error: --target, --checksum, and --run-id are required")
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

	agentciDir := filepath.Join(workspaceRoot, ".agentci")
	result, err := integrity.Verify(agentciDir, targetPath, checksumPath, runID)
	if err != nil {
		fmt.Fprintf(stderr, "agentci: %v\n", err)
		return 1
	}

	if jsonOutput {
		if err := printJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "agentci: %v\n", err)
			return 1
		}
	} else if result.Valid {
		fmt.Fprintf(stdout, "valid: %s\n", result.Details)
	} else {
		fmt.Fprintf(stdout, "invalid: %s\n", result.Details)
	}

	if !result.Valid {
		return 1
	}
	return 0
}
