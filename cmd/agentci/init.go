package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentci/agentci/pkg/integrity"
	"github.com/agentci/agentci/pkg/policyconfig"
	"gopkg.in/yaml.v3"
)

// runInitCmd implements "agentci init", per spec.md §6.1: create .agentci/,
// a project secret, and a default config.yaml, each only if missing.
func runInitCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("init", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var workspaceRoot string
	cmd.StringVar(&workspaceRoot, "workspace", "", "Workspace root (default: current directory)")

	if err := cmd.Parse(args); err != nil {
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
	if err := os.MkdirAll(agentciDir, 0o700); err != nil {
		fmt.Fprintf(stderr, "agentci: cannot create %s: %v\n", agentciDir, err)
		return 1
	}
	if err := os.MkdirAll(filepath.Join(agentciDir, "runs"), 0o700); err != nil {
		fmt.Fprintf(stderr, "agentci: cannot create runs dir: %v\n", err)
		return 1
	}

	if err := integrity.GenerateSecret(agentciDir); err != nil {
		fmt.Fprintf(stderr, "agentci: failed to generate secret: %v\n", err)
		return 1
	}

	configPath := filepath.Join(agentciDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaults := policyconfig.Default(workspaceRoot)
		data, err := yaml.Marshal(defaults)
		if err != nil {
			fmt.Fprintf(stderr, "agentci: failed to render default config: %v\n", err)
			return 1
		}
		if err := os.WriteFile(configPath, data, 0o600); err != nil {
			fmt.Fprintf(stderr, "agentci: failed to write config: %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(stdout, "agentci: initialized %s\n", agentciDir)
	return 0
}
