package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentci/agentci/pkg/integrity"
)

// runDoctorCmd implements "agentci doctor": checks .agentci/ permissions and
// config, per spec.md §6.1.
func runDoctorCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("doctor", flag.ContinueOnError)
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
	ok := true

	checkDir(stdout, agentciDir, &ok)
	checkSecret(stdout, agentciDir, &ok)
	checkConfig(stdout, agentciDir)

	if ok {
		fmt.Fprintln(stdout, "agentci: doctor OK")
		return 0
	}
	fmt.Fprintln(stdout, "agentci: doctor found problems")
	return 1
}

func checkDir(w io.Writer, agentciDir string, ok *bool) {
	info, err := os.Stat(agentciDir)
	if err != nil {
		fmt.Fprintf(w, "[FAIL] %s does not exist (run `agentci init`)\n", agentciDir)
		*ok = false
		return
	}
	if !info.IsDir() {
		fmt.Fprintf(w, "[FAIL] %s is not a directory\n", agentciDir)
		*ok = false
		return
	}
	fmt.Fprintf(w, "[ OK ] %s exists\n", agentciDir)
}

func checkSecret(w io.Writer, agentciDir string, ok *bool) {
	path := integrity.SecretPath(agentciDir)
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "[WARN] secret file missing at %s (run `agentci init`)\n", path)
		return
	}
	if info.Mode().Perm() != 0o600 {
		fmt.Fprintf(w, "[WARN] secret file %s has mode %v, expected 0600\n", path, info.Mode().Perm())
		return
	}
	fmt.Fprintf(w, "[ OK ] secret file present with correct permissions\n")
}

func checkConfig(w io.Writer, agentciDir string) {
	path := filepath.Join(agentciDir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "[INFO] no config.yaml at %s; built-in defaults apply\n", path)
		return
	}
	fmt.Fprintf(w, "[ OK ] config.yaml present at %s\n", path)
}
