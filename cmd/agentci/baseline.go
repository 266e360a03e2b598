package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/agentci/agentci/pkg/integrity"
)

// runBaselineCmd implements "agentci baseline --set --signature <path>",
// writing .agentci/baseline.json, its companion baseline.meta.json (with a
// JCS digest), and baseline.checksum, per spec.md §6's filesystem layout.
func runBaselineCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("baseline", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		set           bool
		sigPath       string
		workspaceRoot string
		creator       string
		reason        string
	)
	cmd.BoolVar(&set, "set", false, "Set the workspace baseline from --signature")
	cmd.StringVar(&sigPath, "signature", "", "Path to a signature.json to adopt as baseline")
	cmd.StringVar(&workspaceRoot, "workspace", "", "Workspace root (default: current directory)")
	cmd.StringVar(&creator, "creator", "", "Free-form creator label for baseline.meta.json")
	cmd.StringVar(&reason, "reason", "", "Free-form reason label for baseline.meta.json")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if !set {
		fmt.Fprintln(stderr, "Usage: agentci baseline --set --signature <path> [--creator <name>] [--reason <text>]")
		return 2
	}
	if sigPath == "" {
		fmt.Fprintln(stderr, "Error: --signature is required with --set")
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

	agentciDir := filepath.Join(workspaceRoot, ".agentci")
	if err := os.MkdirAll(agentciDir, 0o700); err != nil {
		fmt.Fprintf(stderr, "agentci: cannot create %s: %v\n", agentciDir, err)
		return 1
	}

	baselinePath := filepath.Join(agentciDir, "baseline.json")
	sigData, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "agentci: failed to marshal baseline: %v\n", err)
		return 1
	}
	if err := os.WriteFile(baselinePath, sigData, 0o600); err != nil {
		fmt.Fprintf(stderr, "agentci: failed to write baseline: %v\n", err)
		return 1
	}

	digest, err := integrity.BaselineDigest(sig)
	if err != nil {
		fmt.Fprintf(stderr, "agentci: failed to compute baseline digest: %v\n", err)
		return 1
	}
	meta := integrity.BaselineMeta{
		Creator:   creator,
		Reason:    reason,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Digest:    digest,
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "agentci: failed to marshal baseline meta: %v\n", err)
		return 1
	}
	if err := os.WriteFile(filepath.Join(agentciDir, "baseline.meta.json"), metaData, 0o600); err != nil {
		fmt.Fprintf(stderr, "agentci: failed to write baseline meta: %v\n", err)
		return 1
	}

	if _, err := integrity.Sign(agentciDir, baselinePath, filepath.Join(agentciDir, "baseline.checksum"), "baseline", false); err != nil {
		fmt.Fprintf(stderr, "agentci: failed to sign baseline: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "agentci: baseline set from %s (digest %s)\n", sigPath, digest)
	return 0
}
