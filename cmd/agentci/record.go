package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/agentci/agentci/pkg/integrity"
	"github.com/agentci/agentci/pkg/recorder"
	"github.com/agentci/agentci/pkg/runctx"
	"github.com/agentci/agentci/pkg/runmeta"
	"github.com/agentci/agentci/pkg/signature"
)

// runRecordCmd implements "agentci record -- <command...>", per spec.md
// §6.1. The recorded process is the command itself: its top-level exec is
// captured as a single effect, and its child's own environment carries the
// recorder contract so a nested agentci-aware process can chain its own
// run under the same workspace.
func runRecordCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("record", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		workspaceRoot string
		configPath    string
		enforce       bool
	)
	cmd.StringVar(&workspaceRoot, "workspace", "", "Workspace root (default: current directory)")
	cmd.StringVar(&configPath, "config", "", "Policy config path")
	cmd.BoolVar(&enforce, "enforce", false, "Enable the synchronous policy enforcer")

	dashIdx := indexOfDashDash(args)
	flagArgs := args
	var commandArgs []string
	if dashIdx >= 0 {
		flagArgs = args[:dashIdx]
		commandArgs = args[dashIdx+1:]
	} else {
		flagArgs = nil
		commandArgs = args
	}

	if err := cmd.Parse(flagArgs); err != nil {
		return 2
	}
	if len(commandArgs) == 0 {
		fmt.Fprintln(stderr, "Usage: agentci record [--workspace <path>] [--config <path>] [--enforce] -- <command...>")
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

	runID, err := runctx.NewRunID(time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "agentci: cannot generate run id: %v\n", err)
		return 1
	}
	agentciDir := filepath.Join(workspaceRoot, ".agentci")
	runDir := filepath.Join(agentciDir, "runs", runID)

	rc := &runctx.Context{
		RunDir:        runDir,
		RunID:         runID,
		WorkspaceRoot: workspaceRoot,
		ConfigPath:    configPath,
		Enforce:       enforce,
	}

	startedAt := time.Now().UTC()

	rec, err := recorder.Start(rc, toolVersion)
	if err != nil {
		fmt.Fprintf(stderr, "agentci: failed to start recorder: %v\n", err)
		return 1
	}

	child := exec.Command(commandArgs[0], commandArgs[1:]...)
	child.Stdout = stdout
	child.Stderr = stderr
	child.Stdin = os.Stdin
	child.Env = append(os.Environ(),
		runctx.EnvRunDir+"="+runDir,
		runctx.EnvRunID+"="+runID,
		runctx.EnvWorkspaceRoot+"="+workspaceRoot,
		runctx.EnvVersion+"="+toolVersion,
	)

	runErr := rec.Exec.Run(child)
	exitCode := 0
	var lifecycleErr error
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
			lifecycleErr = runErr
		}
	}

	rec.Stop(exitCode, lifecycleErr)
	stoppedAt := time.Now().UTC()

	if err := finalizeRun(agentciDir, runDir, runID, rc, commandArgs, startedAt, stoppedAt, exitCode); err != nil {
		fmt.Fprintf(stderr, "agentci: warning: failed to finalize run artifacts: %v\n", err)
	}

	fmt.Fprintf(stdout, "agentci: run %s recorded to %s\n", runID, runDir)
	return exitCode
}

// finalizeRun builds the signature from the just-closed trace log and
// writes the signature file, both checksum files, and the metadata.json /
// attestation.json sidecars, per spec.md §6's filesystem layout.
func finalizeRun(agentciDir, runDir, runID string, rc *runctx.Context, command []string, startedAt, stoppedAt time.Time, exitCode int) error {
	tracePath := filepath.Join(runDir, "trace.jsonl")
	cfg := loadConfigForWorkspace(rc.ConfigPath, rc.WorkspaceRoot)

	sig, err := signature.Build(tracePath, cfg, toolVersion, runtime.Version(), platformString())
	if err != nil {
		return fmt.Errorf("build signature: %w", err)
	}

	sigPath := filepath.Join(runDir, "signature.json")
	sigData, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}
	if err := os.WriteFile(sigPath, sigData, 0o600); err != nil {
		return fmt.Errorf("write signature: %w", err)
	}

	traceChecksum, err := integrity.Sign(agentciDir, tracePath, filepath.Join(runDir, "trace.checksum"), runID, true)
	if err != nil {
		return fmt.Errorf("sign trace: %w", err)
	}
	if _, err := integrity.Sign(agentciDir, sigPath, filepath.Join(runDir, "signature.checksum"), runID, false); err != nil {
		return fmt.Errorf("sign signature: %w", err)
	}

	meta := &runmeta.RunMetadata{
		RunID:       runID,
		StartedAt:   startedAt,
		StoppedAt:   &stoppedAt,
		Command:     command,
		ExitCode:    &exitCode,
		ToolVersion: toolVersion,
		Adapter:     string(sig.Meta.Adapter),
	}
	if err := runmeta.WriteMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	att, err := runmeta.BuildAttestation(runID, tracePath, sigPath, string(traceChecksum.KeySource), stoppedAt)
	if err != nil {
		return fmt.Errorf("build attestation: %w", err)
	}
	if err := runmeta.WriteAttestation(filepath.Join(runDir, "attestation.json"), att); err != nil {
		return fmt.Errorf("write attestation: %w", err)
	}
	return nil
}

func indexOfDashDash(args []string) int {
	for i, a := range args {
		if a == "--" {
			return i
		}
	}
	return -1
}
