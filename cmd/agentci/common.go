package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentci/agentci/pkg/policyconfig"
	"github.com/agentci/agentci/pkg/signature"
	"github.com/agentci/agentci/pkg/telemetry"
)

func loadConfigForWorkspace(configPath, workspaceRoot string) *policyconfig.Config {
	if configPath == "" {
		configPath = defaultConfigPath(workspaceRoot)
	}
	return policyconfig.Load(configPath, workspaceRoot)
}

// defaultConfigPath is where "agentci init" writes config.yaml; commands
// that accept --config fall back to this path so a project's config.yaml is
// picked up without repeating the flag on every invocation.
func defaultConfigPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".agentci", "config.yaml")
}

func readSignatureFile(path string) (*signature.Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}
	var sig signature.Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}
	return &sig, nil
}

// withCommandSpan wraps an offline analysis command's body in an OTel root
// span named "agentci.<command>", exporting span JSON to stderr so a
// command's stdout (including --format json output) stays script-clean.
// Tracing failures are non-fatal: if the exporter can't be set up, the
// command still runs untraced.
func withCommandSpan(stderr io.Writer, command string, fn func()) {
	ctx := context.Background()
	tracer, shutdown, err := telemetry.Setup(ctx, "agentci", stderr)
	if err != nil {
		fn()
		return
	}
	_, span := telemetry.StartCommandSpan(ctx, tracer, command)
	fn()
	span.End()
	_ = shutdown(ctx)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
