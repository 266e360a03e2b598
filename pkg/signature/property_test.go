//go:build property
// +build property

package signature

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agentci/agentci/pkg/event"
	"github.com/agentci/agentci/pkg/policyconfig"
)

func writeHostLog(t *testing.T, dir string, hosts []string) string {
	t.Helper()
	path := filepath.Join(dir, "trace.jsonl")
	var content string
	for _, h := range hosts {
		if h == "" {
			continue
		}
		data, err := json.Marshal(event.EffectData{Category: event.CategoryNetOutbound, HostRaw: h, Protocol: "https"})
		if err != nil {
			t.Fatal(err)
		}
		evt := event.TraceEvent{Type: event.TypeEffect, RunID: "r1", Data: data}
		line, err := json.Marshal(evt)
		if err != nil {
			t.Fatal(err)
		}
		content += string(line) + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestBuildNetHostsAlwaysSortedAndDeduped verifies the builder's sorted-set
// guarantee for net_hosts regardless of input order or repetition.
func TestBuildNetHostsAlwaysSortedAndDeduped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("net_hosts is sorted with no duplicates", prop.ForAll(
		func(hosts []string) bool {
			dir := t.TempDir()
			path := writeHostLog(t, dir, hosts)

			cfg := policyconfig.Default(dir)
			sig, err := Build(path, cfg, "1.0.0", "rt-1", "linux")
			if err != nil {
				return false
			}

			if !sort.StringsAreSorted(sig.Effects.NetHosts) {
				return false
			}
			seen := make(map[string]struct{})
			for _, h := range sig.Effects.NetHosts {
				if _, dup := seen[h]; dup {
					return false
				}
				seen[h] = struct{}{}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

// TestBuildIsDeterministic verifies that building a signature twice from the
// same trace log produces byte-identical JSON.
func TestBuildIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("signature build is deterministic", prop.ForAll(
		func(hosts []string) bool {
			dir := t.TempDir()
			path := writeHostLog(t, dir, hosts)
			cfg := policyconfig.Default(dir)

			sig1, err1 := Build(path, cfg, "1.0.0", "rt-1", "linux")
			sig2, err2 := Build(path, cfg, "1.0.0", "rt-1", "linux")
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}

			b1, _ := json.Marshal(sig1)
			b2, _ := json.Marshal(sig2)
			return string(b1) == string(b2)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
