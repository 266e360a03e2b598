package signature

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agentci/agentci/pkg/canonicalize"
	"github.com/agentci/agentci/pkg/event"
	"github.com/agentci/agentci/pkg/normalize"
	"github.com/agentci/agentci/pkg/policyconfig"
)

const normalizationRulesVersion = "1.0"

// maxHostLength is RFC 1035's maximum hostname length. A host longer than
// this is rejected outright rather than recorded, per spec.md §8 — checked
// again here as a defense against traces produced outside pkg/patches.
const maxHostLength = 253

// accumulator collects the ten effect sets while a log is scanned.
type accumulator struct {
	fsWrites, fsReadsExternal, fsDeletes map[string]struct{}
	netProtocols, netETLDPlusOne, netHosts map[string]struct{}
	netPorts                                map[int]struct{}
	execCommands, execArgv                 map[string]struct{}
	sensitiveKeys                          map[string]struct{}
	hasAdapterEvent                        bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		fsWrites:        make(map[string]struct{}),
		fsReadsExternal: make(map[string]struct{}),
		fsDeletes:       make(map[string]struct{}),
		netProtocols:    make(map[string]struct{}),
		netETLDPlusOne:  make(map[string]struct{}),
		netHosts:        make(map[string]struct{}),
		netPorts:        make(map[int]struct{}),
		execCommands:    make(map[string]struct{}),
		execArgv:        make(map[string]struct{}),
		sensitiveKeys:   make(map[string]struct{}),
	}
}

// Build reads a JSONL trace log and produces its canonical Effect Signature,
// per spec.md §4.7.
func Build(tracePath string, cfg *policyconfig.Config, toolVersion, runtimeVersion, platform string) (*Signature, error) {
	f, err := os.Open(tracePath)
	if err != nil {
		return nil, fmt.Errorf("signature: open trace: %w", err)
	}
	defer f.Close()

	acc := newAccumulator()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var evt event.TraceEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			// Malformed lines (including a torn trailing line from a
			// crashed process) are skipped, never fatal.
			continue
		}
		if evt.Type == "" {
			continue
		}

		switch evt.Type {
		case event.TypeToolCall, event.TypeToolResult:
			acc.hasAdapterEvent = true
		case event.TypeEffect:
			var data event.EffectData
			if err := json.Unmarshal(evt.Data, &data); err != nil {
				continue
			}
			acc.applyEffect(data, cfg)
		}
	}
	// scanner.Err() is intentionally not treated as fatal: a truncated
	// final read still yields a usable signature from whatever was read.

	return &Signature{
		Meta: Meta{
			SignatureVersion:          signatureVersion,
			NormalizationRulesVersion: normalizationRulesVersion,
			ToolVersion:               toolVersion,
			Platform:                  platform,
			Adapter:                   acc.adapter(),
			RuntimeVersion:            runtimeVersion,
		},
		Effects: acc.effects(),
	}, nil
}

func (a *accumulator) applyEffect(data event.EffectData, cfg *policyconfig.Config) {
	switch data.Category {
	case event.CategoryFSWrite, event.CategoryFSDelete:
		proj := projectPath(data, cfg)
		if proj == "" {
			return
		}
		if data.Category == event.CategoryFSWrite {
			a.fsWrites[proj] = struct{}{}
		} else {
			a.fsDeletes[proj] = struct{}{}
		}

	case event.CategoryFSRead:
		isLocal := data.IsWorkspaceLocal != nil && *data.IsWorkspaceLocal
		projection, external := workspaceProjection(data, cfg.WorkspaceRoot)
		if isLocal && !external {
			return
		}
		value, ok := normalize.Path(projection, cfg)
		if !ok || value == "" {
			return
		}
		a.fsReadsExternal[value] = struct{}{}

	case event.CategoryNetOutbound:
		host := normalize.Host(data.HostRaw, cfg)
		if len(host) > maxHostLength {
			// A path of length >253 in a network hostname is rejected,
			// not recorded, per spec.md §8.
			return
		}
		if host != "" {
			a.netHosts[host] = struct{}{}
			a.netETLDPlusOne[canonicalize.ETLDPlusOne(host)] = struct{}{}
		}
		if data.Protocol != "" {
			a.netProtocols[strings.ToLower(data.Protocol)] = struct{}{}
		}
		if data.Port != nil {
			a.netPorts[*data.Port] = struct{}{}
		}

	case event.CategoryExec:
		argv := normalize.MaskArgv(data.ArgvNormalized, cfg)
		cmd := data.CommandRaw
		if len(argv) > 0 {
			cmd = argv[0]
		}
		cmd = canonicalize.CommandBasename(cmd)
		if cmd != "" {
			a.execCommands[cmd] = struct{}{}
		}
		if serialized, err := normalize.JSONArgv(argv); err == nil {
			a.execArgv[serialized] = struct{}{}
		}

	case event.CategorySensitiveAccess:
		if data.KeyName != "" {
			a.sensitiveKeys[data.KeyName] = struct{}{}
		}
	}
}

// projectPath produces the workspace-relative (or dropped) form for a
// fs_write/fs_delete event, per spec.md §4.7 step 3.
func projectPath(data event.EffectData, cfg *policyconfig.Config) string {
	projection, _ := workspaceProjection(data, cfg.WorkspaceRoot)
	value, ok := normalize.Path(projection, cfg)
	if !ok {
		return ""
	}
	return value
}

func workspaceProjection(data event.EffectData, workspaceRoot string) (string, bool) {
	resolved := data.PathResolved
	if resolved == "" {
		resolved = data.PathRequested
	}
	proj, err := canonicalize.ProjectWorkspaceRelative(resolved, workspaceRoot)
	if err != nil {
		return resolved, true
	}
	return proj.Value, proj.IsExternal
}

func (a *accumulator) adapter() Adapter {
	if a.hasAdapterEvent {
		return AdapterOpenClawNodeHook
	}
	return AdapterNodeHook
}

func (a *accumulator) effects() Effects {
	return Effects{
		FSWrites:              sortedKeys(a.fsWrites),
		FSReadsExternal:       sortedKeys(a.fsReadsExternal),
		FSDeletes:             sortedKeys(a.fsDeletes),
		NetProtocols:          sortedKeys(a.netProtocols),
		NetETLDPlusOne:        sortedKeys(a.netETLDPlusOne),
		NetHosts:              sortedKeys(a.netHosts),
		NetPorts:              sortedInts(a.netPorts),
		ExecCommands:          sortedKeys(a.execCommands),
		ExecArgv:              sortedKeys(a.execArgv),
		SensitiveKeysAccessed: sortedKeys(a.sensitiveKeys),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedInts(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

