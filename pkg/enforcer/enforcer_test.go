package enforcer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentci/agentci/pkg/event"
	"github.com/agentci/agentci/pkg/policyconfig"
)

func TestCheckDisabledIsNoop(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Filesystem.BlockWrites = []string{"**"}
	var stderr bytes.Buffer
	e := New(cfg, false, &stderr)

	exited := false
	e.exit = func(int) { exited = true }

	e.Check(event.EffectData{Category: event.CategoryFSWrite, PathResolved: "/ws/out.txt"}, nil)
	assert.False(t, exited)
	assert.Empty(t, stderr.String())
}

func TestCheckBlocksAndExits(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Filesystem.BlockWrites = []string{"out.txt"}
	var stderr bytes.Buffer
	e := New(cfg, true, &stderr)

	exitCode := -1
	e.exit = func(code int) { exitCode = code }

	e.Check(event.EffectData{Category: event.CategoryFSWrite, PathResolved: "/ws/out.txt"}, nil)
	require.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "blocked by policy")
}

func TestCheckPassesWithoutBlock(t *testing.T) {
	cfg := policyconfig.Default("/ws")
	cfg.Policy.Filesystem.AllowWrites = []string{"**"}
	var stderr bytes.Buffer
	e := New(cfg, true, &stderr)

	exited := false
	e.exit = func(int) { exited = true }

	e.Check(event.EffectData{Category: event.CategoryFSWrite, PathResolved: "/ws/out.txt"}, nil)
	assert.False(t, exited)
}
