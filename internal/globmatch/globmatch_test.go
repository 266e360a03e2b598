package globmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchBasic(t *testing.T) {
	assert.True(t, Match("*.env", ".env"))
	assert.True(t, Match("**/*.log", "a/b/c.log"))
	assert.False(t, Match("*.log", "a/b/c.log"))
	assert.True(t, Match("node_modules/**", "node_modules/pkg/index.js"))
	assert.True(t, Match("./build/*", "build/out.js"))
	assert.True(t, Match("a?c", "abc"))
}

func TestMatchAny(t *testing.T) {
	assert.True(t, MatchAny([]string{"*.tmp", "*.log"}, "debug.log"))
	assert.False(t, MatchAny([]string{"*.tmp"}, "debug.log"))
}
