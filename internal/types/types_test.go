package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "idle", RunIdle.String())
	assert.Equal(t, "running", RunRunning.String())
	assert.Equal(t, "paused", RunPaused.String())
	assert.Equal(t, "stopped", RunStopped.String())
	assert.Equal(t, "unknown(9)", RunState(9).String())
}

func TestValidPrefix(t *testing.T) {
	valid := []string{"a", "ma", "abcdefgh"}
	for _, p := range valid {
		assert.True(t, ValidPrefix(p), "%q", p)
	}

	invalid := []string{"", "A", "a1", "a b", "ma-", "añ"}
	for _, p := range invalid {
		assert.False(t, ValidPrefix(p), "%q", p)
	}
}

func TestParentPrefix(t *testing.T) {
	assert.Equal(t, "", ParentPrefix(""))
	assert.Equal(t, "", ParentPrefix("a"))
	assert.Equal(t, "a", ParentPrefix("ab"))
	assert.Equal(t, "abc", ParentPrefix("abcd"))
}
