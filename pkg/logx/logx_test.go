package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo("debate", &buf)
	logger.Info("starting %d participants", 3)

	line := buf.String()
	assert.Contains(t, line, "[INFO] debate: starting 3 participants")
}

func TestDebugDomainFilter(t *testing.T) {
	defer SetDebugConfig(false, nil)

	var buf bytes.Buffer
	logger := NewLoggerTo("pattern", &buf)

	SetDebugConfig(false, nil)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	SetDebugConfig(true, nil)
	logger.Debug("visible everywhere")
	assert.Contains(t, buf.String(), "visible everywhere")

	buf.Reset()
	SetDebugConfig(true, []string{"debate"})
	logger.Debug("filtered out")
	assert.Empty(t, buf.String())

	logger.WithComponent("debate").Debug("filtered in")
	assert.Contains(t, buf.String(), "[DEBUG] debate: filtered in")
}

func TestIsDebugEnabledForDomain(t *testing.T) {
	defer SetDebugConfig(false, nil)

	SetDebugConfig(true, []string{"a", "b"})
	assert.True(t, IsDebugEnabledForDomain("a"))
	assert.False(t, IsDebugEnabledForDomain("c"))
}

func TestNopLogger(t *testing.T) {
	// must not panic with an empty component
	NopLogger().Info("discarded")
}
