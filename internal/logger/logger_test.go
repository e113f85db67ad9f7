package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restore(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
}

func TestDebug_GatedByVerbose(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	SetOutput(&buf)

	SetVerbose(false)
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] shown 2")
}

func TestWarnAndError_AlwaysPrint(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("watch out")
	Error("index corrupt: %s", "details")

	out := buf.String()
	assert.Contains(t, out, "[WARN] watch out")
	assert.Contains(t, out, "[ERROR] index corrupt: details")
}

func TestIsVerbose(t *testing.T) {
	restore(t)
	SetVerbose(true)
	assert.True(t, IsVerbose())
	SetVerbose(false)
	assert.False(t, IsVerbose())
}
