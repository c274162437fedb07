package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	assert.InDelta(t, 1234.567, DurationUS(d), 0.001)
}

func withOutput(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	oldOut, oldVerbose := Output, Verbose
	Output, Verbose = buf, verbose
	t.Cleanup(func() { Output, Verbose = oldOut, oldVerbose })
	return buf
}

func TestPrintTimingStats(t *testing.T) {
	buf := withOutput(t, true)
	PrintTimingStats(&TimingStats{
		TotalTime:  100 * time.Millisecond,
		EmbedTime:  60 * time.Millisecond,
		RenderTime: 22 * time.Millisecond,
	}, 11)
	out := buf.String()
	assert.Contains(t, out, "Files written: 11")
	assert.Contains(t, out, "Embedding: 60ms (60.0%)")
	assert.Contains(t, out, "Average render time per file: 2ms")
}

func TestPrintTimingStatsQuiet(t *testing.T) {
	buf := withOutput(t, false)
	PrintTimingStats(&TimingStats{TotalTime: time.Second}, 1)
	assert.Zero(t, buf.Len())
}

func TestLoggerLevels(t *testing.T) {
	buf := withOutput(t, false)
	log := Logger()
	log.Info("hidden")
	log.Warn("shown", "name", "VAE")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown name=VAE")
}
