package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickLogsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(slog.New(slog.NewTextHandler(&buf, nil)), time.Second)
	start := p.lastTime
	clock := start
	p.now = func() time.Time { return clock }

	for range 9 {
		clock = clock.Add(100 * time.Millisecond)
		_, logged := p.Tick()
		require.False(t, logged)
	}
	assert.Zero(t, buf.Len())

	clock = start.Add(time.Second)
	stats, logged := p.Tick()
	require.True(t, logged)
	assert.InDelta(t, 10.0, stats.FPS, 1e-9)
	assert.Contains(t, buf.String(), "msg=profiler")
	assert.Contains(t, buf.String(), "fps=10")

	clock = clock.Add(10 * time.Millisecond)
	_, logged = p.Tick()
	assert.False(t, logged, "counters reset after logging")
}

func TestNewProfilerDefaults(t *testing.T) {
	p := NewProfiler(nil, 0)
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}
