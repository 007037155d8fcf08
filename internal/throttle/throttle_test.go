package throttle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	mu            sync.Mutex
	pauseCalls    int
	resumeCalls   int
}

func (f *fakePipeline) Pause() {
	f.mu.Lock()
	f.pauseCalls++
	f.mu.Unlock()
}

func (f *fakePipeline) Resume() {
	f.mu.Lock()
	f.resumeCalls++
	f.mu.Unlock()
}

func (f *fakePipeline) counts() (pauses, resumes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauseCalls, f.resumeCalls
}

func TestMonitorPausesWhenThresholdExceeded(t *testing.T) {
	pipeline := &fakePipeline{}
	m := New(pipeline, 50, time.Hour)

	m.mu.Lock()
	m.sampleWithUsage(90)
	m.mu.Unlock()

	pauses, resumes := pipeline.counts()
	assert.Equal(t, 1, pauses)
	assert.Equal(t, 0, resumes)
}

func TestMonitorResumesOnceUsageDrops(t *testing.T) {
	pipeline := &fakePipeline{}
	m := New(pipeline, 50, time.Hour)

	m.mu.Lock()
	m.sampleWithUsage(90)
	m.sampleWithUsage(10)
	m.mu.Unlock()

	pauses, resumes := pipeline.counts()
	assert.Equal(t, 1, pauses)
	assert.Equal(t, 1, resumes)
}

func TestMonitorDoesNotDoublePause(t *testing.T) {
	pipeline := &fakePipeline{}
	m := New(pipeline, 50, time.Hour)

	m.mu.Lock()
	m.sampleWithUsage(90)
	m.sampleWithUsage(95)
	m.mu.Unlock()

	pauses, _ := pipeline.counts()
	assert.Equal(t, 1, pauses)
}

func TestStopResumesIfPaused(t *testing.T) {
	pipeline := &fakePipeline{}
	m := New(pipeline, 50, time.Hour)
	m.Start()

	m.mu.Lock()
	m.sampleWithUsage(90)
	m.mu.Unlock()

	m.Stop()

	pauses, resumes := pipeline.counts()
	require.Equal(t, 1, pauses)
	assert.Equal(t, 1, resumes)
}

// sampleWithUsage exercises the pause/resume decision in sample without a
// real gopsutil call, so tests do not depend on host CPU load. Caller must
// already hold m.mu.
func (m *Monitor) sampleWithUsage(usage float64) {
	switch {
	case usage >= m.threshold && !m.paused:
		m.paused = true
		m.pipeline.Pause()
	case usage < m.threshold && m.paused:
		m.paused = false
		m.pipeline.Resume()
	}
}
