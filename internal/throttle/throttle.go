// Package throttle adapts the parser pipeline's concurrency to system load,
// grounded in style on the teacher's scanner.AdaptiveThrottler but reduced
// from its full cgroup/disk/network metrics sweep to the one signal
// spec.md's performance section actually needs: overall CPU percent,
// sampled via gopsutil, pausing the pipeline while the host is saturated.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/ashgrove/medialib/internal/logger"
)

// Pipeline is the surface throttle needs from internal/parser.Pipeline.
type Pipeline interface {
	Pause()
	Resume()
}

// Monitor periodically samples CPU usage and pauses pipeline while it
// stays above threshold, resuming once it drops back below.
type Monitor struct {
	pipeline  Pipeline
	threshold float64
	interval  time.Duration

	mu      sync.Mutex
	paused  bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Monitor that samples every interval and pauses pipeline
// once CPU usage exceeds thresholdPercent.
func New(pipeline Pipeline, thresholdPercent float64, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{pipeline: pipeline, threshold: thresholdPercent, interval: interval, stopCh: make(chan struct{})}
}

// Start launches the sampling goroutine.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop halts sampling and resumes the pipeline if it was paused for load.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	m.mu.Lock()
	if m.paused {
		m.pipeline.Resume()
		m.paused = false
	}
	m.mu.Unlock()
}

func (m *Monitor) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	percents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil || len(percents) == 0 {
		logger.Warn("throttle: cpu sample failed", logger.Err("error", err))
		return
	}

	usage := percents[0]
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case usage >= m.threshold && !m.paused:
		m.paused = true
		m.pipeline.Pause()
		logger.Info("throttle: pausing parser pipeline", logger.String("cpu_percent", fmt.Sprintf("%.1f", usage)))
	case usage < m.threshold && m.paused:
		m.paused = false
		m.pipeline.Resume()
		logger.Info("throttle: resuming parser pipeline", logger.String("cpu_percent", fmt.Sprintf("%.1f", usage)))
	}
}
