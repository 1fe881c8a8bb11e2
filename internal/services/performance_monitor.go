package services

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/ratewatch/ratewatch/internal/logging"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a point-in-time resource snapshot reported by the
// health endpoint.
type SystemStats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  uint64    `json:"memory_used_mb"`
	Goroutines    int       `json:"goroutines"`
	CollectedAt   time.Time `json:"collected_at"`
}

// PerformanceMonitor samples host resource usage in the background.
type PerformanceMonitor struct {
	logger   logging.Logger
	interval time.Duration

	mu     sync.RWMutex
	latest SystemStats

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPerformanceMonitor(logger logging.Logger, interval time.Duration) *PerformanceMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PerformanceMonitor{logger: logger, interval: interval}
}

// Start begins periodic sampling until Stop or context cancellation.
func (m *PerformanceMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		m.sample(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample(ctx)
			}
		}
	}()
}

func (m *PerformanceMonitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// Latest returns the most recent snapshot.
func (m *PerformanceMonitor) Latest() SystemStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *PerformanceMonitor) sample(ctx context.Context) {
	stats := SystemStats{
		Goroutines:  runtime.NumGoroutine(),
		CollectedAt: time.Now().UTC(),
	}

	if cpuPercent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = memInfo.UsedPercent
		stats.MemoryUsedMB = memInfo.Used / 1024 / 1024
	}

	m.mu.Lock()
	m.latest = stats
	m.mu.Unlock()

	m.logger.LogResourceStats("ratewatch", map[string]interface{}{
		"cpu_percent":    stats.CPUPercent,
		"memory_percent": stats.MemoryPercent,
		"memory_used_mb": stats.MemoryUsedMB,
		"goroutines":     stats.Goroutines,
	})
}
