package core

import "sync"

// AvgWindow is the number of recent samples a RollingAverage keeps before
// the oldest sample starts getting overwritten.
const AvgWindow = 30

// RollingAverage is a fixed-size ring of the last AvgWindow samples plus
// their running average, the same windowing shape the original per-frame
// FPS/MSavg tracker used, generalized so the scheduler can reuse it for
// submit and flush latency instead of frame time.
type RollingAverage struct {
	mu      sync.Mutex
	samples [AvgWindow]float64
	cursor  uint8
	filled  bool
	avg     float64
}

// Record appends a sample in milliseconds and recomputes the average once
// the window has filled at least once.
func (r *RollingAverage) Record(ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[r.cursor] = ms
	r.cursor++
	if r.cursor == AvgWindow {
		r.cursor = 0
		r.filled = true
	}
	if !r.filled {
		return
	}
	var sum float64
	for _, s := range r.samples {
		sum += s
	}
	r.avg = sum / float64(AvgWindow)
}

// Average returns the most recently computed rolling average, or zero
// before the window has filled once.
func (r *RollingAverage) Average() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.avg
}

// SchedulerMetrics tracks the scheduler's steady-state health: how long
// submits and flushes take, and how often the chunk pool satisfies a
// request from its free list versus allocating fresh.
type SchedulerMetrics struct {
	SubmitLatency RollingAverage
	FlushLatency  RollingAverage

	poolHits   counter
	poolMisses counter
}

type counter struct {
	mu    sync.Mutex
	value int64
}

func (c *counter) add(n int64) {
	c.mu.Lock()
	c.value += n
	c.mu.Unlock()
}

func (c *counter) load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// RecordPoolHit notes that ChunkPool.Acquire was satisfied from the free
// list.
func (m *SchedulerMetrics) RecordPoolHit() { m.poolHits.add(1) }

// RecordPoolMiss notes that ChunkPool.Acquire had to allocate a fresh
// chunk.
func (m *SchedulerMetrics) RecordPoolMiss() { m.poolMisses.add(1) }

// PoolHitRate returns the fraction of Acquire calls satisfied from the
// free list, in [0, 1]. Returns 0 if Acquire has never been called.
func (m *SchedulerMetrics) PoolHitRate() float64 {
	hits := m.poolHits.load()
	total := hits + m.poolMisses.load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
