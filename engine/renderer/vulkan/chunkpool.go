package vulkan

import (
	"sync"

	"github.com/brooksytech/dolphin/engine/core"
)

// ChunkPool is a LIFO free-list of ArenaChunks, used to avoid allocating a
// fresh chunk on every flush. LIFO order is preferred for cache warmth: the
// most recently released chunk is the most likely to still be hot.
type ChunkPool struct {
	mu         sync.Mutex
	chunks     []*ArenaChunk
	chunkBytes uint32

	metrics *core.SchedulerMetrics
}

func NewChunkPool(chunkBytes uint32, metrics *core.SchedulerMetrics) *ChunkPool {
	return &ChunkPool{chunkBytes: chunkBytes, metrics: metrics}
}

// Acquire pops a chunk from the pool, allocating a fresh one if the pool is
// empty.
func (p *ChunkPool) Acquire() *ArenaChunk {
	p.mu.Lock()
	n := len(p.chunks)
	if n == 0 {
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.RecordPoolMiss()
		}
		return newArenaChunk(p.chunkBytes)
	}
	c := p.chunks[n-1]
	p.chunks = p.chunks[:n-1]
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.RecordPoolHit()
	}
	return c
}

// Release pushes a drained chunk back onto the pool.
func (p *ChunkPool) Release(c *ArenaChunk) {
	p.mu.Lock()
	p.chunks = append(p.chunks, c)
	p.mu.Unlock()
}

// Size reports how many chunks currently sit idle in the pool. Exposed for
// the pool-reuse testable property: after steady-state submission the size
// should stabilize rather than grow without bound.
func (p *ChunkPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chunks)
}
