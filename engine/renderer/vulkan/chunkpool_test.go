package vulkan

import (
	"testing"

	"github.com/brooksytech/dolphin/engine/core"
)

func TestChunkPoolAcquireAllocatesWhenEmpty(t *testing.T) {
	p := NewChunkPool(DefaultChunkBytes, nil)
	if p.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", p.Size())
	}
	c := p.Acquire()
	if c == nil {
		t.Fatal("Acquire() returned nil")
	}
}

func TestChunkPoolReleaseThenAcquireReusesChunk(t *testing.T) {
	p := NewChunkPool(DefaultChunkBytes, nil)
	c1 := p.Acquire()
	p.Release(c1)
	if p.Size() != 1 {
		t.Fatalf("Size() after Release = %d, want 1", p.Size())
	}
	c2 := p.Acquire()
	if c2 != c1 {
		t.Error("Acquire() after Release did not return the pooled chunk")
	}
	if p.Size() != 0 {
		t.Errorf("Size() after re-Acquire = %d, want 0", p.Size())
	}
}

func TestChunkPoolAcquireIsLIFO(t *testing.T) {
	p := NewChunkPool(DefaultChunkBytes, nil)
	a := p.Acquire()
	b := p.Acquire()
	p.Release(a)
	p.Release(b)
	if got := p.Acquire(); got != b {
		t.Error("Acquire() after releasing a, b did not return b first (expected LIFO)")
	}
	if got := p.Acquire(); got != a {
		t.Error("Acquire() second call did not return a")
	}
}

func TestChunkPoolRecordsHitAndMissMetrics(t *testing.T) {
	m := &core.SchedulerMetrics{}
	p := NewChunkPool(DefaultChunkBytes, m)

	c := p.Acquire() // miss: pool empty
	if rate := m.PoolHitRate(); rate != 0 {
		t.Fatalf("PoolHitRate() after one miss = %v, want 0", rate)
	}
	p.Release(c)
	p.Acquire() // hit: pool had one chunk
	if rate := m.PoolHitRate(); rate != 0.5 {
		t.Fatalf("PoolHitRate() after one hit, one miss = %v, want 0.5", rate)
	}
}
