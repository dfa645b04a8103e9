package vulkan

import (
	"sync"
	"testing"
)

func TestCmdBufferResourcesRunCleanupForRunsOnce(t *testing.T) {
	s := newCmdBufferResources()
	ran := 0
	s.deferCleanup(func() { ran++ })
	s.deferCleanup(func() { ran++ })

	s.runCleanupFor(1)
	if ran != 2 {
		t.Fatalf("ran = %d, want 2 after first runCleanupFor", ran)
	}
	if s.cleanedCounter != 1 {
		t.Fatalf("cleanedCounter = %d, want 1", s.cleanedCounter)
	}

	// A second call for the same generation must be a no-op: the cleanup
	// list was already cleared, and cleanedCounter already covers gen 1.
	s.runCleanupFor(1)
	if ran != 2 {
		t.Fatalf("ran = %d after repeat runCleanupFor(1), want 2 (no-op)", ran)
	}
}

func TestCmdBufferResourcesRunCleanupForZeroGenerationIsNoOp(t *testing.T) {
	s := newCmdBufferResources()
	ran := false
	s.deferCleanup(func() { ran = true })
	s.runCleanupFor(0)
	if ran {
		t.Error("runCleanupFor(0) ran cleanup, want no-op (slot never submitted)")
	}
}

func TestCmdBufferResourcesRunCleanupForLowerGenerationIsNoOp(t *testing.T) {
	s := newCmdBufferResources()
	s.runCleanupFor(5)
	ran := false
	s.deferCleanup(func() { ran = true })
	s.runCleanupFor(3)
	if ran {
		t.Error("runCleanupFor(3) ran cleanup after cleanedCounter=5, want no-op")
	}
}

// TestCmdBufferResourcesRunCleanupForConcurrentRacersRunOnce models the real
// race between the synchronous prepareSlot reuse path and the FenceWorker's
// reclaimSlots both observing the same completed generation: exactly one of
// them must run the cleanup thunks, never both.
func TestCmdBufferResourcesRunCleanupForConcurrentRacersRunOnce(t *testing.T) {
	s := newCmdBufferResources()
	var ran int
	var mu sync.Mutex
	s.deferCleanup(func() {
		mu.Lock()
		ran++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runCleanupFor(1)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if ran != 1 {
		t.Errorf("ran = %d, want exactly 1", ran)
	}
}
