package vulkan

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/brooksytech/dolphin/engine/core"
)

func newTestScheduler(t *testing.T, driver *MemDriver) *Scheduler {
	t.Helper()
	s := NewScheduler(driver, SchedulerConfig{
		NumCommandBuffers:     2,
		NumFramesInFlight:     2,
		DescriptorSetsPerPool: 4,
	})
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func TestSchedulerSubmitWaitsForFenceCompletion(t *testing.T) {
	driver := NewMemDriver()
	s := newTestScheduler(t, driver)

	gen := s.Submit(true, true, nil)
	if gen != 1 {
		t.Fatalf("Submit() gen = %d, want 1", gen)
	}
	if got := s.CompletedFence(); got != gen {
		t.Errorf("CompletedFence() = %d, want %d (Submit with waitForCompletion must block)", got, gen)
	}
	if driver.SubmitCount() != 1 {
		t.Errorf("SubmitCount() = %d, want 1", driver.SubmitCount())
	}
}

func TestSchedulerRecordedCommandsRunOnRecordingWorker(t *testing.T) {
	driver := NewMemDriver()
	s := newTestScheduler(t, driver)

	var ran atomic.Int32
	s.Record(func(cb *CommandBufferManager) { ran.Add(1) })
	s.Record(func(cb *CommandBufferManager) { ran.Add(1) })
	s.SyncWorker()

	if ran.Load() != 2 {
		t.Fatalf("ran = %d, want 2", ran.Load())
	}
}

func TestSchedulerFenceCompletionIsMonotonicAcrossManySubmits(t *testing.T) {
	driver := NewMemDriver()
	s := newTestScheduler(t, driver)

	const n = 20
	var last uint64
	for i := 0; i < n; i++ {
		gen := s.Submit(true, true, nil)
		if gen <= last {
			t.Fatalf("Submit() gen = %d, want > %d", gen, last)
		}
		last = gen
		if s.CompletedFence() != gen {
			t.Fatalf("CompletedFence() = %d after submit %d, want %d", s.CompletedFence(), i, gen)
		}
	}
}

func TestSchedulerPresentFailurePropagatesToCheckLastPresentFailed(t *testing.T) {
	driver := NewMemDriver()
	driver.FailPresentAfter = 1
	s := newTestScheduler(t, driver)

	s.Submit(true, true, &PresentRequest{ImageIndex: 0})

	if !s.CheckLastPresentFailed() {
		t.Error("CheckLastPresentFailed() = false, want true after injected present failure")
	}
	if s.LastPresentResult() == nil {
		t.Error("LastPresentResult() = nil, want ErrSwapchainOutOfDate")
	}
	// CheckLastPresentFailed is test-and-clear.
	if s.CheckLastPresentFailed() {
		t.Error("CheckLastPresentFailed() = true on second call, want false (one-shot)")
	}
}

func TestSchedulerDescriptorPoolGrowsOnExhaustion(t *testing.T) {
	driver := NewMemDriver()
	s := newTestScheduler(t, driver)

	var sets []DescriptorSet
	s.Record(func(cb *CommandBufferManager) {
		for i := 0; i < 6; i++ {
			set, err := cb.AllocateDescriptorSet("layout")
			if err != nil {
				t.Errorf("AllocateDescriptorSet() error = %v", err)
				return
			}
			sets = append(sets, set)
		}
	})
	s.SyncWorker()

	if len(sets) != 6 {
		t.Fatalf("allocated %d sets, want 6 (pool of 4 should have grown)", len(sets))
	}
}

func TestSchedulerMetricsTrackSubmitLatency(t *testing.T) {
	driver := NewMemDriver()
	driver.FenceDelay = time.Millisecond
	s := newTestScheduler(t, driver)

	// RollingAverage reports zero until AvgWindow samples have been
	// recorded, so submit enough times to fill the window once.
	for i := 0; i < core.AvgWindow; i++ {
		s.Submit(true, true, nil)
	}

	if avg := s.Metrics.SubmitLatency.Average(); avg <= 0 {
		t.Errorf("SubmitLatency.Average() = %v, want > 0", avg)
	}
}

func TestSchedulerShutdownRejectsFurtherRecord(t *testing.T) {
	driver := NewMemDriver()
	s := NewScheduler(driver, SchedulerConfig{})
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	s.Shutdown()

	defer func() {
		if recover() == nil {
			t.Fatal("Record() after Shutdown did not panic")
		}
	}()
	s.Record(func(*CommandBufferManager) {})
}
