package vulkan

import (
	"fmt"
	"sync"
	"time"

	"github.com/brooksytech/dolphin/engine/containers"
	"github.com/brooksytech/dolphin/engine/core"
)

// SchedulerConfig carries the tunables read from engine/core.SchedulerConfig
// (or its defaults) into the arena, ring, and descriptor-pool sizing.
type SchedulerConfig struct {
	ChunkBytes            uint32
	NumCommandBuffers     int
	NumFramesInFlight     int
	DescriptorSetsPerPool uint32
}

// SchedulerConfigFromCore converts a loaded core.SchedulerConfig into the
// shape NewScheduler expects.
func SchedulerConfigFromCore(c core.SchedulerConfig) SchedulerConfig {
	return SchedulerConfig{
		ChunkBytes:            c.ChunkBytes,
		NumCommandBuffers:     c.NumCommandBuffers,
		NumFramesInFlight:     c.NumFramesInFlight,
		DescriptorSetsPerPool: c.DescriptorSetsPerPool,
	}
}

// Scheduler is the producer-facing façade: it accepts recorded closures,
// packs them into arena chunks, and owns the single RecordingWorker
// goroutine that replays those chunks against a CommandBufferManager. It is
// meant to be constructed once per process and shared by reference.
type Scheduler struct {
	pool *ChunkPool

	mu         sync.Mutex
	cond       *sync.Cond
	workQueue  *containers.RingQueue[*ArenaChunk]
	workerIdle bool
	stopping   bool
	workerWG   sync.WaitGroup

	current *ArenaChunk

	fence *FenceCounter
	cbm   *CommandBufferManager

	// Metrics accumulates rolling submit/flush latency and chunk-pool
	// hit-rate; nil is never stored here, NewScheduler always allocates one.
	Metrics *core.SchedulerMetrics

	// EndRenderPass is invoked, on the RecordingWorker, immediately before
	// every submit's driver call. It is the scheduler's sole dependency on
	// the renderer's state tracker.
	EndRenderPass func()

	closed bool
}

// NewScheduler constructs a Scheduler and its CommandBufferManager, but
// does not start any goroutines until Initialize is called.
func NewScheduler(driver Driver, cfg SchedulerConfig) *Scheduler {
	if cfg.ChunkBytes == 0 {
		cfg.ChunkBytes = DefaultChunkBytes
	}
	fence := NewFenceCounter()
	cbm := NewCommandBufferManager(driver, fence, CommandBufferManagerConfig{
		NumCommandBuffers:     cfg.NumCommandBuffers,
		NumFramesInFlight:     cfg.NumFramesInFlight,
		DescriptorSetsPerPool: cfg.DescriptorSetsPerPool,
	})

	metrics := &core.SchedulerMetrics{}
	s := &Scheduler{
		pool:          NewChunkPool(cfg.ChunkBytes, metrics),
		workQueue:     containers.NewRingQueue[*ArenaChunk](4),
		workerIdle:    true,
		fence:         fence,
		cbm:           cbm,
		Metrics:       metrics,
		EndRenderPass: func() {},
	}
	s.cond = sync.NewCond(&s.mu)
	s.current = s.pool.Acquire()
	return s
}

// Initialize starts the underlying CommandBufferManager and the
// RecordingWorker goroutine.
func (s *Scheduler) Initialize() error {
	if err := s.cbm.Initialize(); err != nil {
		return err
	}
	s.workerWG.Add(1)
	go s.recordingWorkerLoop()
	return nil
}

// Record attempts to append cmd to the current chunk, flushing and
// retrying exactly once on overflow. A correctly sized closure is
// guaranteed to fit in a freshly acquired empty chunk; failing that twice
// is a programming error.
func (s *Scheduler) Record(cmd Command) {
	if s.closed {
		panic(fmt.Sprintf("vulkan: %v", core.ErrSchedulerClosed))
	}
	if s.current.Record(cmd) {
		return
	}
	s.Flush()
	if !s.current.Record(cmd) {
		panic("vulkan: command exceeds arena chunk capacity")
	}
}

// Flush transfers the current chunk onto the work queue (if non-empty),
// wakes the RecordingWorker, and acquires a fresh current chunk.
func (s *Scheduler) Flush() {
	if s.current.IsEmpty() {
		return
	}
	start := time.Now()

	s.mu.Lock()
	s.workerIdle = false
	s.workQueue.Enqueue(s.current)
	s.cond.Broadcast()
	s.mu.Unlock()

	s.current = s.pool.Acquire()
	s.Metrics.FlushLatency.Record(float64(time.Since(start).Microseconds()) / 1000.0)
}

// SyncWorker flushes and then blocks until the RecordingWorker has
// observed an empty queue.
func (s *Scheduler) SyncWorker() {
	s.Flush()
	s.mu.Lock()
	for !s.workerIdle {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// SynchronizeSubmissionThread waits for the recording pipeline to drain and
// then for the SubmissionWorker to go idle.
func (s *Scheduler) SynchronizeSubmissionThread() {
	s.SyncWorker()
	s.cbm.WaitForSubmitWorkerIdle()
}

// Submit increments the current fence counter, records a closure that ends
// the open render pass and forwards to CommandBufferManager.Submit, and
// either blocks for completion or flushes immediately so the submit isn't
// starved behind unrelated recording.
func (s *Scheduler) Submit(onWorkerThread, waitForCompletion bool, present *PresentRequest) uint64 {
	gen := s.fence.Advance()
	s.Record(func(cb *CommandBufferManager) {
		s.EndRenderPass()
		start := time.Now()
		err := cb.Submit(gen, onWorkerThread, waitForCompletion, present)
		s.Metrics.SubmitLatency.Record(float64(time.Since(start).Microseconds()) / 1000.0)
		if err != nil {
			core.LogError(fmt.Sprintf("vulkan: submit generation %d failed: %v", gen, err))
		}
	})
	if waitForCompletion {
		s.WaitForFenceCounter(gen)
	} else {
		s.Flush()
	}
	return gen
}

// WaitForFenceCounter blocks until completed reaches gen.
func (s *Scheduler) WaitForFenceCounter(gen uint64) {
	if s.fence.Completed() >= gen {
		return
	}
	s.SyncWorker()
	s.cbm.WaitForFenceCounter(gen)
}

func (s *Scheduler) CompletedFence() uint64 { return s.fence.Completed() }
func (s *Scheduler) CurrentFence() uint64   { return s.fence.Current() }

func (s *Scheduler) CheckLastPresentFailed() bool { return s.cbm.CheckLastPresentFailed() }
func (s *Scheduler) LastPresentResult() error     { return s.cbm.LastPresentResult() }
func (s *Scheduler) CheckLastPresentDone() bool   { return s.cbm.CheckLastPresentDone() }

func (s *Scheduler) DeviceLost() bool { return s.cbm.DeviceLost() }

// AllocateDescriptorSet, GetCurrentInitCommandBuffer, GetCurrentDrawCommandBuffer,
// SetWaitSemaphoreForCurrentCommandBuffer and the Defer* methods are exposed
// directly on the CommandBufferManager for callers that already hold a
// reference to it from inside a recorded closure; commandbuffermanager.go
// documents that surface.

// Shutdown drains both pipelines, then stops and joins the RecordingWorker,
// SubmissionWorker and FenceWorker goroutines. After Shutdown returns, any
// subsequent Record (and so any Submit) panics with a message carrying
// ErrSchedulerClosed.
func (s *Scheduler) Shutdown() {
	s.SyncWorker()
	s.SynchronizeSubmissionThread()

	s.mu.Lock()
	s.stopping = true
	s.cond.Broadcast()
	s.mu.Unlock()
	s.workerWG.Wait()

	s.cbm.Shutdown()
	s.closed = true
}
