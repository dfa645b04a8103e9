package vulkan

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/brooksytech/dolphin/engine/containers"
	"github.com/brooksytech/dolphin/engine/core"
)

// CommandBufferManagerConfig carries the tunables that shape the flight and
// frame rings.
type CommandBufferManagerConfig struct {
	NumCommandBuffers     int
	NumFramesInFlight     int
	DescriptorSetsPerPool uint32
}

// CommandBufferManager owns the ring of per-flight command-buffer
// resources, the smaller ring of per-frame descriptor-pool resources, and
// the submission/fence pipelines that keep queue-submit and presentation
// off the recording goroutine.
type CommandBufferManager struct {
	driver Driver
	cfg    CommandBufferManagerConfig

	fenceCounter *FenceCounter

	resources        []*CmdBufferResources
	frames           []*FrameResources
	currentCmdBuffer int
	currentFrame     int

	presentSemaphore Semaphore

	// SubmissionWorker state.
	submitMu       sync.Mutex
	submitCond     *sync.Cond
	pendingSubmits *containers.RingQueue[PendingSubmit]
	submitIdle     bool
	submitStopping bool
	submitWG       sync.WaitGroup

	// FenceWorker state.
	fenceMu       sync.Mutex
	fenceCond     *sync.Cond
	pendingFences *containers.RingQueue[PendingFence]
	fenceStopping bool
	fenceWG       sync.WaitGroup

	completedMu   sync.Mutex
	completedCond *sync.Cond

	lastPresentFailed atomic.Bool
	lastPresentDone   atomic.Bool
	lastPresentResult atomic.Value // stores error

	deviceLost atomic.Bool
}

func NewCommandBufferManager(driver Driver, fenceCounter *FenceCounter, cfg CommandBufferManagerConfig) *CommandBufferManager {
	if cfg.NumCommandBuffers <= 0 {
		cfg.NumCommandBuffers = DefaultNumCommandBuffers
	}
	if cfg.NumFramesInFlight <= 0 {
		cfg.NumFramesInFlight = DefaultNumFramesInFlight
	}
	if cfg.DescriptorSetsPerPool == 0 {
		cfg.DescriptorSetsPerPool = DefaultDescriptorSetsPerPool
	}

	m := &CommandBufferManager{
		driver:         driver,
		cfg:            cfg,
		fenceCounter:   fenceCounter,
		pendingSubmits: containers.NewRingQueue[PendingSubmit](8),
		pendingFences:  containers.NewRingQueue[PendingFence](8),
		submitIdle:     true,
	}
	m.submitCond = sync.NewCond(&m.submitMu)
	m.fenceCond = sync.NewCond(&m.fenceMu)
	m.completedCond = sync.NewCond(&m.completedMu)
	return m
}

// Initialize allocates the flight and frame rings and begins recording into
// the first flight slot.
func (m *CommandBufferManager) Initialize() error {
	m.resources = make([]*CmdBufferResources, m.cfg.NumCommandBuffers)
	for i := range m.resources {
		slot := newCmdBufferResources()
		pool, err := m.driver.CreateCommandPool()
		if err != nil {
			return fmt.Errorf("vulkan: create command pool %d: %w", i, err)
		}
		initCB, err := m.driver.AllocateCommandBuffer(pool)
		if err != nil {
			return fmt.Errorf("vulkan: allocate init command buffer %d: %w", i, err)
		}
		drawCB, err := m.driver.AllocateCommandBuffer(pool)
		if err != nil {
			return fmt.Errorf("vulkan: allocate draw command buffer %d: %w", i, err)
		}
		fence, err := m.driver.CreateFence(false)
		if err != nil {
			return fmt.Errorf("vulkan: create fence %d: %w", i, err)
		}
		slot.pool = pool
		slot.initCmdBuffer = initCB
		slot.drawCmdBuffer = drawCB
		slot.fence = fence
		m.resources[i] = slot
	}

	m.frames = make([]*FrameResources, m.cfg.NumFramesInFlight)
	for i := range m.frames {
		frame := newFrameResources()
		pool, err := m.driver.CreateDescriptorPool(m.cfg.DescriptorSetsPerPool)
		if err != nil {
			return fmt.Errorf("vulkan: create descriptor pool %d: %w", i, err)
		}
		frame.descriptorPools = []DescriptorPool{pool}
		m.frames[i] = frame
	}

	m.submitWG.Add(1)
	go m.submissionWorkerLoop()
	m.fenceWG.Add(1)
	go m.fenceWorkerLoop()

	return m.driver.BeginCommandBuffer(m.currentSlot().drawCmdBuffer)
}

func (m *CommandBufferManager) currentSlot() *CmdBufferResources {
	return m.resources[m.currentCmdBuffer]
}

func (m *CommandBufferManager) currentFrameResources() *FrameResources {
	return m.frames[m.currentFrame]
}

// GetCurrentInitCommandBuffer returns the current slot's init buffer,
// marking it as used so it is included in the next submit batch.
func (m *CommandBufferManager) GetCurrentInitCommandBuffer() (CommandBuffer, error) {
	slot := m.currentSlot()
	if !slot.initUsed {
		if err := m.driver.BeginCommandBuffer(slot.initCmdBuffer); err != nil {
			return nil, err
		}
		slot.initUsed = true
	}
	return slot.initCmdBuffer, nil
}

func (m *CommandBufferManager) GetCurrentDrawCommandBuffer() CommandBuffer {
	return m.currentSlot().drawCmdBuffer
}

// SetWaitSemaphoreForCurrentCommandBuffer records the semaphore a swapchain
// acquire produced, to be waited on before the current slot's submit.
func (m *CommandBufferManager) SetWaitSemaphoreForCurrentCommandBuffer(sem Semaphore) {
	slot := m.currentSlot()
	slot.waitSemaphore = sem
	slot.semaphoreUsed = true
}

func (m *CommandBufferManager) deferTo(fn func()) {
	m.currentSlot().deferCleanup(fn)
}

func (m *CommandBufferManager) DeferBufferDestruction(fn func())      { m.deferTo(fn) }
func (m *CommandBufferManager) DeferBufferViewDestruction(fn func())  { m.deferTo(fn) }
func (m *CommandBufferManager) DeferImageDestruction(fn func())       { m.deferTo(fn) }
func (m *CommandBufferManager) DeferImageViewDestruction(fn func())   { m.deferTo(fn) }
func (m *CommandBufferManager) DeferFramebufferDestruction(fn func()) { m.deferTo(fn) }

// GetCompletedFenceCounter returns the highest generation the FenceWorker
// has observed as signalled.
func (m *CommandBufferManager) GetCompletedFenceCounter() uint64 {
	return m.fenceCounter.Completed()
}

// AllocateDescriptorSet allocates from the current frame's current pool,
// growing the pool list on exhaustion (§4.7).
func (m *CommandBufferManager) AllocateDescriptorSet(layout DescriptorLayout) (DescriptorSet, error) {
	frame := m.currentFrameResources()
	for {
		pool := frame.descriptorPools[frame.currentPool]
		set, err := m.driver.AllocateDescriptorSet(pool, layout)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, core.ErrDescriptorPoolExhausted) {
			return nil, err
		}
		frame.currentPool++
		if frame.currentPool >= len(frame.descriptorPools) {
			newPool, cerr := m.driver.CreateDescriptorPool(m.cfg.DescriptorSetsPerPool)
			if cerr != nil {
				return nil, cerr
			}
			frame.descriptorPools = append(frame.descriptorPools, newPool)
		}
	}
}

func (m *CommandBufferManager) resetFrame(f *FrameResources) error {
	for _, pool := range f.descriptorPools {
		if err := m.driver.ResetDescriptorPool(pool); err != nil {
			return err
		}
	}
	f.currentPool = 0
	return nil
}

// Submit implements §4.5's six-step submit procedure, invoked from a
// replayed closure on the RecordingWorker (or inline, when the scheduler is
// running without threading).
func (m *CommandBufferManager) Submit(gen uint64, onWorker, wait bool, present *PresentRequest) error {
	slot := m.currentSlot()

	// 1. End recording of the current draw buffer.
	if err := m.driver.EndCommandBuffer(slot.drawCmdBuffer); err != nil {
		return m.escalate(fmt.Errorf("vulkan: end draw command buffer: %w", err))
	}
	if slot.initUsed {
		if err := m.driver.EndCommandBuffer(slot.initCmdBuffer); err != nil {
			return m.escalate(fmt.Errorf("vulkan: end init command buffer: %w", err))
		}
	}

	// 2. Stamp the current slot's generation.
	slot.fenceCounter = gen

	// 3. Build the pending submit.
	idx := m.currentCmdBuffer
	ps := PendingSubmit{cmdBufferIndex: idx, present: present}

	// 4. Dispatch, on-worker or inline.
	if onWorker {
		m.submitMu.Lock()
		m.submitIdle = false
		m.pendingSubmits.Enqueue(ps)
		m.submitCond.Broadcast()
		m.submitMu.Unlock()
		if wait {
			m.WaitForSubmitWorkerIdle()
		}
	} else {
		m.submitToQueue(ps)
	}

	// 5. Advance the flight-slot cursor, and the frame cursor on wraparound.
	m.currentCmdBuffer = (m.currentCmdBuffer + 1) % len(m.resources)
	if m.currentCmdBuffer == 0 {
		m.currentFrame = (m.currentFrame + 1) % len(m.frames)
		if err := m.resetFrame(m.currentFrameResources()); err != nil {
			return m.escalate(err)
		}
	}

	// 6. Prepare the next slot for recording.
	return m.prepareSlot(m.currentSlot())
}

func (m *CommandBufferManager) prepareSlot(slot *CmdBufferResources) error {
	if slot.fenceCounter != 0 {
		if err := m.driver.WaitForFence(slot.fence, WaitForever); err != nil {
			return m.escalate(fmt.Errorf("vulkan: wait for flight slot fence: %w", err))
		}
		if err := m.driver.ResetFence(slot.fence); err != nil {
			return m.escalate(err)
		}
	}
	slot.runCleanupFor(slot.fenceCounter)
	if err := m.driver.ResetCommandPool(slot.pool); err != nil {
		return m.escalate(err)
	}
	slot.initUsed = false
	slot.semaphoreUsed = false
	return m.driver.BeginCommandBuffer(slot.drawCmdBuffer)
}

// submitToQueue performs the actual driver queue-submit (and optional
// present), used both inline and from the SubmissionWorker loop. Init
// buffer, if used, is ordered before the draw buffer in the same batch
// (§9's init/draw ordering note).
func (m *CommandBufferManager) submitToQueue(ps PendingSubmit) {
	slot := m.resources[ps.cmdBufferIndex]

	buffers := make([]CommandBuffer, 0, 2)
	if slot.initUsed {
		buffers = append(buffers, slot.initCmdBuffer)
	}
	buffers = append(buffers, slot.drawCmdBuffer)

	info := SubmitInfo{
		CommandBuffers: buffers,
		Fence:          slot.fence,
	}
	if slot.semaphoreUsed {
		info.WaitSemaphore = slot.waitSemaphore
	}
	if ps.present != nil {
		info.SignalSemaphore = m.presentSemaphore
	}

	if err := m.driver.QueueSubmit(m.driver.GraphicsQueue(), info); err != nil {
		core.LogError(fmt.Sprintf("vulkan: queue submit failed: %v", err))
		m.deviceLost.Store(true)
	}

	if ps.present != nil {
		perr := m.driver.QueuePresent(PresentInfo{
			Queue:         m.driver.PresentQueue(),
			Swapchain:     ps.present.Swapchain,
			ImageIndex:    ps.present.ImageIndex,
			WaitSemaphore: m.presentSemaphore,
		})
		if perr != nil {
			m.lastPresentResult.Store(perr)
		}
		m.lastPresentDone.Store(true)
		if perr != nil {
			m.lastPresentFailed.Store(true)
		}
	}

	m.fenceMu.Lock()
	m.pendingFences.Enqueue(PendingFence{fence: slot.fence, counter: slot.fenceCounter})
	m.fenceCond.Broadcast()
	m.fenceMu.Unlock()
}

func (m *CommandBufferManager) escalate(err error) error {
	core.LogError(fmt.Sprintf("vulkan: %v", err))
	m.deviceLost.Store(true)
	return errors.Join(core.ErrDeviceLost, err)
}

func (m *CommandBufferManager) DeviceLost() bool {
	return m.deviceLost.Load()
}

// CheckLastPresentFailed and CheckLastPresentDone are one-shot
// test-and-clear accessors mirrored on the Scheduler façade.
// LastPresentResult returns the error of the most recent failed present;
// reading it does not clear it, and a later successful present does not
// replace it.
func (m *CommandBufferManager) CheckLastPresentFailed() bool {
	return m.lastPresentFailed.CompareAndSwap(true, false)
}

func (m *CommandBufferManager) LastPresentResult() error {
	v := m.lastPresentResult.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

func (m *CommandBufferManager) CheckLastPresentDone() bool {
	return m.lastPresentDone.CompareAndSwap(true, false)
}

// WaitForFenceCounter blocks the calling goroutine until completed reaches
// gen, waking whenever the FenceWorker broadcasts progress.
func (m *CommandBufferManager) WaitForFenceCounter(gen uint64) {
	m.completedMu.Lock()
	for m.fenceCounter.Completed() < gen {
		m.completedCond.Wait()
	}
	m.completedMu.Unlock()
}

// WaitForSubmitWorkerIdle blocks until the SubmissionWorker's queue has
// drained and it is not mid-submit.
func (m *CommandBufferManager) WaitForSubmitWorkerIdle() {
	m.submitMu.Lock()
	for !m.submitIdle {
		m.submitCond.Wait()
	}
	m.submitMu.Unlock()
}

// Shutdown stops both the submission and fence worker loops and waits for
// them to exit.
func (m *CommandBufferManager) Shutdown() {
	m.submitMu.Lock()
	m.submitStopping = true
	m.submitCond.Broadcast()
	m.submitMu.Unlock()
	m.submitWG.Wait()

	m.fenceMu.Lock()
	m.fenceStopping = true
	m.fenceCond.Broadcast()
	m.fenceMu.Unlock()
	m.fenceWG.Wait()
}
