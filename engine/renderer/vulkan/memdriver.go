package vulkan

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/brooksytech/dolphin/engine/core"
)

// memFence is MemDriver's stand-in for vk.Fence: a signal flag. GPU work
// that hasn't finished yet is modelled by MemDriver.FenceDelay.
type memFence struct {
	mu       sync.Mutex
	signaled bool
}

func (f *memFence) signal() {
	f.mu.Lock()
	f.signaled = true
	f.mu.Unlock()
}

func (f *memFence) reset() {
	f.mu.Lock()
	f.signaled = false
	f.mu.Unlock()
}

func (f *memFence) isSignaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

type memDescriptorPool struct {
	maxSets   uint32
	allocated uint32
}

// MemDriver is a software stand-in for Driver that never touches a GPU.
// It exists so the scheduler's concurrency, reclamation, and
// descriptor-pool-growth bookkeeping can be exercised deterministically in
// tests: fence waits complete after an injectable delay instead of a real
// queue signal, descriptor pools exhaust after a configurable number of
// sets, and present calls can be made to fail on demand.
type MemDriver struct {
	mu sync.Mutex

	pools        map[CommandPool][]CommandBuffer
	descriptors  map[DescriptorPool]*memDescriptorPool
	submitCount  atomic.Int64
	presentCount atomic.Int64

	// FenceDelay is slept inside WaitForFence before a fence is reported
	// signaled, simulating GPU latency. Zero means fences are reported
	// signaled immediately after QueueSubmit.
	FenceDelay time.Duration

	// FailPresentAfter, if positive, makes the Nth call to QueuePresent
	// (1-indexed) return an error; 0 disables injected present failures.
	FailPresentAfter int32

	// FailDescriptorAllocAt, if positive, makes the Nth and every later
	// descriptor set allocated from any single pool return
	// ErrDescriptorPoolExhausted, simulating a pool that only holds N-1 sets
	// regardless of the size it was created with.
	FailDescriptorAllocAt uint32
}

// NewMemDriver constructs a MemDriver ready for use as a Scheduler's
// Driver.
func NewMemDriver() *MemDriver {
	return &MemDriver{
		pools:       make(map[CommandPool][]CommandBuffer),
		descriptors: make(map[DescriptorPool]*memDescriptorPool),
	}
}

func (d *MemDriver) CreateCommandPool() (CommandPool, error) {
	pool := uuid.New()
	d.mu.Lock()
	d.pools[pool] = nil
	d.mu.Unlock()
	return pool, nil
}

func (d *MemDriver) ResetCommandPool(pool CommandPool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pools[pool]; !ok {
		return core.ErrDeviceLost
	}
	return nil
}

func (d *MemDriver) AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error) {
	cb := uuid.New()
	d.mu.Lock()
	d.pools[pool] = append(d.pools[pool], cb)
	d.mu.Unlock()
	return cb, nil
}

func (d *MemDriver) BeginCommandBuffer(cb CommandBuffer) error { return nil }
func (d *MemDriver) EndCommandBuffer(cb CommandBuffer) error   { return nil }

func (d *MemDriver) CreateFence(signaled bool) (Fence, error) {
	return &memFence{signaled: signaled}, nil
}

func (d *MemDriver) WaitForFence(f Fence, timeout time.Duration) error {
	fence := f.(*memFence)
	if d.FenceDelay > 0 {
		time.Sleep(d.FenceDelay)
	}
	fence.signal()
	return nil
}

func (d *MemDriver) ResetFence(f Fence) error {
	f.(*memFence).reset()
	return nil
}

func (d *MemDriver) QueueSubmit(q Queue, info SubmitInfo) error {
	d.submitCount.Add(1)
	if info.Fence != nil {
		info.Fence.(*memFence).signal()
	}
	return nil
}

func (d *MemDriver) QueuePresent(info PresentInfo) error {
	n := d.presentCount.Add(1)
	if d.FailPresentAfter > 0 && n == int64(d.FailPresentAfter) {
		return ErrSwapchainOutOfDate
	}
	return nil
}

func (d *MemDriver) CreateDescriptorPool(maxSets uint32) (DescriptorPool, error) {
	pool := uuid.New()
	d.mu.Lock()
	d.descriptors[pool] = &memDescriptorPool{maxSets: maxSets}
	d.mu.Unlock()
	return pool, nil
}

func (d *MemDriver) ResetDescriptorPool(pool DescriptorPool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.descriptors[pool]
	if !ok {
		return core.ErrDeviceLost
	}
	p.allocated = 0
	return nil
}

func (d *MemDriver) AllocateDescriptorSet(pool DescriptorPool, layout DescriptorLayout) (DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.descriptors[pool]
	if !ok {
		return nil, core.ErrDeviceLost
	}
	p.allocated++
	if p.allocated > p.maxSets {
		return nil, core.ErrDescriptorPoolExhausted
	}
	if d.FailDescriptorAllocAt > 0 && p.allocated >= d.FailDescriptorAllocAt {
		return nil, core.ErrDescriptorPoolExhausted
	}
	return uuid.New(), nil
}

func (d *MemDriver) GraphicsQueue() Queue { return "graphics" }
func (d *MemDriver) PresentQueue() Queue  { return "present" }

// SubmitCount reports how many QueueSubmit calls MemDriver has observed,
// for assertions in tests that drive a Scheduler end to end.
func (d *MemDriver) SubmitCount() int64 { return d.submitCount.Load() }

// PresentCount reports how many QueuePresent calls MemDriver has observed.
func (d *MemDriver) PresentCount() int64 { return d.presentCount.Load() }
