package vulkan

import "time"

// Opaque handle types. Concrete drivers (VulkanDriver, MemDriver) decide
// what actually backs them; the scheduler and CommandBufferManager never
// inspect them.
type (
	CommandPool      interface{}
	CommandBuffer    interface{}
	Fence            interface{}
	Semaphore        interface{}
	DescriptorPool   interface{}
	DescriptorSet    interface{}
	DescriptorLayout interface{}
	Swapchain        interface{}
	Queue            interface{}
)

// WaitForever signals an unbounded fence wait, matching the source design
// of never exposing a fence-wait timeout to callers.
const WaitForever time.Duration = -1

// SubmitInfo describes one queue-submit batch. CommandBuffers is ordered:
// when an init buffer is present it must come before the draw buffer
// within the same batch, per the init/draw ordering design note.
type SubmitInfo struct {
	CommandBuffers  []CommandBuffer
	WaitSemaphore   Semaphore // nil if unused
	SignalSemaphore Semaphore // nil if unused
	Fence           Fence
}

// PresentInfo describes one queue-present call.
type PresentInfo struct {
	Queue         Queue
	Swapchain     Swapchain
	ImageIndex    uint32
	WaitSemaphore Semaphore
}

// Driver is the graphics-driver surface the scheduler and
// CommandBufferManager consume. It is implemented once against a real
// Vulkan device (VulkanDriver) and once against an in-process software
// stand-in (MemDriver) so the scheduler's concurrency and bookkeeping can
// be exercised without a GPU.
type Driver interface {
	CreateCommandPool() (CommandPool, error)
	ResetCommandPool(pool CommandPool) error

	AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error)
	BeginCommandBuffer(cb CommandBuffer) error
	EndCommandBuffer(cb CommandBuffer) error

	CreateFence(signaled bool) (Fence, error)
	WaitForFence(f Fence, timeout time.Duration) error
	ResetFence(f Fence) error

	QueueSubmit(q Queue, info SubmitInfo) error
	QueuePresent(info PresentInfo) error

	CreateDescriptorPool(maxSets uint32) (DescriptorPool, error)
	ResetDescriptorPool(pool DescriptorPool) error
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorLayout) (DescriptorSet, error)

	GraphicsQueue() Queue
	PresentQueue() Queue
}
