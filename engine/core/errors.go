package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")

	// ErrSchedulerClosed is the error whose text Record panics with when a
	// caller records a command or submits work after Shutdown has completed.
	ErrSchedulerClosed = errors.New("scheduler: record after shutdown")

	// ErrDescriptorPoolExhausted signals that a descriptor pool has no
	// remaining capacity; the allocator grows its pool list and retries.
	ErrDescriptorPoolExhausted = errors.New("vulkan: descriptor pool exhausted")

	// ErrDeviceLost is set once a driver submit or fence wait reports a
	// lost device. The pipeline does not attempt to recover from it.
	ErrDeviceLost = errors.New("vulkan: device lost")
)
