package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanContext carries the already-established Vulkan handles VulkanDriver
// operates on. Instance creation, physical device selection, and logical
// device/queue creation are the host application's responsibility and are
// treated as an explicit non-goal here (see DESIGN.md): VulkanContext's job
// is only to hand those handles to VulkanDriver once they exist, not to
// bring them up itself.
type VulkanContext struct {
	Allocator *vk.AllocationCallbacks

	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	GraphicsQueue      vk.Queue
	PresentQueue       vk.Queue
}
