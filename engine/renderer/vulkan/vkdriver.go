package vulkan

import (
	"errors"
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/brooksytech/dolphin/engine/core"
)

// VulkanDriver implements Driver against a real Vulkan device. It expects
// a VulkanContext whose instance, physical device and logical device are
// already created by the host application; VulkanDriver only issues the
// per-operation command-buffer, fence, descriptor-pool and queue calls the
// scheduler drives it with through the opaque Driver interface.
type VulkanDriver struct {
	context *VulkanContext
}

func NewVulkanDriver(context *VulkanContext) *VulkanDriver {
	return &VulkanDriver{context: context}
}

func (d *VulkanDriver) device() vk.Device {
	return d.context.LogicalDevice
}

func (d *VulkanDriver) CreateCommandPool() (CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(d.context.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.device(), &info, d.context.Allocator, &pool); res != vk.Success {
		return nil, fmt.Errorf("vulkan: create command pool failed: %s", VulkanResultString(res, false))
	}
	return pool, nil
}

func (d *VulkanDriver) ResetCommandPool(pool CommandPool) error {
	if res := vk.ResetCommandPool(d.device(), pool.(vk.CommandPool), 0); res != vk.Success {
		return fmt.Errorf("vulkan: reset command pool failed: %s", VulkanResultString(res, false))
	}
	return nil
}

func (d *VulkanDriver) AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.(vk.CommandPool),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.device(), &info, buffers); res != vk.Success {
		return nil, fmt.Errorf("vulkan: allocate command buffer failed: %s", VulkanResultString(res, false))
	}
	return buffers[0], nil
}

func (d *VulkanDriver) BeginCommandBuffer(cb CommandBuffer) error {
	info := &vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if res := vk.BeginCommandBuffer(cb.(vk.CommandBuffer), info); res != vk.Success {
		return fmt.Errorf("vulkan: begin command buffer failed: %s", VulkanResultString(res, false))
	}
	return nil
}

func (d *VulkanDriver) EndCommandBuffer(cb CommandBuffer) error {
	if res := vk.EndCommandBuffer(cb.(vk.CommandBuffer)); res != vk.Success {
		return fmt.Errorf("vulkan: end command buffer failed: %s", VulkanResultString(res, false))
	}
	return nil
}

func (d *VulkanDriver) CreateFence(signaled bool) (Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(d.device(), &info, d.context.Allocator, &fence); res != vk.Success {
		return nil, fmt.Errorf("vulkan: create fence failed: %s", VulkanResultString(res, false))
	}
	return fence, nil
}

// WaitForFence blocks until f signals. timeout of WaitForever waits
// VK_TIMEOUT-free, matching the scheduler's contract of never exposing a
// bounded fence wait to callers.
func (d *VulkanDriver) WaitForFence(f Fence, timeout time.Duration) error {
	waitNs := ^uint64(0)
	if timeout >= 0 {
		waitNs = uint64(timeout.Nanoseconds())
	}
	fence := f.(vk.Fence)
	res := vk.WaitForFences(d.device(), 1, []vk.Fence{fence}, vk.True, waitNs)
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorDeviceLost:
		return fmt.Errorf("vulkan: fence wait: %w", core.ErrDeviceLost)
	default:
		return fmt.Errorf("vulkan: fence wait failed: %s", VulkanResultString(res, false))
	}
}

func (d *VulkanDriver) ResetFence(f Fence) error {
	fence := f.(vk.Fence)
	if res := vk.ResetFences(d.device(), 1, []vk.Fence{fence}); res != vk.Success {
		return fmt.Errorf("vulkan: reset fence failed: %s", VulkanResultString(res, false))
	}
	return nil
}

func (d *VulkanDriver) QueueSubmit(q Queue, info SubmitInfo) error {
	buffers := make([]vk.CommandBuffer, len(info.CommandBuffers))
	for i, cb := range info.CommandBuffers {
		buffers[i] = cb.(vk.CommandBuffer)
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    buffers,
	}
	if info.WaitSemaphore != nil {
		stage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{info.WaitSemaphore.(vk.Semaphore)}
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{stage}
	}
	if info.SignalSemaphore != nil {
		submit.SignalSemaphoreCount = 1
		submit.PSignalSemaphores = []vk.Semaphore{info.SignalSemaphore.(vk.Semaphore)}
	}

	var fence vk.Fence
	if info.Fence != nil {
		fence = info.Fence.(vk.Fence)
	}

	if res := vk.QueueSubmit(q.(vk.Queue), 1, []vk.SubmitInfo{submit}, fence); res != vk.Success {
		return fmt.Errorf("vulkan: queue submit failed: %s", VulkanResultString(res, false))
	}
	return nil
}

// ErrSwapchainOutOfDate is returned by QueuePresent when the swapchain
// needs to be recreated by the caller; it is not treated as fatal.
var ErrSwapchainOutOfDate = errors.New("vulkan: swapchain out of date")

func (d *VulkanDriver) QueuePresent(info PresentInfo) error {
	swapchain := info.Swapchain.(vk.Swapchain)
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain},
		PImageIndices:      []uint32{info.ImageIndex},
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{info.WaitSemaphore.(vk.Semaphore)},
	}
	res := vk.QueuePresent(info.Queue.(vk.Queue), &presentInfo)
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return fmt.Errorf("%w: %s", ErrSwapchainOutOfDate, VulkanResultString(res, false))
	default:
		return fmt.Errorf("vulkan: queue present failed: %s", VulkanResultString(res, false))
	}
}

func (d *VulkanDriver) CreateDescriptorPool(maxSets uint32) (DescriptorPool, error) {
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets},
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       maxSets,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.device(), &info, d.context.Allocator, &pool); res != vk.Success {
		return nil, fmt.Errorf("vulkan: create descriptor pool failed: %s", VulkanResultString(res, false))
	}
	return pool, nil
}

func (d *VulkanDriver) ResetDescriptorPool(pool DescriptorPool) error {
	if res := vk.ResetDescriptorPool(d.device(), pool.(vk.DescriptorPool), 0); res != vk.Success {
		return fmt.Errorf("vulkan: reset descriptor pool failed: %s", VulkanResultString(res, false))
	}
	return nil
}

func (d *VulkanDriver) AllocateDescriptorSet(pool DescriptorPool, layout DescriptorLayout) (DescriptorSet, error) {
	l := layout.(vk.DescriptorSetLayout)
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.(vk.DescriptorPool),
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{l},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(d.device(), &info, &sets[0]); res != vk.Success {
		if res == vk.ErrorOutOfPoolMemory || res == vk.ErrorFragmentedPool {
			return nil, core.ErrDescriptorPoolExhausted
		}
		return nil, fmt.Errorf("vulkan: allocate descriptor set failed: %s", VulkanResultString(res, false))
	}
	return sets[0], nil
}

func (d *VulkanDriver) GraphicsQueue() Queue { return d.context.GraphicsQueue }
func (d *VulkanDriver) PresentQueue() Queue  { return d.context.PresentQueue }
