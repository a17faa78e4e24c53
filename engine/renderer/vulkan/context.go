package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/fractal/engine/core"
)

// VulkanContext is the shared state threaded through the vulkan package:
// instance, surface, device and the swapchain-derived objects that every
// Create/Destroy pair needs.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, the swapchain is stale.
	FramebufferSizeGeneration uint64
	// The generation of the framebuffer when the swapchain was last
	// (re)built.
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass
}

// FindMemoryIndex returns the index of a memory type matching typeFilter and
// carrying all propertyFlags. When none qualifies the error lists every
// candidate with the reason it was rejected, since "no suitable memory type"
// alone is undiagnosable across drivers.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return i, nil
		}
	}

	var diag strings.Builder
	fmt.Fprintf(&diag, "no suitable memory type (filter=0x%x, required flags=0x%x); candidates:", typeFilter, uint32(propertyFlags))
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		flags := memoryProperties.MemoryTypes[i].PropertyFlags
		filterOK := (typeFilter & (1 << i)) != 0
		flagsOK := (flags & propertyFlags) == propertyFlags
		fmt.Fprintf(&diag, " [type %d: flags=0x%x filter=%t properties=%t]", i, uint32(flags), filterOK, flagsOK)
	}
	err := fmt.Errorf("%s", diag.String())
	core.LogError(err.Error())
	return 0, err
}
