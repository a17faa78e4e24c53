package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/fractal/engine/core"
)

// VulkanUniformBuffer is a host-visible, host-coherent buffer that stays
// mapped for its whole lifetime. One exists per swapchain image so the CPU
// can write a frame's parameters while earlier frames are still in flight.
type VulkanUniformBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Mapped unsafe.Pointer
}

func UniformBufferCreate(context *VulkanContext, size vk.DeviceSize) (*VulkanUniformBuffer, error) {
	buffer := &VulkanUniformBuffer{
		Size: size,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}

	var pBuffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &pBuffer); res != vk.Success {
		err := fmt.Errorf("failed to create uniform buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = pBuffer

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryTypeIndex, err := context.FindMemoryIndex(
		memoryRequirements.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		buffer.Destroy(context)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	}
	var pMemory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &pMemory); res != vk.Success {
		buffer.Destroy(context)
		err := fmt.Errorf("failed to allocate uniform buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = pMemory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy(context)
		err := fmt.Errorf("failed to bind uniform buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	// Persistently mapped; unmapped only at Destroy.
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &pData); res != vk.Success {
		buffer.Destroy(context)
		err := fmt.Errorf("failed to map uniform buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Mapped = pData

	return buffer, nil
}

// Upload copies data into the mapped region. Host-coherent memory needs no
// explicit flush.
func (b *VulkanUniformBuffer) Upload(data []byte) error {
	if vk.DeviceSize(len(data)) > b.Size {
		err := fmt.Errorf("uniform upload of %d bytes exceeds buffer size %d", len(data), b.Size)
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(b.Mapped, data)
	return nil
}

func (b *VulkanUniformBuffer) Destroy(context *VulkanContext) {
	if b.Mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
		b.Mapped = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
}
