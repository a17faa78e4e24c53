package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/fractal/engine/core"
)

// VulkanDescriptor carries the uniform-buffer descriptor machinery: one set
// layout shared by the pipeline, and a pool of per-swapchain-image sets each
// pointing at that image's uniform buffer.
type VulkanDescriptor struct {
	SetLayout vk.DescriptorSetLayout
	Pool      vk.DescriptorPool
	Sets      []vk.DescriptorSet
}

// DescriptorSetLayoutCreate builds the single-binding layout: a uniform
// buffer visible to the fragment stage at binding 0.
func DescriptorSetLayoutCreate(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	binding.Deref()

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

// DescriptorCreate allocates a pool and one set per uniform buffer, writing
// each set to reference its buffer. Called at initialization and again after
// a swapchain rebuild changes the image count.
func DescriptorCreate(context *VulkanContext, setLayout vk.DescriptorSetLayout, uniformBuffers []*VulkanUniformBuffer) (*VulkanDescriptor, error) {
	count := uint32(len(uniformBuffers))

	poolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeUniformBuffer,
		DescriptorCount: count,
	}
	poolSize.Deref()

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{poolSize},
		MaxSets:       count,
	}

	descriptor := &VulkanDescriptor{
		SetLayout: setLayout,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	descriptor.Pool = pool

	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = setLayout
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     descriptor.Pool,
		DescriptorSetCount: count,
		PSetLayouts:        layouts,
	}
	descriptor.Sets = make([]vk.DescriptorSet, count)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &descriptor.Sets[0]); res != vk.Success {
		descriptor.Destroy(context)
		err := fmt.Errorf("failed to allocate descriptor sets: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	for i := uint32(0); i < count; i++ {
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: uniformBuffers[i].Handle,
			Offset: 0,
			Range:  uniformBuffers[i].Size,
		}
		bufferInfo.Deref()

		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          descriptor.Sets[i],
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		}
		write.Deref()

		vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	}

	return descriptor, nil
}

// Destroy releases the pool (and with it the sets). The shared set layout is
// owned by the pipeline lifetime and destroyed separately.
func (d *VulkanDescriptor) Destroy(context *VulkanContext) {
	if d.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, d.Pool, context.Allocator)
		d.Pool = vk.NullDescriptorPool
	}
	d.Sets = nil
}

func DescriptorSetLayoutDestroy(context *VulkanContext, layout vk.DescriptorSetLayout) {
	if layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
}
