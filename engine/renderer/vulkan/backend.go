package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/fractal/engine/core"
	"github.com/spaghettifunk/fractal/engine/platform"
	"github.com/spaghettifunk/fractal/engine/renderer"
)

const fenceWaitTimeoutNS = ^uint64(0)

// VulkanRenderer implements renderer.RendererBackend on top of a single
// graphics+present device. Per-slot resources (semaphores, fences) are fixed
// for the renderer's lifetime; per-image resources (command buffers, uniform
// buffers, descriptor sets, framebuffers) are torn down and rebuilt with the
// swapchain.
type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext

	applicationName string
	shaderDir       string
	debug           bool

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	setLayout  vk.DescriptorSetLayout
	pipeline   *VulkanPipeline
	descriptor *VulkanDescriptor

	// Indexed by swapchain image.
	uniformBuffers         []*VulkanUniformBuffer
	graphicsCommandBuffers []*VulkanCommandBuffer
	imagesInFlight         []*VulkanFence

	// Indexed by in-flight slot.
	imageAvailableSemaphores []vk.Semaphore
	queueCompleteSemaphores  []vk.Semaphore
	inFlightFences           []*VulkanFence
}

func New(p *platform.Platform, applicationName, shaderDir string, debug bool) *VulkanRenderer {
	return &VulkanRenderer{
		platform:        p,
		applicationName: applicationName,
		shaderDir:       shaderDir,
		debug:           debug,
		context: &VulkanContext{
			Allocator: nil,
		},
	}
}

func (vr *VulkanRenderer) Initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("vkGetInstanceProcAddr is not available from GLFW")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vulkan bindings: %s", err)
		return err
	}

	width, height := vr.platform.FramebufferSize()
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	if err := vr.createInstance(); err != nil {
		return err
	}

	if vr.debug {
		if err := vr.createDebugger(); err != nil {
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.CreateVulkanSurface(vr.context.Instance)
	if err != nil {
		core.LogError("failed to create platform surface: %s", err)
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc
	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height

	rp, err := RenderpassCreate(
		vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.0, 1.0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	layout, err := DescriptorSetLayoutCreate(vr.context)
	if err != nil {
		return err
	}
	vr.setLayout = layout

	pipeline, err := NewGraphicsPipeline(vr.context, vr.shaderDir, vr.setLayout)
	if err != nil {
		return err
	}
	vr.pipeline = pipeline

	if err := vr.createImageResources(); err != nil {
		return err
	}

	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.applicationName),
		PEngineName:        VulkanSafeString("Fractal Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogDebug("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogDebug("  %s", requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	requiredLayers := []string{}
	if vr.debug {
		requiredLayers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := verifyValidationLayers(requiredLayers); err != nil {
			return err
		}
	}
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create the Vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan instance created.")
	return nil
}

func verifyValidationLayers(required []string) error {
	var availableCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	available := make([]vk.LayerProperties, availableCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, available); res != vk.Success {
		err := fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	for i := range required {
		found := false
		for j := range available {
			available[j].Deref()
			end := FindFirstZeroInByteArray(available[j].LayerName[:])
			if required[i] == vk.ToString(available[j].LayerName[:end+1]) {
				found = true
				break
			}
		}
		if !found {
			err := fmt.Errorf("required validation layer is missing: %s", required[i])
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

func (vr *VulkanRenderer) createDebugger() error {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
		err := fmt.Errorf("failed to create debug report callback: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vr.context.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// createImageResources builds everything keyed to the swapchain images:
// framebuffers, command buffers, uniform buffers and descriptor sets. Called
// at initialization and again after every swapchain rebuild.
func (vr *VulkanRenderer) createImageResources() error {
	imageCount := int(vr.context.Swapchain.ImageCount)

	vr.context.Swapchain.Framebuffers = make([]*VulkanFramebuffer, imageCount)
	for i := 0; i < imageCount; i++ {
		fb, err := FramebufferCreate(
			vr.context,
			vr.context.MainRenderpass,
			vr.context.FramebufferWidth,
			vr.context.FramebufferHeight,
			[]vk.ImageView{vr.context.Swapchain.Views[i]})
		if err != nil {
			return err
		}
		vr.context.Swapchain.Framebuffers[i] = fb
	}

	vr.graphicsCommandBuffers = make([]*VulkanCommandBuffer, imageCount)
	for i := 0; i < imageCount; i++ {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.graphicsCommandBuffers[i] = cb
	}

	vr.uniformBuffers = make([]*VulkanUniformBuffer, imageCount)
	for i := 0; i < imageCount; i++ {
		ub, err := UniformBufferCreate(vr.context, vk.DeviceSize(renderer.ParamsByteSize))
		if err != nil {
			return err
		}
		vr.uniformBuffers[i] = ub
	}

	descriptor, err := DescriptorCreate(vr.context, vr.setLayout, vr.uniformBuffers)
	if err != nil {
		return err
	}
	vr.descriptor = descriptor

	vr.imagesInFlight = make([]*VulkanFence, imageCount)
	return nil
}

func (vr *VulkanRenderer) destroyImageResources() {
	if vr.descriptor != nil {
		vr.descriptor.Destroy(vr.context)
		vr.descriptor = nil
	}
	for _, ub := range vr.uniformBuffers {
		ub.Destroy(vr.context)
	}
	vr.uniformBuffers = nil

	for _, cb := range vr.graphicsCommandBuffers {
		if cb.Handle != nil {
			cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	vr.graphicsCommandBuffers = nil

	for _, fb := range vr.context.Swapchain.Framebuffers {
		fb.Destroy(vr.context)
	}
	vr.context.Swapchain.Framebuffers = nil

	vr.imagesInFlight = nil
}

func (vr *VulkanRenderer) createSyncObjects() error {
	maxFrames := int(vr.context.Swapchain.MaxFramesInFlight)
	vr.imageAvailableSemaphores = make([]vk.Semaphore, maxFrames)
	vr.queueCompleteSemaphores = make([]vk.Semaphore, maxFrames)
	vr.inFlightFences = make([]*VulkanFence, maxFrames)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	for i := 0; i < maxFrames; i++ {
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.imageAvailableSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create image-available semaphore: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.queueCompleteSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create queue-complete semaphore: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}

		// Signaled so the first wait on each slot passes without a prior
		// submission.
		f, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.inFlightFences[i] = f
	}
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Opposite order of creation.
	for i := range vr.inFlightFences {
		if vr.imageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.imageAvailableSemaphores[i], vr.context.Allocator)
			vr.imageAvailableSemaphores[i] = vk.NullSemaphore
		}
		if vr.queueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.queueCompleteSemaphores[i], vr.context.Allocator)
			vr.queueCompleteSemaphores[i] = vk.NullSemaphore
		}
		vr.inFlightFences[i].FenceDestroy(vr.context)
	}
	vr.imageAvailableSemaphores = nil
	vr.queueCompleteSemaphores = nil
	vr.inFlightFences = nil

	vr.destroyImageResources()

	if vr.pipeline != nil {
		vr.pipeline.Destroy(vr.context)
		vr.pipeline = nil
	}
	DescriptorSetLayoutDestroy(vr.context, vr.setLayout)
	vr.setLayout = vk.NullDescriptorSetLayout

	vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.debug && vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	return nil
}

// Resized only records the new size and bumps the generation counter. The
// swapchain is rebuilt lazily when the loop observes the mismatch at acquire.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++

	core.LogDebug("Vulkan renderer resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
}

func (vr *VulkanRenderer) MaxFramesInFlight() int {
	return int(vr.context.Swapchain.MaxFramesInFlight)
}

func (vr *VulkanRenderer) AspectRatio() float32 {
	extent := vr.context.Swapchain.Extent
	if extent.Height == 0 {
		return 1
	}
	return float32(extent.Width) / float32(extent.Height)
}

func (vr *VulkanRenderer) WaitFrameFence(slot int) error {
	return vr.inFlightFences[slot].FenceWait(vr.context, fenceWaitTimeoutNS)
}

func (vr *VulkanRenderer) ResetFrameFence(slot int) error {
	return vr.inFlightFences[slot].FenceReset(vr.context)
}

func (vr *VulkanRenderer) AcquireNextImage(slot int) (uint32, error) {
	// A pending resize makes the current swapchain stale before the driver
	// would report it.
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		return 0, renderer.ErrSwapchainStale
	}
	return vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, vr.imageAvailableSemaphores[slot])
}

// RebuildSwapchain recreates the swapchain and every image-keyed resource at
// the current framebuffer size. Blocks while the framebuffer has a zero
// dimension (minimized window) and until the device goes idle, so no
// in-flight work can still reference what gets destroyed.
func (vr *VulkanRenderer) RebuildSwapchain() error {
	width, height := vr.platform.WaitForValidFramebuffer()

	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkDeviceWaitIdle failed during swapchain rebuild: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	vr.destroyImageResources()

	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, &vr.context.Device.SwapchainSupport); err != nil {
		return err
	}

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, width, height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc
	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height

	vr.context.MainRenderpass.X = 0
	vr.context.MainRenderpass.Y = 0
	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)

	if err := vr.createImageResources(); err != nil {
		return err
	}

	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0

	core.LogInfo("Swapchain rebuilt at %dx%d.", vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	return nil
}

func (vr *VulkanRenderer) UploadParameters(imageIndex uint32, data []byte) error {
	return vr.uniformBuffers[imageIndex].Upload(data)
}

func (vr *VulkanRenderer) RecordFrame(slot int, imageIndex uint32) error {
	// The image's command buffer may still be executing from an earlier slot.
	if vr.imagesInFlight[imageIndex] != nil {
		if err := vr.imagesInFlight[imageIndex].FenceWait(vr.context, fenceWaitTimeoutNS); err != nil {
			return err
		}
	}

	commandBuffer := vr.graphicsCommandBuffers[imageIndex]
	if err := commandBuffer.Reset(); err != nil {
		return err
	}
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vr.context.Swapchain.Extent,
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.context.MainRenderpass.RenderpassBegin(commandBuffer, vr.context.Swapchain.Framebuffers[imageIndex].Handle)

	vr.pipeline.Bind(commandBuffer)
	vk.CmdBindDescriptorSets(
		commandBuffer.Handle,
		vk.PipelineBindPointGraphics,
		vr.pipeline.PipelineLayout,
		0, 1,
		[]vk.DescriptorSet{vr.descriptor.Sets[imageIndex]},
		0, nil)

	// Two triangles covering the screen; vertices come from gl_VertexIndex.
	vk.CmdDraw(commandBuffer.Handle, 6, 1, 0, 0)

	vr.context.MainRenderpass.RenderpassEnd(commandBuffer)
	return commandBuffer.End()
}

func (vr *VulkanRenderer) Submit(slot int, imageIndex uint32) error {
	commandBuffer := vr.graphicsCommandBuffers[imageIndex]

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.imageAvailableSemaphores[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.queueCompleteSemaphores[slot]},
	}

	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vr.inFlightFences[slot].Handle); res != vk.Success {
		err := fmt.Errorf("vkQueueSubmit failed: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	commandBuffer.UpdateSubmitted()
	vr.imagesInFlight[imageIndex] = vr.inFlightFences[slot]
	return nil
}

func (vr *VulkanRenderer) Present(slot int, imageIndex uint32) error {
	return vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.PresentQueue,
		vr.queueCompleteSemaphores[slot],
		imageIndex)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
