package renderer

import "errors"

// ErrSwapchainStale reports that the swapchain no longer matches the surface
// (out of date, or a resize is pending) and must be rebuilt before the
// operation can succeed.
var ErrSwapchainStale = errors.New("swapchain is stale and must be rebuilt")

// RendererBackend is the device-facing surface the frame loop drives. Slot
// arguments index the in-flight frame resources [0, MaxFramesInFlight);
// imageIndex arguments index per-swapchain-image resources.
type RendererBackend interface {
	Initialize() error
	Shutdown() error

	// Resized records a new framebuffer size. It must not destroy or rebuild
	// anything; the loop observes the change at the next acquire.
	Resized(width, height uint32)

	MaxFramesInFlight() int
	AspectRatio() float32

	// WaitFrameFence blocks until the slot's previous submission completed.
	WaitFrameFence(slot int) error
	// ResetFrameFence returns the slot's fence to the unsignaled state.
	ResetFrameFence(slot int) error

	// AcquireNextImage acquires a presentable image, signaling the slot's
	// image-available semaphore. Returns ErrSwapchainStale when the
	// swapchain must be rebuilt first.
	AcquireNextImage(slot int) (uint32, error)

	// RebuildSwapchain waits for the device to go idle, then recreates the
	// swapchain and everything derived from its images at the current
	// framebuffer size.
	RebuildSwapchain() error

	// UploadParameters copies the packed parameter record into the uniform
	// slot of the given swapchain image.
	UploadParameters(imageIndex uint32, data []byte) error

	// RecordFrame re-records the image's command buffer for one full-screen
	// draw.
	RecordFrame(slot int, imageIndex uint32) error

	// Submit queues the recorded work: waits on the slot's image-available
	// semaphore at color-attachment-output, signals the slot's
	// queue-complete semaphore and fence.
	Submit(slot int, imageIndex uint32) error

	// Present hands the image back for presentation. ErrSwapchainStale here
	// means the frame was still presented or dropped harmlessly; the caller
	// rebuilds afterwards without retrying.
	Present(slot int, imageIndex uint32) error
}
