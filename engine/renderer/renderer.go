package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/fractal/engine/core"
)

// Frontend owns the per-frame synchronization protocol and drives a
// RendererBackend through it. One frame is:
//
//	wait slot fence -> acquire image -> upload parameters -> record ->
//	reset slot fence -> submit -> present -> advance slot
//
// A stale swapchain at acquire is rebuilt and the acquire retried exactly
// once; a second failure is fatal for the frame. A stale swapchain at
// present triggers a rebuild after the present with no retry.
type Frontend struct {
	backend     RendererBackend
	currentSlot int
	frameNumber uint64
}

func NewFrontend(backend RendererBackend) *Frontend {
	return &Frontend{
		backend: backend,
	}
}

func (f *Frontend) Initialize() error {
	return f.backend.Initialize()
}

func (f *Frontend) Shutdown() error {
	return f.backend.Shutdown()
}

// OnResize forwards the new framebuffer size. The swapchain is rebuilt
// lazily, at the next acquire, never mid-frame.
func (f *Frontend) OnResize(width, height uint32) {
	f.backend.Resized(width, height)
}

func (f *Frontend) FrameNumber() uint64 {
	return f.frameNumber
}

// DrawFrame renders and presents one frame using the current contents of
// params. Params are read exactly once, at upload.
func (f *Frontend) DrawFrame(params *ShaderParams) error {
	slot := f.currentSlot

	if err := f.backend.WaitFrameFence(slot); err != nil {
		return err
	}

	imageIndex, err := f.backend.AcquireNextImage(slot)
	if errors.Is(err, ErrSwapchainStale) {
		if err := f.backend.RebuildSwapchain(); err != nil {
			return err
		}
		imageIndex, err = f.backend.AcquireNextImage(slot)
		if err != nil {
			err = fmt.Errorf("failed to acquire swapchain image after rebuild: %w", err)
			core.LogError(err.Error())
			return err
		}
	} else if err != nil {
		return err
	}

	params.SetAspectRatio(f.backend.AspectRatio())
	if err := f.backend.UploadParameters(imageIndex, params.EncodeGPU()); err != nil {
		return err
	}

	if err := f.backend.RecordFrame(slot, imageIndex); err != nil {
		return err
	}

	// Reset only once work is about to be submitted, so an aborted frame
	// leaves the fence signaled.
	if err := f.backend.ResetFrameFence(slot); err != nil {
		return err
	}

	if err := f.backend.Submit(slot, imageIndex); err != nil {
		return err
	}

	if err := f.backend.Present(slot, imageIndex); err != nil {
		if !errors.Is(err, ErrSwapchainStale) {
			return err
		}
		if err := f.backend.RebuildSwapchain(); err != nil {
			return err
		}
	}

	f.currentSlot = (f.currentSlot + 1) % f.backend.MaxFramesInFlight()
	f.frameNumber++
	return nil
}
