package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/fractal/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW window and translates window callbacks into events
// on its dispatcher. The dispatcher is handed over at construction and is the
// only route out of the callback layer; there is no global window registry.
type Platform struct {
	Window     *glfw.Window
	dispatcher *core.Dispatcher

	lastCursorX float64
	lastCursorY float64
	dragging    bool
}

func New(dispatcher *core.Dispatcher) *Platform {
	return &Platform{
		dispatcher: dispatcher,
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. Returns false once the
// window has been asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitMessages sleeps on the event queue until at least one event arrives,
// then processes pending events. Returns false once the window has been asked
// to close.
func (p *Platform) WaitMessages() bool {
	glfw.WaitEvents()
	return !p.Window.ShouldClose()
}

// RequestClose flags the window to close and wakes the event loop. Safe to
// call from any goroutine; the loop itself shuts down on its own thread.
func (p *Platform) RequestClose() {
	if p.Window == nil {
		return
	}
	p.Window.SetShouldClose(true)
	glfw.PostEmptyEvent()
}

// FramebufferSize returns the current framebuffer extent in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// WaitForValidFramebuffer blocks until the framebuffer has a non-zero extent,
// sleeping on the event queue while the window is minimized. Returns the
// extent once valid.
func (p *Platform) WaitForValidFramebuffer() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	for w == 0 || h == 0 {
		glfw.WaitEvents()
		w, h = p.Window.GetFramebufferSize()
	}
	return uint32(w), uint32(h)
}

// GetRequiredExtensionNames returns the instance extensions GLFW needs for
// surface creation on this platform.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateVulkanSurface creates a window surface for the given instance and
// returns its raw handle.
func (p *Platform) CreateVulkanSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code := core.EVENT_CODE_KEY_PRESSED
	switch action {
	case glfw.Press:
		code = core.EVENT_CODE_KEY_PRESSED
	case glfw.Release:
		code = core.EVENT_CODE_KEY_RELEASED
	default:
		// Repeats are not forwarded.
		return
	}
	p.dispatcher.Fire(core.EventContext{
		Type: code,
		Data: &core.KeyEvent{KeyCode: core.Key(key)},
	})
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}

	if b == core.BUTTON_LEFT {
		p.dragging = action == glfw.Press
		p.lastCursorX, p.lastCursorY = w.GetCursorPos()
	}

	code := core.EVENT_CODE_BUTTON_PRESSED
	if action == glfw.Release {
		code = core.EVENT_CODE_BUTTON_RELEASED
	}
	x, y := w.GetCursorPos()
	p.dispatcher.Fire(core.EventContext{
		Type: code,
		Data: &core.MouseEvent{Button: b, PosX: x, PosY: y},
	})
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if !p.dragging {
		return
	}
	dx := xpos - p.lastCursorX
	dy := ypos - p.lastCursorY
	p.lastCursorX = xpos
	p.lastCursorY = ypos

	// Move events carry drag deltas, not absolute positions.
	p.dispatcher.Fire(core.EventContext{
		Type: core.EVENT_CODE_MOUSE_MOVED,
		Data: &core.MouseEvent{Button: core.BUTTON_LEFT, PosX: dx, PosY: dy},
	})
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	p.dispatcher.Fire(core.EventContext{
		Type: core.EVENT_CODE_MOUSE_WHEEL,
		Data: &core.WheelEvent{DeltaX: xoff, DeltaY: yoff},
	})
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.dispatcher.Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{
			WindowWidth:  uint32(width),
			WindowHeight: uint32(height),
		},
	})
}
