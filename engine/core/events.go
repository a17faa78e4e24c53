package core

import (
	"github.com/google/uuid"
)

type EventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data is *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel scrolled. Data is *WheelEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Framebuffer resized/resolution changed from the OS. Data is *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode Key
}

type MouseEvent struct {
	Button     Button
	PosX, PosY float64
}

type WheelEvent struct {
	DeltaX, DeltaY float64
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// Should return true if handled; a handled event is not passed on to any
// further listeners.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	handle   uuid.UUID
	callback FnOnEvent
}

// Dispatcher routes window and input events to registered listeners. Each
// window owns exactly one dispatcher, handed to it at construction; events
// never route through process-global state.
type Dispatcher struct {
	registered map[EventCode][]*registeredEvent
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		registered: make(map[EventCode][]*registeredEvent),
	}
}

// Register adds a listener for the given code and returns a handle that can
// later be passed to Unregister.
func (d *Dispatcher) Register(code EventCode, onEvent FnOnEvent) uuid.UUID {
	event := &registeredEvent{
		handle:   uuid.New(),
		callback: onEvent,
	}
	d.registered[code] = append(d.registered[code], event)
	return event.handle
}

// Unregister removes the listener with the given handle. Returns false when
// no such registration exists for the code.
func (d *Dispatcher) Unregister(code EventCode, handle uuid.UUID) bool {
	events := d.registered[code]
	for i, e := range events {
		if e.handle == handle {
			d.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire invokes listeners of context.Type in registration order, on the
// caller's goroutine. Returns true as soon as a listener reports the event
// handled.
func (d *Dispatcher) Fire(context EventContext) bool {
	for _, e := range d.registered[context.Type] {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// Shutdown drops all registrations.
func (d *Dispatcher) Shutdown() {
	d.registered = make(map[EventCode][]*registeredEvent)
}
