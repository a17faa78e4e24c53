package core

import "testing"

func TestDispatcherFiresInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []int

	d.Register(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) bool {
		order = append(order, 1)
		return false
	})
	d.Register(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) bool {
		order = append(order, 2)
		return false
	})

	handled := d.Fire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_R}})
	if handled {
		t.Error("no listener handled the event, Fire returned true")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("listener order = %v, want [1 2]", order)
	}
}

func TestDispatcherHandledStopsPropagation(t *testing.T) {
	d := NewDispatcher()
	var secondCalled bool

	d.Register(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		return true
	})
	d.Register(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		secondCalled = true
		return false
	})

	if !d.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 1, WindowHeight: 1}}) {
		t.Error("Fire returned false for a handled event")
	}
	if secondCalled {
		t.Error("listener after a handling listener was still invoked")
	}
}

func TestDispatcherUnregister(t *testing.T) {
	d := NewDispatcher()
	var calls int

	handle := d.Register(EVENT_CODE_MOUSE_WHEEL, func(ctx EventContext) bool {
		calls++
		return false
	})

	d.Fire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL, Data: &WheelEvent{DeltaY: 1}})
	if !d.Unregister(EVENT_CODE_MOUSE_WHEEL, handle) {
		t.Fatal("Unregister failed for a live handle")
	}
	d.Fire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL, Data: &WheelEvent{DeltaY: 1}})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if d.Unregister(EVENT_CODE_MOUSE_WHEEL, handle) {
		t.Error("Unregister succeeded twice for the same handle")
	}
}

func TestDispatcherIgnoresUnknownCode(t *testing.T) {
	d := NewDispatcher()
	if d.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}) {
		t.Error("Fire with no listeners reported handled")
	}
}
