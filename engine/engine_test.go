package engine

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/fractal/engine/core"
	"github.com/spaghettifunk/fractal/engine/renderer"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func keyEvent(key core.Key) core.EventContext {
	return core.EventContext{
		Type: core.EVENT_CODE_KEY_PRESSED,
		Data: &core.KeyEvent{KeyCode: key},
	}
}

func TestNumberKeysSelectFractalKind(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		key  core.Key
		want renderer.FractalKind
	}{
		{core.KEY_1, renderer.Mandelbrot},
		{core.KEY_2, renderer.Julia},
		{core.KEY_3, renderer.BurningShip},
		{core.KEY_4, renderer.Tricorn},
		{core.KEY_5, renderer.Multibrot},
	}
	for _, tt := range tests {
		if !e.onKey(keyEvent(tt.key)) {
			t.Errorf("key %d not handled", tt.key)
		}
		if e.params.Fractal != tt.want {
			t.Errorf("key %d: fractal = %v, want %v", tt.key, e.params.Fractal, tt.want)
		}
	}
}

func TestPaletteKeyCyclesThroughAllPalettes(t *testing.T) {
	e := newTestEngine(t)

	start := e.params.Palette
	seen := map[renderer.PaletteKind]bool{start: true}
	for i := 0; i < 4; i++ {
		e.onKey(keyEvent(core.KEY_P))
		seen[e.params.Palette] = true
	}
	if len(seen) != 5 {
		t.Errorf("saw %d palettes after 4 presses, want 5", len(seen))
	}

	e.onKey(keyEvent(core.KEY_P))
	if e.params.Palette != start {
		t.Errorf("palette = %v after full cycle, want %v", e.params.Palette, start)
	}
}

func TestIterationKeysStepAndClamp(t *testing.T) {
	e := newTestEngine(t)
	start := e.params.MaxIterations

	e.onKey(keyEvent(core.KEY_EQUAL))
	if e.params.MaxIterations != start+e.iterationStep {
		t.Errorf("iterations = %d after +, want %d", e.params.MaxIterations, start+e.iterationStep)
	}

	// Hammer the minus key; the count must stop at the lower bound.
	for i := 0; i < 200; i++ {
		e.onKey(keyEvent(core.KEY_MINUS))
	}
	if e.params.MaxIterations != minKeyIterations {
		t.Errorf("iterations = %d after spam, want clamp at %d", e.params.MaxIterations, minKeyIterations)
	}

	for i := 0; i < 500; i++ {
		e.onKey(keyEvent(core.KEY_EQUAL))
	}
	if e.params.MaxIterations != maxKeyIterations {
		t.Errorf("iterations = %d after spam, want clamp at %d", e.params.MaxIterations, maxKeyIterations)
	}
}

func TestResetKeyRestoresViewAndAccumulators(t *testing.T) {
	e := newTestEngine(t)

	e.onMouseWheel(core.EventContext{
		Type: core.EVENT_CODE_MOUSE_WHEEL,
		Data: &core.WheelEvent{DeltaY: 5},
	})
	e.onMouseMoved(core.EventContext{
		Type: core.EVENT_CODE_MOUSE_MOVED,
		Data: &core.MouseEvent{Button: core.BUTTON_LEFT, PosX: 40, PosY: -25},
	})
	if e.params.CenterX == 0 && e.params.CenterY == 0 {
		t.Fatal("drag should have panned the view")
	}

	e.onKey(keyEvent(core.KEY_R))

	if e.params.CenterX != 0 || e.params.CenterY != 0 {
		t.Errorf("center = (%v, %v) after reset, want origin", e.params.CenterX, e.params.CenterY)
	}
	if e.params.Scale != 1 {
		t.Errorf("scale = %v after reset, want 1", e.params.Scale)
	}
	if e.zoomLevel != 1 || e.panX != 0 || e.panY != 0 {
		t.Errorf("accumulators (%v, %v, %v) after reset, want (1, 0, 0)", e.zoomLevel, e.panX, e.panY)
	}
}

func TestWheelZoomCompounds(t *testing.T) {
	e := newTestEngine(t)

	e.onMouseWheel(core.EventContext{
		Type: core.EVENT_CODE_MOUSE_WHEEL,
		Data: &core.WheelEvent{DeltaY: 1},
	})
	e.onMouseWheel(core.EventContext{
		Type: core.EVENT_CODE_MOUSE_WHEEL,
		Data: &core.WheelEvent{DeltaY: 1},
	})

	want := zoomStepFactor * zoomStepFactor
	if diff := e.params.Zoom() - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("zoom = %v after two notches, want %v", e.params.Zoom(), want)
	}
}

func TestDragPanScalesWithZoom(t *testing.T) {
	e := newTestEngine(t)

	drag := core.EventContext{
		Type: core.EVENT_CODE_MOUSE_MOVED,
		Data: &core.MouseEvent{Button: core.BUTTON_LEFT, PosX: 100, PosY: 0},
	}

	e.onMouseMoved(drag)
	panAtZoom1 := e.params.CenterX

	// Same drag at 2x zoom covers half the complex-plane distance.
	e2 := newTestEngine(t)
	e2.onMouseWheel(core.EventContext{
		Type: core.EVENT_CODE_MOUSE_WHEEL,
		Data: &core.WheelEvent{DeltaY: 0},
	})
	e2.zoomLevel = 2
	e2.params.SetZoom(2)
	e2.onMouseMoved(drag)

	if diff := panAtZoom1 - 2*e2.params.CenterX; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("pan at zoom 1 = %v, pan at zoom 2 = %v; want 2x ratio", panAtZoom1, e2.params.CenterX)
	}
}

func TestMinimizedResizeSuspendsAndRestoreResumes(t *testing.T) {
	e := newTestEngine(t)

	e.onResized(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 0, WindowHeight: 0},
	})
	if !e.isSuspended {
		t.Fatal("zero-size resize should suspend the loop")
	}

	e.onResized(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 800, WindowHeight: 600},
	})
	if e.isSuspended {
		t.Error("non-zero resize should resume the loop")
	}
	if e.width != 800 || e.height != 600 {
		t.Errorf("size = %dx%d after restore, want 800x600", e.width, e.height)
	}
}

func TestRequestExitStopsRunBeforeDrawing(t *testing.T) {
	e := newTestEngine(t)

	// No window and no renderer exist; Run must observe the exit request
	// before pumping messages or drawing, and tear down exactly once on its
	// own goroutine.
	e.RequestExit()
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.isRunning {
		t.Error("run loop still marked running after exit request")
	}
}

func TestUnknownKeyIsNotHandled(t *testing.T) {
	e := newTestEngine(t)
	if e.onKey(keyEvent(core.KEY_0)) {
		t.Error("unbound key reported as handled")
	}
}
