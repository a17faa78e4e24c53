package renderer

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

type fenceState int

const (
	fenceSignaled fenceState = iota
	// Reset by the loop but not yet backed by a submission. Destroying
	// resources in this window would orphan the slot, so the mock flags any
	// rebuild that observes it.
	fenceResetUnsubmitted
	fenceInFlight
)

// mockBackend simulates the device layer: fences move signaled -> reset ->
// in-flight -> signaled, acquire hands out image indices round-robin, and
// staleness can be injected at acquire or present.
type mockBackend struct {
	maxInFlight int
	imageCount  int
	aspect      float32

	fences    []fenceState
	nextImage uint32

	staleAcquires    int
	stalePresentOnce bool

	rebuilds        int
	presents        int
	submittedSlots  []int
	presentedImages []uint32
	uploads         []mockUpload

	inFlightCount    int
	maxInFlightSeen  int
	rebuildViolation bool
}

type mockUpload struct {
	imageIndex uint32
	data       []byte
}

func newMockBackend() *mockBackend {
	m := &mockBackend{
		maxInFlight: 2,
		imageCount:  3,
		aspect:      1,
	}
	m.fences = make([]fenceState, m.maxInFlight)
	return m
}

func (m *mockBackend) Initialize() error { return nil }
func (m *mockBackend) Shutdown() error   { return nil }

func (m *mockBackend) Resized(width, height uint32) {
	m.staleAcquires++
	if height != 0 {
		m.aspect = float32(width) / float32(height)
	}
}

func (m *mockBackend) MaxFramesInFlight() int { return m.maxInFlight }
func (m *mockBackend) AspectRatio() float32   { return m.aspect }

func (m *mockBackend) WaitFrameFence(slot int) error {
	if m.fences[slot] == fenceInFlight {
		m.fences[slot] = fenceSignaled
		m.inFlightCount--
	}
	return nil
}

func (m *mockBackend) ResetFrameFence(slot int) error {
	m.fences[slot] = fenceResetUnsubmitted
	return nil
}

func (m *mockBackend) AcquireNextImage(slot int) (uint32, error) {
	if m.staleAcquires > 0 {
		m.staleAcquires--
		return 0, ErrSwapchainStale
	}
	idx := m.nextImage
	m.nextImage = (m.nextImage + 1) % uint32(m.imageCount)
	return idx, nil
}

func (m *mockBackend) RebuildSwapchain() error {
	m.rebuilds++
	for slot := range m.fences {
		if m.fences[slot] == fenceResetUnsubmitted {
			m.rebuildViolation = true
		}
	}
	// Device-wait-idle: outstanding submissions complete, fences signal.
	for slot := range m.fences {
		if m.fences[slot] == fenceInFlight {
			m.fences[slot] = fenceSignaled
			m.inFlightCount--
		}
	}
	return nil
}

func (m *mockBackend) UploadParameters(imageIndex uint32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.uploads = append(m.uploads, mockUpload{imageIndex: imageIndex, data: cp})
	return nil
}

func (m *mockBackend) RecordFrame(slot int, imageIndex uint32) error { return nil }

func (m *mockBackend) Submit(slot int, imageIndex uint32) error {
	m.fences[slot] = fenceInFlight
	m.inFlightCount++
	if m.inFlightCount > m.maxInFlightSeen {
		m.maxInFlightSeen = m.inFlightCount
	}
	m.submittedSlots = append(m.submittedSlots, slot)
	return nil
}

func (m *mockBackend) Present(slot int, imageIndex uint32) error {
	m.presents++
	m.presentedImages = append(m.presentedImages, imageIndex)
	if m.stalePresentOnce {
		m.stalePresentOnce = false
		return ErrSwapchainStale
	}
	return nil
}

func drawFrames(t *testing.T, f *Frontend, params *ShaderParams, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := f.DrawFrame(params); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestFrameLoopSlotPattern(t *testing.T) {
	m := newMockBackend()
	f := NewFrontend(m)

	drawFrames(t, f, NewShaderParams(), 5)

	wantSlots := []int{0, 1, 0, 1, 0}
	if len(m.submittedSlots) != len(wantSlots) {
		t.Fatalf("submissions = %d, want %d", len(m.submittedSlots), len(wantSlots))
	}
	for i, want := range wantSlots {
		if m.submittedSlots[i] != want {
			t.Errorf("frame %d used slot %d, want %d", i, m.submittedSlots[i], want)
		}
	}
	if m.presents != 5 {
		t.Errorf("presents = %d, want 5", m.presents)
	}
}

func TestInFlightNeverExceedsLimit(t *testing.T) {
	m := newMockBackend()
	f := NewFrontend(m)

	drawFrames(t, f, NewShaderParams(), 20)

	if m.maxInFlightSeen > m.maxInFlight {
		t.Errorf("observed %d frames in flight, limit is %d", m.maxInFlightSeen, m.maxInFlight)
	}
}

func TestAcquireStaleRebuildsOnceAndRetries(t *testing.T) {
	m := newMockBackend()
	m.staleAcquires = 1
	f := NewFrontend(m)

	if err := f.DrawFrame(NewShaderParams()); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	if m.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", m.rebuilds)
	}
	if m.presents != 1 {
		t.Errorf("presents = %d, want 1", m.presents)
	}
}

func TestAcquireStaleTwiceIsFatal(t *testing.T) {
	m := newMockBackend()
	m.staleAcquires = 2
	f := NewFrontend(m)

	err := f.DrawFrame(NewShaderParams())
	if err == nil {
		t.Fatal("DrawFrame succeeded, want error after second stale acquire")
	}
	if !errors.Is(err, ErrSwapchainStale) {
		t.Errorf("error = %v, want wrapped ErrSwapchainStale", err)
	}
	if m.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want exactly 1 (no retry loop)", m.rebuilds)
	}
	if m.presents != 0 || len(m.submittedSlots) != 0 {
		t.Errorf("aborted frame submitted/presented: submits=%d presents=%d", len(m.submittedSlots), m.presents)
	}
	if m.fences[0] != fenceSignaled {
		t.Error("aborted frame left its fence unsignaled")
	}
}

func TestPresentStaleRebuildsAfterPresent(t *testing.T) {
	m := newMockBackend()
	m.stalePresentOnce = true
	f := NewFrontend(m)
	params := NewShaderParams()

	if err := f.DrawFrame(params); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	if m.presents != 1 {
		t.Errorf("presents = %d, want 1 (stale present still counts)", m.presents)
	}
	if m.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", m.rebuilds)
	}

	// The frame completed, so the next one advances to the other slot.
	if err := f.DrawFrame(params); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	if got := m.submittedSlots[1]; got != 1 {
		t.Errorf("second frame used slot %d, want 1", got)
	}
}

func TestUploadReflectsPanZoomMutations(t *testing.T) {
	m := newMockBackend()
	f := NewFrontend(m)
	params := NewShaderParams()

	drawFrames(t, f, params, 1)

	params.SetPan(0.1, -0.2)
	params.SetZoom(2)

	drawFrames(t, f, params, 1)

	if len(m.uploads) != 2 {
		t.Fatalf("uploads = %d, want 2", len(m.uploads))
	}
	up := m.uploads[1]
	if up.imageIndex != 1 {
		t.Errorf("second upload hit image %d, want 1", up.imageIndex)
	}
	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(up.data[off:]))
	}
	if got := f32(0); got != float32(0.1) {
		t.Errorf("uploaded centerX = %v, want %v", got, float32(0.1))
	}
	if got := f32(4); got != float32(-0.2) {
		t.Errorf("uploaded centerY = %v, want %v", got, float32(-0.2))
	}
	if got := f32(8); got != 0.5 {
		t.Errorf("uploaded scale = %v, want 0.5", got)
	}
}

func TestResizeRebuildNeverObservesOrphanedFence(t *testing.T) {
	m := newMockBackend()
	f := NewFrontend(m)
	params := NewShaderParams()

	// Interleave resizes with frames so rebuilds land while the other
	// slot's submission is still outstanding.
	for i := 0; i < 10; i++ {
		if i%3 == 1 {
			f.OnResize(800+uint32(i), 600)
		}
		if err := f.DrawFrame(params); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if m.rebuildViolation {
		t.Error("a rebuild ran while a slot fence was reset but unsubmitted")
	}
	if m.rebuilds == 0 {
		t.Error("scenario never triggered a rebuild")
	}
}

func TestAspectRatioRefreshedFromBackend(t *testing.T) {
	m := newMockBackend()
	f := NewFrontend(m)
	params := NewShaderParams()

	f.OnResize(1920, 1080)
	drawFrames(t, f, params, 1)

	want := float32(1920) / float32(1080)
	if params.AspectRatio != want {
		t.Errorf("aspect ratio = %v, want %v", params.AspectRatio, want)
	}
}
