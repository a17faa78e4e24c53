package renderer

import (
	"encoding/binary"
	"math"
	"testing"
)

func f32At(t *testing.T, buf []byte, off int) float32 {
	t.Helper()
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func i32At(t *testing.T, buf []byte, off int) int32 {
	t.Helper()
	return int32(binary.LittleEndian.Uint32(buf[off:]))
}

func TestSetZoomStoresExactReciprocal(t *testing.T) {
	tests := []struct {
		zoom float64
		want float64
	}{
		{zoom: 1, want: 1},
		{zoom: 2, want: 0.5},
		{zoom: 4, want: 0.25},
		{zoom: 0.5, want: 2},
	}
	for _, tt := range tests {
		p := NewShaderParams()
		p.SetZoom(tt.zoom)
		if p.Scale != tt.want {
			t.Errorf("SetZoom(%v): scale = %v, want exactly %v", tt.zoom, p.Scale, tt.want)
		}
	}
}

func TestResetViewRestoresDefaults(t *testing.T) {
	p := NewShaderParams()
	p.SetPan(-1.5, 0.75)
	p.SetZoom(250)
	p.JuliaX, p.JuliaY = 0.4, -0.1
	p.Power = 5
	if err := p.SetFractalKind(Tricorn); err != nil {
		t.Fatal(err)
	}
	if err := p.SetMaxIterations(500); err != nil {
		t.Fatal(err)
	}

	p.ResetView()

	if p.CenterX != 0 || p.CenterY != 0 {
		t.Errorf("center = (%v, %v), want origin", p.CenterX, p.CenterY)
	}
	if p.Scale != 1 {
		t.Errorf("scale = %v, want 1", p.Scale)
	}
	if p.JuliaX != defaultJuliaX || p.JuliaY != defaultJuliaY {
		t.Errorf("julia constant = (%v, %v), want (%v, %v)", p.JuliaX, p.JuliaY,
			float32(defaultJuliaX), float32(defaultJuliaY))
	}
	if p.Power != defaultPower {
		t.Errorf("power = %v, want %v", p.Power, float32(defaultPower))
	}
	// Fractal kind, palette and iteration cap survive a view reset.
	if p.Fractal != Tricorn {
		t.Errorf("fractal kind = %v, want %v", p.Fractal, Tricorn)
	}
	if p.MaxIterations != 500 {
		t.Errorf("max iterations = %d, want 500", p.MaxIterations)
	}
}

func TestSetMaxIterationsBounds(t *testing.T) {
	tests := []struct {
		name    string
		n       int32
		wantErr bool
	}{
		{name: "lower bound", n: MinIterations, wantErr: false},
		{name: "upper bound", n: MaxIterations, wantErr: false},
		{name: "typical", n: 1000, wantErr: false},
		{name: "zero", n: 0, wantErr: true},
		{name: "negative", n: -5, wantErr: true},
		{name: "above cap", n: MaxIterations + 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewShaderParams()
			before := p.MaxIterations
			err := p.SetMaxIterations(tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetMaxIterations(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
			}
			if tt.wantErr && p.MaxIterations != before {
				t.Errorf("rejected value mutated the store: %d", p.MaxIterations)
			}
		})
	}
}

func TestSetKindRejectsUnknownValues(t *testing.T) {
	p := NewShaderParams()
	if err := p.SetFractalKind(FractalKind(99)); err == nil {
		t.Error("SetFractalKind(99) accepted an unknown kind")
	}
	if err := p.SetFractalKind(FractalKind(-1)); err == nil {
		t.Error("SetFractalKind(-1) accepted an unknown kind")
	}
	if err := p.SetPaletteKind(PaletteKind(paletteCount)); err == nil {
		t.Error("SetPaletteKind accepted an out-of-range palette")
	}
	if p.Fractal != Mandelbrot || p.Palette != Rainbow {
		t.Errorf("rejected values mutated the store: %v/%v", p.Fractal, p.Palette)
	}
}

func TestSetPaletteKindAcceptsAllMembers(t *testing.T) {
	for _, kind := range []PaletteKind{Rainbow, Fire, Ocean, Grayscale, Electric} {
		p := NewShaderParams()
		if err := p.SetPaletteKind(kind); err != nil {
			t.Errorf("SetPaletteKind(%v): %v", kind, err)
		}
		if p.Palette != kind {
			t.Errorf("palette = %v, want %v", p.Palette, kind)
		}
	}
}

func TestPaletteNextWraps(t *testing.T) {
	k := Rainbow
	seen := map[PaletteKind]bool{}
	for i := 0; i < paletteCount; i++ {
		seen[k] = true
		k = k.Next()
	}
	if k != Rainbow {
		t.Errorf("cycling %d palettes ended at %v, want %v", paletteCount, k, Rainbow)
	}
	if len(seen) != paletteCount {
		t.Errorf("cycle visited %d distinct palettes, want %d", len(seen), paletteCount)
	}
}

func TestEncodeGPULayout(t *testing.T) {
	p := NewShaderParams()
	p.SetPan(0.1, -0.2)
	p.SetZoom(2)
	p.SetAspectRatio(1.5)
	if err := p.SetFractalKind(Julia); err != nil {
		t.Fatal(err)
	}
	if err := p.SetPaletteKind(Ocean); err != nil {
		t.Fatal(err)
	}
	if err := p.SetMaxIterations(640); err != nil {
		t.Fatal(err)
	}

	buf := p.EncodeGPU()
	if len(buf) != ParamsByteSize {
		t.Fatalf("record size = %d, want %d", len(buf), ParamsByteSize)
	}

	if got := f32At(t, buf, 0); got != float32(0.1) {
		t.Errorf("centerX = %v, want %v", got, float32(0.1))
	}
	if got := f32At(t, buf, 4); got != float32(-0.2) {
		t.Errorf("centerY = %v, want %v", got, float32(-0.2))
	}
	if got := f32At(t, buf, 8); got != 0.5 {
		t.Errorf("scale = %v, want 0.5", got)
	}
	if got := f32At(t, buf, 12); got != 1.5 {
		t.Errorf("aspectRatio = %v, want 1.5", got)
	}
	if got := i32At(t, buf, 16); got != int32(Julia) {
		t.Errorf("fractalKind = %d, want %d", got, int32(Julia))
	}
	if got := i32At(t, buf, 20); got != 640 {
		t.Errorf("maxIterations = %d, want 640", got)
	}
	if got := i32At(t, buf, 24); got != int32(Ocean) {
		t.Errorf("paletteKind = %d, want %d", got, int32(Ocean))
	}
	if got := i32At(t, buf, 28); got != 0 {
		t.Errorf("padding = %d, want 0", got)
	}
	if got := f32At(t, buf, 32); got != float32(defaultJuliaX) {
		t.Errorf("juliaX = %v, want %v", got, float32(defaultJuliaX))
	}
	if got := f32At(t, buf, 36); got != float32(defaultJuliaY) {
		t.Errorf("juliaY = %v, want %v", got, float32(defaultJuliaY))
	}
	if got := f32At(t, buf, 40); got != float32(defaultPower) {
		t.Errorf("power = %v, want %v", got, float32(defaultPower))
	}
	if got := f32At(t, buf, 44); got != 0 {
		t.Errorf("reserved = %v, want 0", got)
	}
}
