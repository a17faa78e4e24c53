package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FractalKind selects the iterated function rendered by the fragment shader.
// The set is closed; values outside it never enter a ShaderParams.
type FractalKind int

const (
	Mandelbrot FractalKind = iota
	Julia
	BurningShip
	Tricorn
	Multibrot
)

func (k FractalKind) valid() bool {
	return k >= Mandelbrot && k <= Multibrot
}

func (k FractalKind) String() string {
	switch k {
	case Mandelbrot:
		return "mandelbrot"
	case Julia:
		return "julia"
	case BurningShip:
		return "burning-ship"
	case Tricorn:
		return "tricorn"
	case Multibrot:
		return "multibrot"
	}
	return fmt.Sprintf("fractal-kind(%d)", int(k))
}

// PaletteKind selects the iteration-count color mapping.
type PaletteKind int

const (
	Rainbow PaletteKind = iota
	Fire
	Ocean
	Grayscale
	Electric
)

const paletteCount = 5

func (k PaletteKind) valid() bool {
	return k >= Rainbow && k <= Electric
}

func (k PaletteKind) String() string {
	switch k {
	case Rainbow:
		return "rainbow"
	case Fire:
		return "fire"
	case Ocean:
		return "ocean"
	case Grayscale:
		return "grayscale"
	case Electric:
		return "electric"
	}
	return fmt.Sprintf("palette-kind(%d)", int(k))
}

// Next returns the palette after k, wrapping around.
func (k PaletteKind) Next() PaletteKind {
	return (k + 1) % paletteCount
}

// Iteration bounds enforced by SetMaxIterations.
const (
	MinIterations = 1
	MaxIterations = 100000
)

// ParamsByteSize is the size of the packed GPU record produced by EncodeGPU.
const ParamsByteSize = 48

// Default view and shading constants.
const (
	defaultMaxIterations = 100
	defaultJuliaX        = -0.7
	defaultJuliaY        = 0.27015
	defaultPower         = 3.0
)

// ShaderParams is the host-side parameter record for the fractal shader. It
// is mutated by input handlers and read exactly once per frame, at upload; it
// is never touched concurrently. Values are held at full host precision and
// narrowed only when encoded.
type ShaderParams struct {
	CenterX       float64
	CenterY       float64
	Scale         float64
	AspectRatio   float32
	Fractal       FractalKind
	MaxIterations int32
	Palette       PaletteKind
	JuliaX        float32
	JuliaY        float32
	Power         float32
}

// NewShaderParams returns the default view: Mandelbrot centered on the
// origin at unit scale.
func NewShaderParams() *ShaderParams {
	return &ShaderParams{
		CenterX:       0,
		CenterY:       0,
		Scale:         1,
		AspectRatio:   1,
		Fractal:       Mandelbrot,
		MaxIterations: defaultMaxIterations,
		Palette:       Rainbow,
		JuliaX:        defaultJuliaX,
		JuliaY:        defaultJuliaY,
		Power:         defaultPower,
	}
}

// SetFractalKind selects the fractal. Unknown kinds are rejected.
func (p *ShaderParams) SetFractalKind(kind FractalKind) error {
	if !kind.valid() {
		return fmt.Errorf("unknown fractal kind %d", int(kind))
	}
	p.Fractal = kind
	return nil
}

// SetPaletteKind selects the palette. Unknown kinds are rejected.
func (p *ShaderParams) SetPaletteKind(kind PaletteKind) error {
	if !kind.valid() {
		return fmt.Errorf("unknown palette kind %d", int(kind))
	}
	p.Palette = kind
	return nil
}

// SetMaxIterations sets the iteration cap. Values outside
// [MinIterations, MaxIterations] are rejected and the store is unchanged.
func (p *ShaderParams) SetMaxIterations(n int32) error {
	if n < MinIterations || n > MaxIterations {
		return fmt.Errorf("max iterations %d out of range [%d, %d]", n, MinIterations, MaxIterations)
	}
	p.MaxIterations = n
	return nil
}

// SetZoom stores the reciprocal of the zoom factor as the view scale, so a
// zoom of 4 shows a quarter of the unit view. z must be positive; that is
// the caller's contract.
func (p *ShaderParams) SetZoom(z float64) {
	p.Scale = 1 / z
}

// Zoom returns the current zoom factor.
func (p *ShaderParams) Zoom() float64 {
	return 1 / p.Scale
}

// SetPan moves the view center.
func (p *ShaderParams) SetPan(x, y float64) {
	p.CenterX = x
	p.CenterY = y
}

func (p *ShaderParams) SetAspectRatio(ratio float32) {
	p.AspectRatio = ratio
}

// ResetView restores the default center, scale, Julia constant and multibrot
// power. Fractal kind, palette and iteration cap are untouched.
func (p *ShaderParams) ResetView() {
	p.CenterX = 0
	p.CenterY = 0
	p.Scale = 1
	p.JuliaX = defaultJuliaX
	p.JuliaY = defaultJuliaY
	p.Power = defaultPower
}

// EncodeGPU packs the record into the 48-byte uniform block layout consumed
// by the fragment shader, little-endian:
//
//	offset  0  f32 centerX        16  i32 fractalKind     32  f32 juliaX
//	offset  4  f32 centerY        20  i32 maxIterations   36  f32 juliaY
//	offset  8  f32 scale          24  i32 paletteKind     40  f32 power
//	offset 12  f32 aspectRatio    28  i32 (padding)       44  f32 (reserved)
//
// Enum kinds are narrowed to int32 here and nowhere else.
func (p *ShaderParams) EncodeGPU() []byte {
	buf := make([]byte, ParamsByteSize)

	putF32 := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	putI32 := func(off int, v int32) {
		binary.LittleEndian.PutUint32(buf[off:], uint32(v))
	}

	putF32(0, float32(p.CenterX))
	putF32(4, float32(p.CenterY))
	putF32(8, float32(p.Scale))
	putF32(12, p.AspectRatio)
	putI32(16, int32(p.Fractal))
	putI32(20, p.MaxIterations)
	putI32(24, int32(p.Palette))
	putI32(28, 0)
	putF32(32, p.JuliaX)
	putF32(36, p.JuliaY)
	putF32(40, p.Power)
	putF32(44, 0)

	return buf
}
