package engine

import (
	stdmath "math"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/fractal/engine/core"
	"github.com/spaghettifunk/fractal/engine/math"
	"github.com/spaghettifunk/fractal/engine/platform"
	"github.com/spaghettifunk/fractal/engine/renderer"
	"github.com/spaghettifunk/fractal/engine/renderer/vulkan"
)

const (
	// Bounds for the iteration count reachable through the keyboard. The
	// parameter store accepts a wider range for configs and future UI.
	minKeyIterations int32 = 10
	maxKeyIterations int32 = 1000

	// One wheel notch scales the zoom level by this factor.
	zoomStepFactor = 1.1

	fpsLogIntervalSeconds = 5.0
)

type Engine struct {
	config     *ApplicationConfig
	configPath string

	platform      *platform.Platform
	dispatcher    *core.Dispatcher
	renderer      *renderer.Frontend
	params        *renderer.ShaderParams
	clock         *core.Clock
	metrics       *core.Metrics
	configWatcher *ConfigWatcher

	width  uint32
	height uint32

	isRunning   bool
	isSuspended bool

	// Set from other goroutines (signal handler); observed by the run loop,
	// which owns all teardown.
	stopRequested atomic.Bool

	// View state accumulated from input, pushed into params on change.
	zoomLevel     float64
	panX          float64
	panY          float64
	iterationStep int32

	lastTime   float64
	lastFPSLog float64

	shutdownOnce sync.Once
}

func New(configPath string) (*Engine, error) {
	config, err := LoadApplicationConfig(configPath)
	if err != nil {
		return nil, err
	}
	core.LogSetLevel(config.LogLevel)

	dispatcher := core.NewDispatcher()

	return &Engine{
		config:        config,
		configPath:    configPath,
		dispatcher:    dispatcher,
		platform:      platform.New(dispatcher),
		params:        renderer.NewShaderParams(),
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
		width:         config.StartWidth,
		height:        config.StartHeight,
		zoomLevel:     1.0,
		iterationStep: config.IterationStep,
	}, nil
}

func (e *Engine) Initialize() error {
	e.dispatcher.Register(core.EVENT_CODE_APPLICATION_QUIT, e.onQuit)
	e.dispatcher.Register(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	e.dispatcher.Register(core.EVENT_CODE_MOUSE_MOVED, e.onMouseMoved)
	e.dispatcher.Register(core.EVENT_CODE_MOUSE_WHEEL, e.onMouseWheel)
	e.dispatcher.Register(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(e.config.Name,
		e.config.StartPosX,
		e.config.StartPosY,
		e.config.StartWidth,
		e.config.StartHeight); err != nil {
		return err
	}

	backend := vulkan.New(e.platform, e.config.Name, e.config.ShaderDir, e.config.Debug)
	e.renderer = renderer.NewFrontend(backend)
	if err := e.renderer.Initialize(); err != nil {
		return err
	}

	cw, err := WatchApplicationConfig(e.configPath)
	if err != nil {
		core.LogWarn("config hot-reload disabled: %s", err)
	} else {
		e.configWatcher = cw
	}

	core.LogInfo("%s initialized (%dx%d).", e.config.Name, e.width, e.height)
	return nil
}

func (e *Engine) Run() error {
	e.isRunning = true
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if e.stopRequested.Load() {
			e.isRunning = false
			break
		}

		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		e.applyConfigUpdates()

		if e.isSuspended {
			// Sleep on the event queue while minimized; the restore resize
			// event (or a close request) wakes us.
			if !e.platform.WaitMessages() {
				e.isRunning = false
			}
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if err := e.renderer.DrawFrame(e.params); err != nil {
			core.LogError("frame draw failed, shutting down: %s", err)
			e.isRunning = false
			e.Shutdown()
			return err
		}

		e.metrics.Update(delta)
		if currentTime-e.lastFPSLog >= fpsLogIntervalSeconds {
			core.LogDebug("%.1f fps, %.2f ms/frame", e.metrics.FPS(), e.metrics.FrameTime())
			e.lastFPSLog = currentTime
		}
	}

	return e.Shutdown()
}

// RequestExit asks the run loop to exit on its next iteration. Safe to call
// from any goroutine. Teardown still happens once, on the loop's thread, so
// no device object is destroyed while a frame is mid-flight.
func (e *Engine) RequestExit() {
	e.stopRequested.Store(true)
	e.platform.RequestClose()
}

func (e *Engine) Shutdown() error {
	var err error
	e.shutdownOnce.Do(func() {
		core.LogInfo("Shutting down...")
		e.isRunning = false

		if e.configWatcher != nil {
			e.configWatcher.Close()
			e.configWatcher = nil
		}
		if e.renderer != nil {
			err = e.renderer.Shutdown()
		}
		e.dispatcher.Shutdown()
		e.platform.Shutdown()
	})
	return err
}

// applyConfigUpdates picks up a pending config reload, if any. Only settings
// that can change at runtime are applied; window geometry and the shader
// directory need a restart.
func (e *Engine) applyConfigUpdates() {
	if e.configWatcher == nil {
		return
	}
	select {
	case config := <-e.configWatcher.Updates():
		if config.LogLevel != e.config.LogLevel {
			core.LogSetLevel(config.LogLevel)
		}
		e.iterationStep = config.IterationStep
		e.config = config
		core.LogInfo("Config reloaded from %s.", e.configPath)
	default:
	}
}

func (e *Engine) onQuit(context core.EventContext) bool {
	e.isRunning = false
	return true
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return false
	}

	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		e.dispatcher.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	case core.KEY_1, core.KEY_2, core.KEY_3, core.KEY_4, core.KEY_5:
		kind := renderer.Mandelbrot + renderer.FractalKind(ke.KeyCode-core.KEY_1)
		if err := e.params.SetFractalKind(kind); err == nil {
			core.LogInfo("Fractal: %s", kind)
		}
	case core.KEY_P:
		next := e.params.Palette.Next()
		if err := e.params.SetPaletteKind(next); err == nil {
			core.LogInfo("Palette: %s", next)
		}
	case core.KEY_R:
		e.params.ResetView()
		e.panX, e.panY = 0, 0
		e.zoomLevel = 1.0
		core.LogInfo("View reset.")
	case core.KEY_EQUAL:
		e.adjustIterations(e.iterationStep)
	case core.KEY_MINUS:
		e.adjustIterations(-e.iterationStep)
	default:
		return false
	}
	return true
}

func (e *Engine) adjustIterations(delta int32) {
	n := math.Clamp(e.params.MaxIterations+delta, minKeyIterations, maxKeyIterations)
	if err := e.params.SetMaxIterations(n); err == nil {
		core.LogInfo("Max iterations: %d", n)
	}
}

// onMouseMoved receives drag deltas in window pixels and converts them into
// complex-plane panning, scaled so the view tracks the cursor at any zoom.
func (e *Engine) onMouseMoved(context core.EventContext) bool {
	me, ok := context.Data.(*core.MouseEvent)
	if !ok || e.width == 0 || e.height == 0 {
		return false
	}

	zoom := e.params.Zoom()
	e.panX += me.PosX * 2.0 / (float64(e.width) * zoom)
	e.panY -= me.PosY * 2.0 / (float64(e.height) * zoom)
	e.params.SetPan(e.panX, e.panY)
	return true
}

func (e *Engine) onMouseWheel(context core.EventContext) bool {
	we, ok := context.Data.(*core.WheelEvent)
	if !ok {
		return false
	}

	e.zoomLevel *= stdmath.Pow(zoomStepFactor, we.DeltaY)
	e.params.SetZoom(e.zoomLevel)
	return true
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		return false
	}

	if se.WindowWidth == 0 || se.WindowHeight == 0 {
		core.LogDebug("Window minimized, suspending.")
		e.isSuspended = true
		return false
	}

	if e.isSuspended {
		core.LogDebug("Window restored, resuming.")
		e.isSuspended = false
	}
	e.width = se.WindowWidth
	e.height = se.WindowHeight
	if e.renderer != nil {
		e.renderer.OnResize(se.WindowWidth, se.WindowHeight)
	}
	return false
}
