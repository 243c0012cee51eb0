package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/app"
	"github.com/Carmen-Shannon/oxy-depth/engine/profiler"
	"github.com/Carmen-Shannon/oxy-depth/engine/window"
)

// ErrDisabled is returned by Run when the context cannot capture depth.
var ErrDisabled = errors.New("engine: depth capture disabled")

// engine implements the Engine interface.
// The window's message loop drives every frame on the calling goroutine.
type engine struct {
	logger *slog.Logger

	window  window.Window
	context app.Context

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameCallback    func(deltaTime float32)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	dragging   bool
	lastMouseX int32
	lastMouseY int32

	lastFrame time.Time
	err       error
}

// Engine runs an app.Context inside a window's message loop. Each iteration draws one frame,
// then runs the frame callback and the profiler.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Context returns the pipeline the engine drives.
	Context() app.Context

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetFrameCallback registers the function called after each frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetFrameCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run blocks until the window closes or a frame fails. A disabled context is reported and
	// no frame is scheduled.
	//
	// Returns:
	//   - error: ErrDisabled, or the first frame error
	Run() error

	// Quit closes the window, ending Run after the current frame.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine around a window and the context drawing into it, and routes
// the window's input to the context.
//
// Parameters:
//   - win: the window whose message loop drives the frames
//   - ctx: the pipeline to draw
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(win window.Window, ctx app.Context, options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:  slog.Default(),
		window:  win,
		context: ctx,
	}
	for _, opt := range options {
		opt(e)
	}
	e.profiler = profiler.NewProfiler(e.logger, time.Second)

	win.SetResizeCallback(ctx.Resize)
	win.SetKeyDownCallback(e.handleKey)
	win.SetScrollCallback(func(delta float32) {
		if ctrl := ctx.Viewer().Controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})
	win.SetMiddleMouseDownCallback(func(x, y int32) {
		e.dragging, e.lastMouseX, e.lastMouseY = true, x, y
	})
	win.SetMiddleMouseUpCallback(func(x, y int32) {
		e.dragging = false
	})
	win.SetMouseMoveCallback(e.handleMouseMove)
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Context() app.Context {
	return e.context
}

func (e *engine) handleKey(keyCode uint32) {
	if keyCode == common.KeyEsc {
		e.Quit()
		return
	}
	e.context.HandleKey(keyCode)
}

// handleMouseMove orbits the viewer while the middle button is held.
func (e *engine) handleMouseMove(x, y int32) {
	if !e.dragging {
		return
	}
	ctrl := e.context.Viewer().Controller()
	if ctrl == nil {
		return
	}
	dx, dy := float32(x-e.lastMouseX), float32(y-e.lastMouseY)
	e.lastMouseX, e.lastMouseY = x, y
	s := ctrl.MouseSensitivity()
	ctrl.Rotate(-dx*s, dy*s)
}

func (e *engine) Run() error {
	if e.context.State() == app.StateDisabled {
		e.logger.Error("not starting frame loop", "reason", e.context.Message())
		return ErrDisabled
	}

	e.err = nil
	e.lastFrame = time.Now()
	e.window.SetUpdateCallback(e.frame)
	e.window.ProcessMessages()
	e.window.SetUpdateCallback(nil)
	return e.err
}

// frame draws one frame. A failed frame stops the loop.
func (e *engine) frame() {
	start := time.Now()
	dt := float32(start.Sub(e.lastFrame).Seconds())
	e.lastFrame = start

	if err := e.context.Frame(); err != nil {
		e.err = fmt.Errorf("engine: %w", err)
		e.logger.Error("frame failed", "error", err)
		e.Quit()
		return
	}

	if e.frameCallback != nil {
		e.frameCallback(dt)
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) Quit() {
	if err := e.window.Close(); err != nil {
		e.logger.Debug("window close", "error", err)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetFrameCallback(callback func(deltaTime float32)) {
	e.frameCallback = callback
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
