// Package app wires the depth capture pipeline into one owned context: the observer captures
// depth into the registry once at startup, the composite stage averages the captures onto the
// roof and the viewer (or the observer) draws the final frame.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/capture"
	"github.com/Carmen-Shannon/oxy-depth/engine/composite"
	"github.com/Carmen-Shannon/oxy-depth/engine/config"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
	"github.com/Carmen-Shannon/oxy-depth/engine/panel"
	"github.com/Carmen-Shannon/oxy-depth/engine/registry"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
	"github.com/Carmen-Shannon/oxy-depth/engine/window"
)

// State is the lifecycle state of a Context.
type State int

const (
	// StateReady means the captures are in the registry and frames can be drawn.
	StateReady State = iota
	// StateDisabled is terminal: the device cannot sample depth textures, so no frame is ever drawn.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Surface names of the reference scene.
const (
	RoofSurface     = "roof"
	ObstacleSurface = "obstacle"
	MarkerSurface   = "light_marker"
)

// DisabledMessage is shown when the device lacks depth texture support.
const DisabledMessage = "This device does not support depth textures. Depth capture is disabled."

// ErrDisabled is returned by operations that need the capture pipeline while the context is disabled.
var ErrDisabled = errors.New("app: depth capture disabled")

type appContext struct {
	logger *slog.Logger
	cfg    config.Config

	state   State
	message string

	renderer renderer.Renderer
	scene    scene.Scene
	viewer   camera.Camera
	light    light.Light
	capturer capture.Capturer
	registry registry.Registry
	stage    composite.Stage
	panel    panel.Panel

	rendererOptions []renderer.RendererBuilderOption

	viewerActive bool
	lightVersion uint64
	frames       uint64
}

// Context owns every part of the pipeline. It is not safe for concurrent use; the engine
// loop is its single owner.
type Context interface {
	// State returns the lifecycle state.
	State() State

	// Message returns the user-facing reason for StateDisabled, empty otherwise.
	Message() string

	Config() config.Config
	Renderer() renderer.Renderer
	Scene() scene.Scene
	Viewer() camera.Camera
	Light() light.Light
	Capturer() capture.Capturer
	Registry() registry.Registry

	// Stage returns the composite stage, nil while disabled.
	Stage() composite.Stage

	// Panel returns the debug panel, nil unless enabled in the configuration.
	Panel() panel.Panel

	// ViewerActive reports whether the viewer draws the final frame.
	ViewerActive() bool

	// SetViewerActive selects the viewer (true) or the observer view (false) for the final frame.
	SetViewerActive(active bool)

	// ToggleViewer flips ViewerActive.
	ToggleViewer()

	// ActiveCamera returns the camera the next frame is drawn with.
	ActiveCamera() camera.Camera

	// MoveLight moves the light, its observer view and the marker.
	//
	// Parameters:
	//   - p: the new world-space position
	MoveLight(p common.Vec3)

	// HandleKey routes a key press to the panel, or handles C (toggle viewer) and R (recapture)
	// when there is no panel.
	//
	// Parameters:
	//   - keyCode: the pressed key
	//
	// Returns:
	//   - bool: true if the key was handled
	HandleKey(keyCode uint32) bool

	// Frame applies pending panel updates, recaptures if configured and the light moved, draws
	// the final frame with the active camera and then updates the viewer controls.
	//
	// Returns:
	//   - error: a render or capture error; nil and no work while disabled
	Frame() error

	// Frames returns the number of frames drawn.
	Frames() uint64

	// Resize updates the viewer aspect and the frame size. The capture resolution is unchanged.
	//
	// Parameters:
	//   - width, height: the new framebuffer size
	Resize(width, height int)

	// Recapture captures every registry entry again in place and refreshes the decode constants.
	//
	// Returns:
	//   - error: ErrDisabled or a capture error
	Recapture() error

	// Rebuild captures count textures into a new registry and builds a new composite stage for it.
	//
	// Parameters:
	//   - count: the new texture count N
	//
	// Returns:
	//   - error: ErrDisabled, composite.ErrInvalidCount or a capture error
	Rebuild(count int) error

	// Close releases the panel watcher, every snapshot, the capture target and the renderer.
	Close() error
}

var _ Context = &appContext{}

// NewContext builds the reference scene from cfg, checks the depth texture capability,
// allocates the capture target, captures N textures and builds the composite stage.
// A missing capability is not an error: the context is returned in StateDisabled.
//
// Parameters:
//   - cfg: the pipeline configuration
//   - win: the window the renderer presents into
//   - options: functional options
//
// Returns:
//   - Context: the context
//   - error: a configuration, capture or stage error
func NewContext(cfg config.Config, win window.Window, options ...ContextBuilderOption) (_ Context, err error) {
	c := &appContext{
		logger:       slog.Default(),
		cfg:          cfg,
		viewerActive: cfg.ViewerActive,
	}
	for _, opt := range options {
		opt(c)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Validate has already accepted every enumeration.
	backend, _ := cfg.BackendType()
	kind, _ := cfg.Light()
	projection, _ := cfg.Projection()
	background, _ := cfg.Background()
	typ, _ := cfg.Type()

	rendererOptions := append([]renderer.RendererBuilderOption{
		renderer.WithLogger(c.logger),
		renderer.WithWorkers(cfg.SoftwareWorkers),
		renderer.WithDepthType(typ),
	}, c.rendererOptions...)
	c.renderer = renderer.NewRenderer(backend, win, rendererOptions...)
	defer func() {
		if err != nil {
			err = errors.Join(err, c.Close())
		}
	}()

	c.light = light.NewLight(kind,
		light.WithPosition(common.Vec3FromArray(cfg.LightPosition)),
		light.WithTarget(common.V3(0, 0, 5)),
		light.WithObserverProjection(projection),
		light.WithObserverBounds(cfg.ObserverBounds),
		light.WithObserverClip(cfg.ObserverNear, cfg.ObserverFar),
		light.WithObserverFov(common.DegToRad(cfg.ObserverFov)),
	)
	c.lightVersion = c.light.Version()

	s, err := buildScene(background, c.light)
	if err != nil {
		return nil, err
	}
	c.scene = s

	ctrl := camera.NewCameraController(
		camera.WithPosition(common.Vec3FromArray(cfg.ViewerPosition)),
		camera.WithTarget(common.V3(0, 0, 0)),
		camera.WithDamping(cfg.ViewerDamping),
	)
	c.viewer = camera.NewCamera(
		camera.WithName("viewer"),
		camera.WithFov(common.DegToRad(cfg.ViewerFov)),
		camera.WithAspect(float32(win.Width())/float32(win.Height())),
		camera.WithNear(cfg.ViewerNear),
		camera.WithFar(cfg.ViewerFar),
		camera.WithController(ctrl),
	)

	if !c.renderer.SupportsDepthTexture() {
		c.disable(renderer.ErrDepthTextureUnsupported)
		return c, nil
	}

	c.capturer = capture.NewCapturer(c.renderer, capture.WithLogger(c.logger))
	format, _ := cfg.Format()
	width, height := cfg.CaptureSize(win.Width(), win.Height())
	if _, err = c.capturer.Allocate(width, height, format, typ); err != nil {
		if errors.Is(err, renderer.ErrDepthTextureUnsupported) {
			c.disable(err)
			return c, nil
		}
		return nil, fmt.Errorf("allocate capture target: %w", err)
	}

	if err = c.build(cfg.CaptureCount); err != nil {
		return nil, err
	}

	if cfg.EnableDebugPanel {
		if err = c.openPanel(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// buildScene creates the roof, the obstacle and the light marker.
func buildScene(background common.Color, l light.Light) (scene.Scene, error) {
	s := scene.NewScene("depth_composite",
		scene.WithBackground(background),
		scene.WithLight(l),
	)

	roof := scene.NewSurface(RoofSurface, scene.NewPlaneMesh(10, 10))
	roof.Material = scene.MaterialComposite
	roof.DoubleSided = true

	obstacle := scene.NewSurface(ObstacleSurface, scene.NewPlaneMesh(5, 5))
	obstacle.Position = common.V3(0, 0, 5)
	obstacle.DoubleSided = true

	surfaces := []*scene.Surface{roof, obstacle}
	if r := l.MarkerRadius(); r > 0 {
		marker := scene.NewSurface(MarkerSurface, scene.NewSphereMesh(r, 32, 32))
		marker.Position = l.Position()
		marker.DoubleSided = true
		// The marker sits on the observer's near plane.
		marker.CastsDepth = false
		surfaces = append(surfaces, marker)
	}

	for _, surf := range surfaces {
		if err := s.Add(surf); err != nil {
			return nil, fmt.Errorf("build scene: %w", err)
		}
	}
	return s, nil
}

func (c *appContext) disable(reason error) {
	c.state = StateDisabled
	c.message = DisabledMessage
	c.logger.Error("depth capture disabled", "error", reason)
}

func (c *appContext) openPanel() error {
	c.panel = panel.NewPanel(
		panel.WithLogger(c.logger),
		panel.WithInitialState(c.viewerActive, c.light.Position()),
	)
	if c.cfg.PanelFile == "" {
		return nil
	}
	path, err := c.cfg.PanelPath()
	if err != nil {
		return fmt.Errorf("panel file: %w", err)
	}
	if err := c.panel.Watch(path); err != nil {
		c.logger.Warn("panel file not watched", "path", path, "error", err)
	}
	return nil
}

// build captures count textures into a fresh registry and builds the stage over it.
func (c *appContext) build(count int) error {
	if count < 1 {
		return fmt.Errorf("rebuild: %w: %d", composite.ErrInvalidCount, count)
	}
	observer := c.light.ObserverView()
	reg := registry.NewRegistry(count)
	for range count {
		tex, err := c.capturer.CaptureDepth(c.scene, observer)
		if err != nil {
			return fmt.Errorf("capture depth: %w", err)
		}
		if err := reg.Append(tex); err != nil {
			return err
		}
	}

	st, err := composite.NewStage(reg, observer, count, composite.WithLogger(c.logger))
	if err != nil {
		return err
	}
	c.registry = reg
	c.stage = st
	c.renderer.SetCompositeProgram(st)
	c.cfg.CaptureCount = count
	return nil
}

func (c *appContext) State() State {
	return c.state
}

func (c *appContext) Message() string {
	return c.message
}

func (c *appContext) Config() config.Config {
	return c.cfg
}

func (c *appContext) Renderer() renderer.Renderer {
	return c.renderer
}

func (c *appContext) Scene() scene.Scene {
	return c.scene
}

func (c *appContext) Viewer() camera.Camera {
	return c.viewer
}

func (c *appContext) Light() light.Light {
	return c.light
}

func (c *appContext) Capturer() capture.Capturer {
	return c.capturer
}

func (c *appContext) Registry() registry.Registry {
	return c.registry
}

func (c *appContext) Stage() composite.Stage {
	return c.stage
}

func (c *appContext) Panel() panel.Panel {
	return c.panel
}

func (c *appContext) ViewerActive() bool {
	return c.viewerActive
}

func (c *appContext) SetViewerActive(active bool) {
	if c.viewerActive == active {
		return
	}
	c.viewerActive = active
	if c.panel != nil {
		c.panel.Post(panel.Update{ViewerActive: &active})
	}
	c.logger.Debug("active camera changed", "camera", c.ActiveCamera().Name())
}

func (c *appContext) ToggleViewer() {
	c.SetViewerActive(!c.viewerActive)
}

func (c *appContext) ActiveCamera() camera.Camera {
	if c.viewerActive {
		return c.viewer
	}
	return c.light.ObserverView()
}

func (c *appContext) MoveLight(p common.Vec3) {
	c.light.SetPosition(p)
	if marker := c.scene.Surface(MarkerSurface); marker != nil {
		marker.Position = p
	}
}

func (c *appContext) HandleKey(keyCode uint32) bool {
	if c.panel != nil && c.panel.HandleKey(keyCode) {
		return true
	}
	switch keyCode {
	case common.KeyC:
		c.ToggleViewer()
		return true
	case common.KeyR:
		if err := c.Recapture(); err != nil {
			c.logger.Error("recapture failed", "error", err)
		}
		return true
	}
	return false
}

func (c *appContext) Frame() error {
	if c.state == StateDisabled {
		return nil
	}

	if c.panel != nil {
		changes := c.panel.Drain()
		if changes.ViewerChanged {
			c.viewerActive = c.panel.ViewerActive()
		}
		if changes.LightMoved {
			c.MoveLight(c.panel.Light())
		}
	}

	if v := c.light.Version(); v != c.lightVersion {
		c.lightVersion = v
		if c.cfg.RecaptureOnLightMove {
			if err := c.Recapture(); err != nil {
				return err
			}
		}
	}

	if err := c.renderer.Render(c.scene, c.ActiveCamera()); err != nil {
		return fmt.Errorf("frame %d: %w", c.frames, err)
	}
	c.frames++

	if ctrl := c.viewer.Controller(); ctrl != nil && ctrl.Update() {
		c.viewer.Update()
	}
	return nil
}

func (c *appContext) Frames() uint64 {
	return c.frames
}

func (c *appContext) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.viewer.SetAspect(float32(width) / float32(height))
	c.renderer.Resize(width, height)
	c.logger.Info("resized", "width", width, "height", height)
}

func (c *appContext) Recapture() error {
	if c.state == StateDisabled {
		return ErrDisabled
	}
	observer := c.light.ObserverView()
	for i := range c.registry.Len() {
		tex, err := c.capturer.CaptureDepth(c.scene, observer)
		if err != nil {
			return fmt.Errorf("recapture %d: %w", i, err)
		}
		old, err := c.registry.Replace(i, tex)
		if err != nil {
			return err
		}
		if err := c.capturer.ReleaseSnapshot(old); err != nil {
			return err
		}
	}
	c.stage.Refresh()
	c.logger.Info("recaptured", "count", c.registry.Len(), "light", c.light.Position())
	return nil
}

func (c *appContext) Rebuild(count int) error {
	if c.state == StateDisabled {
		return ErrDisabled
	}
	previous := c.registry.Textures()
	previous = append(previous[:0:0], previous...)
	if err := c.build(count); err != nil {
		return err
	}
	var errs []error
	for _, tex := range previous {
		errs = append(errs, c.capturer.ReleaseSnapshot(tex))
	}
	return errors.Join(errs...)
}

func (c *appContext) Close() error {
	var errs []error
	if c.panel != nil {
		errs = append(errs, c.panel.Close())
	}
	if c.capturer != nil {
		errs = append(errs, c.capturer.ReleaseSnapshots(), c.capturer.Release())
	}
	c.renderer.Release()
	return errors.Join(errs...)
}
