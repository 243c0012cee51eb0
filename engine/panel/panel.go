package panel

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// LightLimit bounds every light slider to [-LightLimit, LightLimit].
const LightLimit float32 = 10

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("panel: closed")

// Update is one change posted to the panel. Nil fields are left alone.
type Update struct {
	ViewerActive *bool
	ToggleViewer bool
	Light        *common.Vec3
	LightDelta   common.Vec3
}

// Changes reports what Drain changed.
type Changes struct {
	ViewerChanged bool
	LightMoved    bool
}

// Any reports whether anything changed.
func (c Changes) Any() bool {
	return c.ViewerChanged || c.LightMoved
}

// fileState is the TOML layout of the watched panel file.
type fileState struct {
	ViewerActive *bool       `toml:"viewer_active"`
	Light        *[3]float32 `toml:"light"`
}

type panel struct {
	mu     *sync.Mutex
	logger *slog.Logger

	viewerActive bool
	light        common.Vec3
	step         float32

	updates chan Update

	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// Panel is the optional debug control surface: a viewer toggle and clamped light sliders.
// Key bindings and a watched TOML file post updates from any goroutine; Drain applies them
// on the main loop.
type Panel interface {
	// ViewerActive reports whether the final frame is drawn from the viewer.
	ViewerActive() bool

	// Light returns the light slider values, each within [-LightLimit, LightLimit].
	Light() common.Vec3

	// Post queues an update. Updates beyond the queue capacity are dropped with a warning.
	//
	// Parameters:
	//   - u: the update
	Post(u Update)

	// HandleKey maps a key press to an update: C toggles the viewer, the arrow keys move the
	// light on x and y and PageUp/PageDown move it on z.
	//
	// Parameters:
	//   - keyCode: the pressed key, see common/key_codes.go
	//
	// Returns:
	//   - bool: true if the key is bound
	HandleKey(keyCode uint32) bool

	// Watch starts reloading the panel file on every write. It returns immediately.
	//
	// Parameters:
	//   - path: the TOML file to watch; it is read once right away if it exists
	//
	// Returns:
	//   - error: a watcher error or ErrClosed
	Watch(path string) error

	// Drain applies every queued update.
	//
	// Returns:
	//   - Changes: what changed
	Drain() Changes

	// Close stops the watcher. Closing twice is a no-op.
	Close() error
}

var _ Panel = &panel{}

// NewPanel creates a panel with the viewer active and the light at the origin.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Panel: the panel
func NewPanel(options ...PanelBuilderOption) Panel {
	p := &panel{
		mu:           &sync.Mutex{},
		logger:       slog.Default(),
		viewerActive: true,
		step:         0.5,
		updates:      make(chan Update, 64),
	}
	for _, opt := range options {
		opt(p)
	}
	p.light = clampLight(p.light)
	return p
}

func clampLight(v common.Vec3) common.Vec3 {
	return common.V3(
		common.Clamp(v.X, -LightLimit, LightLimit),
		common.Clamp(v.Y, -LightLimit, LightLimit),
		common.Clamp(v.Z, -LightLimit, LightLimit),
	)
}

func (p *panel) ViewerActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewerActive
}

func (p *panel) Light() common.Vec3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.light
}

func (p *panel) Post(u Update) {
	select {
	case p.updates <- u:
	default:
		p.logger.Warn("panel update dropped, queue full")
	}
}

func (p *panel) HandleKey(keyCode uint32) bool {
	var u Update
	switch keyCode {
	case common.KeyC:
		u.ToggleViewer = true
	case common.KeyLeft:
		u.LightDelta = common.V3(-p.step, 0, 0)
	case common.KeyRight:
		u.LightDelta = common.V3(p.step, 0, 0)
	case common.KeyDown:
		u.LightDelta = common.V3(0, -p.step, 0)
	case common.KeyUp:
		u.LightDelta = common.V3(0, p.step, 0)
	case common.KeyPageDown:
		u.LightDelta = common.V3(0, 0, -p.step)
	case common.KeyPageUp:
		u.LightDelta = common.V3(0, 0, p.step)
	default:
		return false
	}
	p.Post(u)
	return true
}

func (p *panel) Drain() Changes {
	p.mu.Lock()
	defer p.mu.Unlock()

	var changes Changes
	for {
		select {
		case u := <-p.updates:
			viewer := p.viewerActive
			if u.ViewerActive != nil {
				p.viewerActive = *u.ViewerActive
			}
			if u.ToggleViewer {
				p.viewerActive = !p.viewerActive
			}
			changes.ViewerChanged = changes.ViewerChanged || viewer != p.viewerActive

			light := p.light
			if u.Light != nil {
				p.light = *u.Light
			}
			p.light = clampLight(p.light.Add(u.LightDelta))
			changes.LightMoved = changes.LightMoved || light != p.light
		default:
			return changes
		}
	}
}

func (p *panel) Watch(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.watcher != nil {
		return fmt.Errorf("panel: already watching %s", p.path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("panel: create watcher: %w", err)
	}
	// Editors often replace the file instead of writing it, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("panel: watch %s: %w", filepath.Dir(abs), err)
	}
	p.path = abs
	p.watcher = w
	p.done = make(chan struct{})

	if _, err := os.Stat(abs); err == nil {
		p.reload()
	}

	p.wg.Add(1)
	go p.watch(w, p.done)
	p.logger.Info("panel watching file", "path", abs)
	return nil
}

func (p *panel) watch(w *fsnotify.Watcher, done chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != p.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				p.reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.logger.Warn("panel watcher error", "error", err)
		}
	}
}

// reload reads the panel file and posts its values.
func (p *panel) reload() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Warn("panel file unreadable", "path", p.path, "error", err)
		return
	}
	var fs fileState
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fs); err != nil {
		p.logger.Warn("panel file rejected", "path", p.path, "error", err)
		return
	}

	u := Update{ViewerActive: fs.ViewerActive}
	if fs.Light != nil {
		v := common.Vec3FromArray(*fs.Light)
		u.Light = &v
	}
	p.Post(u)
}

func (p *panel) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	w, done := p.watcher, p.done
	p.mu.Unlock()

	if w == nil {
		return nil
	}
	close(done)
	err := w.Close()
	p.wg.Wait()
	return err
}
