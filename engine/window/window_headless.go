package window

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// headlessPlatform has no surface. Its loop runs until closed or until the frame limit is reached,
// and input is injected through Inject.
type headlessPlatform struct {
	parent *engineWindow
	frames int
	open   bool
	events chan func()
}

func newHeadlessPlatform(w *engineWindow) *headlessPlatform {
	return &headlessPlatform{parent: w, open: true, events: make(chan func(), 64)}
}

func (p *headlessPlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (p *headlessPlatform) running() bool {
	return p.open
}

// drain runs every queued event.
func (p *headlessPlatform) drain() {
	for {
		select {
		case ev := <-p.events:
			ev()
		default:
			return
		}
	}
}

func (p *headlessPlatform) poll() bool {
	p.drain()
	if !p.open {
		return false
	}
	if limit := p.parent.frameLimit; limit > 0 {
		if p.frames >= limit {
			p.open = false
			return false
		}
		p.frames++
	}
	return true
}

func (p *headlessPlatform) close() error {
	p.open = false
	return nil
}

// Injector feeds synthetic input into a headless window. Events are queued and delivered on the
// next message loop iteration or by Flush.
type Injector interface {
	// Resize delivers a framebuffer resize.
	Resize(width, height int)

	// KeyDown delivers a key press.
	KeyDown(keyCode uint32)

	// KeyUp delivers a key release.
	KeyUp(keyCode uint32)

	// Scroll delivers a scroll wheel delta.
	Scroll(delta float32)

	// Flush delivers all queued events now.
	Flush()
}

type injector struct {
	w *engineWindow
	p *headlessPlatform
}

// Inject returns an Injector for a headless window.
//
// Parameters:
//   - w: a window created with WithHeadless
//
// Returns:
//   - Injector: the injector
//   - bool: false if w is not a headless window
func Inject(w Window) (Injector, bool) {
	ew, ok := w.(*engineWindow)
	if !ok {
		return nil, false
	}
	p, ok := ew.platform.(*headlessPlatform)
	if !ok {
		return nil, false
	}
	return &injector{w: ew, p: p}, true
}

func (i *injector) post(ev func()) {
	select {
	case i.p.events <- ev:
	default:
		// Queue full: deliver synchronously rather than drop.
		ev()
	}
}

func (i *injector) Resize(width, height int) {
	i.post(func() { i.w.resized(width, height) })
}

func (i *injector) KeyDown(keyCode uint32) {
	i.post(func() {
		if i.w.onKeyDown != nil {
			i.w.onKeyDown(keyCode)
		}
	})
}

func (i *injector) KeyUp(keyCode uint32) {
	i.post(func() {
		if i.w.onKeyUp != nil {
			i.w.onKeyUp(keyCode)
		}
	})
}

func (i *injector) Scroll(delta float32) {
	i.post(func() {
		if i.w.onScroll != nil {
			i.w.onScroll(delta)
		}
	})
}

func (i *injector) Flush() {
	i.p.drain()
}
