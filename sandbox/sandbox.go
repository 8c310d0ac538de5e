// Package sandbox runs a vertex/fragment shader pair over a full-screen quad.
//
// A Sandbox owns one rendering context on one canvas. It negotiates the API
// version (version 2 first, then version 1), compiles shaders, feeds them
// typed uniforms plus the built-ins u_resolution, u_time, u_delta, u_mouse
// and u_frame, and drives an animation clock from the host's frame
// scheduler. Shader errors never stop rendering: they are reported through
// the error callback and the last good program stays active.
//
// All methods must be called from the host's UI goroutine.
package sandbox

import (
	"log/slog"
	"math"

	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
)

// Sandbox is the public handle. Most methods return the receiver so calls
// can be chained:
//
//	sb.SetUniform("u_color", [3]float32{1, 0, 0}).Time(1.5).Render()
type Sandbox struct {
	canvas graphics.Canvas
	host   graphics.Host
	cfg    config
	engine *Engine
	log    *slog.Logger

	listeners  []func()
	autoPaused bool
	destroyed  bool
}

// New creates a sandbox on canvas. Context failures are reported through the
// error callback and returned; there is no sandbox without a context.
func New(canvas graphics.Canvas, host graphics.Host, opts ...Option) (*Sandbox, error) {
	s := &Sandbox{
		canvas: canvas,
		host:   host,
		cfg:    resolveOptions(opts),
	}
	s.log = s.cfg.logger
	s.engine = newEngine(canvas, host, &s.cfg)
	if err := s.engine.Setup(); err != nil {
		return nil, err
	}

	s.setupListeners()
	s.setViewport()

	s.cfg.onLoad()
	if s.cfg.autoplay {
		s.Play()
	}
	return s, nil
}

func (s *Sandbox) setupListeners() {
	s.listeners = append(s.listeners,
		s.host.Listen(graphics.EventResize, func(graphics.Event) { s.setViewport() }),
		s.canvas.Listen(graphics.EventResize, func(graphics.Event) { s.setViewport() }),
		s.host.Listen(graphics.EventScroll, func(graphics.Event) { s.checkVisibility() }),
		s.host.Listen(graphics.EventVisibilityChange, func(graphics.Event) { s.checkVisibility() }),
		s.host.Listen(graphics.EventMouseMove, func(ev graphics.Event) { s.setMouse(ev.X, ev.Y) }),
		s.host.Listen(graphics.EventTouchMove, func(ev graphics.Event) {
			if ev.Touches > 0 {
				s.setMouse(ev.X, ev.Y)
			}
		}),
	)
}

func (s *Sandbox) destroyListeners() {
	for _, remove := range s.listeners {
		remove()
	}
	s.listeners = nil
}

// pixelRatio resolves the configured or automatic device pixel ratio.
func (s *Sandbox) pixelRatio() float64 {
	if s.cfg.dpr > 0 {
		return s.cfg.dpr
	}
	dpr := s.host.DevicePixelRatio()
	if dpr <= 0 {
		dpr = 1
	}
	return math.Min(2, dpr)
}

func (s *Sandbox) setViewport() {
	dpr := s.pixelRatio()
	w, h := s.canvas.ClientSize()
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	s.engine.Viewport(
		max(1, int(math.Floor(w*dpr))),
		max(1, int(math.Floor(h*dpr))),
	)
}

func (s *Sandbox) inViewport() bool {
	if s.host.Hidden() {
		return false
	}
	r := s.canvas.BoundingRect()
	vw, vh := s.host.ViewportSize()
	return r.Bottom >= 0 && r.Right >= 0 && r.Top <= vh && r.Left <= vw
}

// checkVisibility pauses a playing sandbox that left the viewport and resumes
// it when it comes back. Sandboxes paused by the caller stay paused.
func (s *Sandbox) checkVisibility() {
	if !s.cfg.pauseWhenHidden {
		return
	}
	if s.inViewport() {
		if s.autoPaused {
			s.autoPaused = false
			s.log.Debug("sandbox: back in view, resuming")
			s.engine.Play()
		}
		return
	}
	if s.engine.Playing() {
		s.autoPaused = true
		s.log.Debug("sandbox: out of view, pausing")
		s.engine.Pause()
	}
}

func (s *Sandbox) setMouse(x, y float64) {
	r := s.canvas.BoundingRect()
	if r.Contains(x, y) {
		s.engine.SetMouse(x-r.Left, y-r.Top)
	}
}

// SetUniform sets a user uniform. Invalid values and built-in names are
// reported through the error callback.
func (s *Sandbox) SetUniform(name string, value any) *Sandbox {
	_ = s.engine.SetUniform(name, value)
	return s
}

func (s *Sandbox) SetUniforms(values map[string]any) *Sandbox {
	_ = s.engine.SetUniforms(values)
	return s
}

// Uniform returns the current value of name, built-ins included.
func (s *Sandbox) Uniform(name string) (any, bool) {
	return s.engine.Uniform(name)
}

// SetShader replaces both shaders.
func (s *Sandbox) SetShader(vertex, fragment string) *Sandbox {
	_ = s.engine.SetShader(vertex, fragment)
	return s
}

// SetFragment replaces the fragment shader and pairs it with the default
// vertex shader of the same version.
func (s *Sandbox) SetFragment(fragment string) *Sandbox {
	vertex := DefaultVertex(gpu.DetectVersion(fragment))
	_ = s.engine.SetShader(vertex, fragment)
	return s
}

// SetVertex replaces the vertex shader and keeps the active fragment shader.
func (s *Sandbox) SetVertex(vertex string) *Sandbox {
	_, fragment := s.engine.Sources()
	if fragment == "" {
		fragment = DefaultFragment(gpu.DetectVersion(vertex))
	}
	_ = s.engine.SetShader(vertex, fragment)
	return s
}

// Hook adds a render hook and returns its remover.
func (s *Sandbox) Hook(fn Hook, when When) (remove func()) {
	return s.engine.Hook(fn, when)
}

// When returns a channel receiving the first frame state that satisfies pred.
// It is closed without a value by Destroy. Do not block on it from the
// goroutine that drives rendering.
func (s *Sandbox) When(pred func(ClockState) bool) <-chan ClockState {
	return s.engine.When(pred)
}

func (s *Sandbox) Play() *Sandbox {
	s.autoPaused = false
	s.engine.Play()
	return s
}

// PlayAt sets the time to t seconds and plays.
func (s *Sandbox) PlayAt(t float64) *Sandbox {
	s.engine.SetTime(t)
	return s.Play()
}

func (s *Sandbox) Pause() *Sandbox {
	s.autoPaused = false
	s.engine.Pause()
	return s
}

// PauseAt pauses after the first frame whose time reaches t seconds.
func (s *Sandbox) PauseAt(t float64) *Sandbox {
	var remove func()
	remove = s.engine.Hook(func(state ClockState) bool {
		if state.Time < t {
			return true
		}
		remove()
		s.Pause()
		return false
	}, After)
	return s
}

func (s *Sandbox) Toggle() *Sandbox {
	if s.engine.Playing() {
		return s.Pause()
	}
	return s.Play()
}

// Time sets the clock to t seconds.
func (s *Sandbox) Time(t float64) *Sandbox {
	s.engine.SetTime(t)
	return s
}

// Render draws one frame synchronously.
func (s *Sandbox) Render() *Sandbox {
	s.engine.Render()
	return s
}

// RenderAt draws one frame as if t seconds had elapsed.
func (s *Sandbox) RenderAt(t float64) *Sandbox {
	s.engine.SetTime(t)
	s.engine.Render()
	return s
}

// Resize recomputes the drawing buffer size from the canvas size and pixel
// ratio. Hosts that do not dispatch resize events call it themselves.
func (s *Sandbox) Resize() *Sandbox {
	if !s.destroyed {
		s.setViewport()
	}
	return s
}

func (s *Sandbox) IsPlaying() bool           { return s.engine.Playing() }
func (s *Sandbox) WebGLVersion() gpu.Version { return s.engine.Version() }
func (s *Sandbox) Canvas() graphics.Canvas   { return s.canvas }
func (s *Sandbox) Engine() *Engine           { return s.engine }
func (s *Sandbox) ReadPixels() []byte        { return s.engine.ReadPixels() }

// Resolution is the drawing buffer size in pixels.
func (s *Sandbox) Resolution() (width, height int) {
	r := s.engine.Resolution()
	return int(r.X()), int(r.Y())
}

// Destroy removes every listener and releases all GPU resources. Calling it
// again does nothing.
func (s *Sandbox) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.destroyListeners()
	s.engine.Destroy()
}
