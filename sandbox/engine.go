package sandbox

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
)

// ErrDestroyed is returned by operations on a destroyed engine.
var ErrDestroyed = errors.New("sandbox: engine destroyed")

// State is the lifecycle state of an Engine.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StatePlaying
	StatePaused
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// When selects the hook registry.
type When int

const (
	Before When = iota
	After
)

// Engine owns the context and everything drawn with it.
type Engine struct {
	canvas graphics.Canvas
	host   graphics.Host
	cfg    *config
	log    *slog.Logger

	gl         gpu.Context
	ctxVersion gpu.Version
	vaos       gpu.VertexArrays

	program  *Program
	geometry *Geometry
	uniforms *Uniforms
	clock    *Clock
	before   Hooks
	after    Hooks

	vertexSource   string
	fragmentSource string

	resolution mgl32.Vec2
	mouse      mgl32.Vec2
	state      State

	waiters []*waiter
}

// waiter is an outstanding When channel.
type waiter struct {
	ch   chan ClockState
	done bool
}

func (w *waiter) resolve(s ClockState) {
	if w.done {
		return
	}
	w.done = true
	w.ch <- s
	close(w.ch)
}

func (w *waiter) abandon() {
	if !w.done {
		w.done = true
		close(w.ch)
	}
}

func newEngine(canvas graphics.Canvas, host graphics.Host, cfg *config) *Engine {
	return &Engine{
		canvas:     canvas,
		host:       host,
		cfg:        cfg,
		log:        cfg.logger,
		resolution: mgl32.Vec2{1, 1},
	}
}

// Setup creates the context, builds the quad, compiles the configured shaders
// and applies the initial uniforms. Only context failures are returned; shader
// and uniform errors are reported through the error callback.
func (e *Engine) Setup() error {
	if e.state != StateUninitialized {
		return nil
	}
	gl, err := e.initContext()
	if err != nil {
		e.cfg.onError(err)
		return err
	}
	e.gl = gl
	e.ctxVersion = gl.Version()
	e.enableExtensions()
	e.vaos = gpu.SelectVertexArrays(gl)
	e.log.Info("sandbox: rendering context created",
		"version", e.ctxVersion, "vertexArrays", e.vaos.Supported())

	e.program = NewProgram(gl, e.log)
	e.geometry = FullscreenQuad(gl, e.vaos)
	e.uniforms = NewUniforms(gl)
	e.clock = NewClock(e.host)
	e.clock.SetCallback(e.onRender)

	if fn := e.cfg.onBeforeRender; fn != nil {
		e.before.Add(Every(fn))
	}
	if fn := e.cfg.onAfterRender; fn != nil {
		e.after.Add(Every(fn))
	}

	e.state = StateReady

	if e.cfg.vertex != "" && e.cfg.fragment != "" {
		_ = e.SetShader(e.cfg.vertex, e.cfg.fragment)
	}
	_ = e.SetUniforms(e.cfg.uniforms)
	return nil
}

// initContext asks for a version 2 context, then version 1.
func (e *Engine) initContext() (gpu.Context, error) {
	attrs := graphics.ContextAttributes{
		Alpha:                 true,
		Depth:                 false,
		Stencil:               false,
		Antialias:             e.cfg.antialias,
		PreserveDrawingBuffer: e.cfg.preserveDrawingBuffer,
	}
	var failure error
	for _, v := range []gpu.Version{gpu.Version2, gpu.Version1} {
		gl, err := e.canvas.GetContext(v, attrs)
		if err != nil {
			e.log.Debug("sandbox: context request failed", "version", v, "err", err)
			if failure == nil {
				failure = fmt.Errorf("%s: %w", v, err)
			}
			continue
		}
		if gl != nil {
			return gl, nil
		}
	}
	if failure != nil {
		return nil, &ContextError{code: CodeContextCreationFailed, Err: failure}
	}
	return nil, &ContextError{code: CodeContextUnavailable}
}

func (e *Engine) enableExtensions() {
	e.gl.Extension(gpu.ExtStandardDerivatives)
	e.gl.Extension(gpu.ExtTextureFloat)
	e.gl.Extension(gpu.ExtTextureFloatLinear)
	if e.ctxVersion == gpu.Version1 {
		e.gl.Extension(gpu.ExtVertexArrayObject)
	}
}

// SetShader compiles a new program. On success it replaces the active one and
// relinks geometry and uniforms; on failure the error is reported and the
// previous program keeps rendering.
func (e *Engine) SetShader(vertex, fragment string) error {
	if !e.usable() {
		return ErrDestroyed
	}
	next := NewProgram(e.gl, e.log)
	if err := next.Compile(vertex, fragment); err != nil {
		e.cfg.onError(err)
		return err
	}

	prev := e.program
	e.program = next
	prev.Destroy()

	e.vertexSource, e.fragmentSource = vertex, fragment
	e.geometry.LinkAttributes(next)
	e.uniforms.AttachProgram(next)
	return nil
}

// SetUniform validates and stores a user uniform. Errors are also reported.
func (e *Engine) SetUniform(name string, value any) error {
	if !e.usable() {
		return ErrDestroyed
	}
	if err := e.uniforms.Set(name, value); err != nil {
		e.cfg.onError(err)
		return err
	}
	return nil
}

// SetUniforms stores every valid value and reports each invalid one.
func (e *Engine) SetUniforms(values map[string]any) error {
	if !e.usable() {
		return ErrDestroyed
	}
	err := e.uniforms.SetMany(values)
	if err != nil {
		for _, one := range unjoin(err) {
			e.cfg.onError(one)
		}
	}
	return err
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func (e *Engine) Uniform(name string) (any, bool) {
	if !e.usable() {
		return nil, false
	}
	return e.uniforms.Get(name)
}

// Hook registers fn before or after drawing and returns its remover.
func (e *Engine) Hook(fn Hook, when When) (remove func()) {
	if when == After {
		return e.after.Add(fn)
	}
	return e.before.Add(fn)
}

// When returns a channel that receives the first frame state satisfying
// pred, checked after each rendered frame. The channel is closed without a
// value if the engine is destroyed first. Frames are rendered on the UI
// goroutine, so receive on another goroutine or poll with select.
func (e *Engine) When(pred func(ClockState) bool) <-chan ClockState {
	w := &waiter{ch: make(chan ClockState, 1)}
	if e.state == StateDestroyed {
		w.abandon()
		return w.ch
	}
	e.waiters = append(e.waiters, w)
	e.after.Add(func(s ClockState) bool {
		if !pred(s) {
			return true
		}
		w.resolve(s)
		e.dropWaiter(w)
		return false
	})
	return w.ch
}

func (e *Engine) dropWaiter(w *waiter) {
	for i, o := range e.waiters {
		if o == w {
			e.waiters = append(e.waiters[:i:i], e.waiters[i+1:]...)
			return
		}
	}
}

// Play starts the clock. It does nothing while playing or after Destroy.
func (e *Engine) Play() {
	if !e.usable() || e.state == StatePlaying {
		return
	}
	e.state = StatePlaying
	e.clock.Start(e.onRender)
}

// Pause stops the clock and runs the hooks once more with the final state.
func (e *Engine) Pause() {
	if e.state != StatePlaying {
		return
	}
	e.clock.Stop()
	e.state = StatePaused

	final := e.clock.State()
	e.before.Run(final)
	e.after.Run(final)
}

// Render draws one frame with the current clock state. The playing state is
// not affected.
func (e *Engine) Render() {
	if !e.usable() {
		return
	}
	e.onRender(e.clock.State())
}

// SetTime forces the clock time.
func (e *Engine) SetTime(t float64) {
	if e.usable() {
		e.clock.SetTime(t)
	}
}

// Viewport resizes the drawing buffer and the u_resolution built-in.
func (e *Engine) Viewport(width, height int) {
	if !e.usable() {
		return
	}
	if bs, ok := e.canvas.(graphics.BufferSizer); ok {
		bs.SetBufferSize(width, height)
	}
	e.gl.Viewport(0, 0, int32(width), int32(height))
	e.resolution = mgl32.Vec2{float32(width), float32(height)}
	e.log.Debug("sandbox: viewport", "width", width, "height", height)
}

// SetMouse updates u_mouse, in CSS pixels from the canvas top-left.
func (e *Engine) SetMouse(x, y float64) {
	e.mouse = mgl32.Vec2{float32(x), float32(y)}
}

// Version is the API version of the active shaders, or of the context while
// no program is linked.
func (e *Engine) Version() gpu.Version {
	if e.program != nil && e.program.Linked() {
		return e.program.Version()
	}
	return e.ctxVersion
}

func (e *Engine) ContextVersion() gpu.Version { return e.ctxVersion }
func (e *Engine) Context() gpu.Context        { return e.gl }
func (e *Engine) State() State                { return e.state }
func (e *Engine) Playing() bool               { return e.state == StatePlaying }
func (e *Engine) ClockState() ClockState      { return e.clock.State() }
func (e *Engine) Resolution() mgl32.Vec2      { return e.resolution }
func (e *Engine) Mouse() mgl32.Vec2           { return e.mouse }

// Sources returns the shader pair of the active program.
func (e *Engine) Sources() (vertex, fragment string) {
	return e.vertexSource, e.fragmentSource
}

// ReadPixels returns the RGBA contents of the drawing buffer, bottom row
// first.
func (e *Engine) ReadPixels() []byte {
	if !e.usable() {
		return nil
	}
	return e.gl.ReadPixels(0, 0, int32(e.resolution.X()), int32(e.resolution.Y()))
}

// Destroy stops the clock without running hooks, closes pending When
// channels and releases every GPU object. Further calls do nothing.
func (e *Engine) Destroy() {
	if e.state == StateDestroyed {
		return
	}
	for _, w := range e.waiters {
		w.abandon()
	}
	e.waiters = nil
	if e.state != StateUninitialized {
		e.clock.Destroy()
		e.before.Destroy()
		e.after.Destroy()
		e.geometry.Destroy()
		e.program.Destroy()
		e.uniforms.Destroy()
		e.log.Info("sandbox: destroyed")
	}
	e.state = StateDestroyed
}

func (e *Engine) usable() bool {
	return e.state != StateUninitialized && e.state != StateDestroyed
}

// onRender is the fixed per-frame sequence.
func (e *Engine) onRender(state ClockState) {
	e.before.Run(state)

	e.gl.ClearColor(0, 0, 0, 0)
	e.gl.Clear()

	e.program.Use()
	e.uniforms.UploadBuiltIns(state, e.resolution, e.mouse)
	e.uniforms.UploadAll()

	if e.program.Linked() {
		e.geometry.Bind()
		e.geometry.Draw()
		e.geometry.Unbind()
	}

	e.after.Run(state)
}
