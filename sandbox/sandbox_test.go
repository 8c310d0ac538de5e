package sandbox

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/gpu/gputest"
	"github.com/richinsley/goshadersandbox/graphics"
	"github.com/richinsley/goshadersandbox/graphics/graphicstest"
)

type fixture struct {
	gl     *gputest.Context
	canvas *graphicstest.Canvas
	host   *graphicstest.Host
	errs   []error
	sb     *Sandbox
}

func newFixture(t *testing.T, gl *gputest.Context, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		gl:     gl,
		canvas: graphicstest.NewCanvas(200, 100, gl),
		host:   graphicstest.NewHost(800, 600),
	}
	opts = append([]Option{WithOnError(func(err error) { f.errs = append(f.errs, err) })}, opts...)
	sb, err := New(f.canvas, f.host, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.sb = sb
	return f
}

func lastValues(t *testing.T, gl *gputest.Context, name string) []float32 {
	t.Helper()
	up, ok := gl.LastUpload(name)
	if !ok {
		t.Fatalf("%s was never uploaded", name)
	}
	return up.Values
}

const timeFragment = `precision mediump float;
uniform float u_time;
uniform vec2 u_resolution;
uniform vec2 u_mouse;
uniform float u_frame;
void main() { gl_FragColor = vec4(u_time); }
`

func TestNewPrefersVersion2(t *testing.T) {
	v1, v2 := gputest.New(gpu.Version1), gputest.New(gpu.Version2)
	canvas := graphicstest.NewCanvas(10, 10, v1, v2)
	sb, err := New(canvas, graphicstest.NewHost(100, 100), WithAutoplay(false), WithAntialias(false))
	if err != nil {
		t.Fatal(err)
	}
	if sb.Engine().ContextVersion() != gpu.Version2 {
		t.Errorf("context version = %v, want webgl2", sb.Engine().ContextVersion())
	}
	if !reflect.DeepEqual(canvas.Requested, []gpu.Version{gpu.Version2}) {
		t.Errorf("requested = %v", canvas.Requested)
	}
	want := graphics.ContextAttributes{Alpha: true}
	if canvas.Attrs[0] != want {
		t.Errorf("attrs = %+v, want %+v", canvas.Attrs[0], want)
	}
	if len(v1.Calls) != 0 {
		t.Error("version 1 context was used")
	}
}

func TestNewFallsBackToVersion1(t *testing.T) {
	gl := gputest.New(gpu.Version1, gpu.ExtVertexArrayObject)
	f := newFixture(t, gl, WithAutoplay(false))

	if !reflect.DeepEqual(f.canvas.Requested, []gpu.Version{gpu.Version2, gpu.Version1}) {
		t.Errorf("requested = %v", f.canvas.Requested)
	}
	if f.sb.WebGLVersion() != gpu.Version1 {
		t.Errorf("WebGLVersion() = %v", f.sb.WebGLVersion())
	}
	if !f.sb.Engine().vaos.Supported() {
		t.Error("vertex arrays not picked up from the extension")
	}
	if !f.canvas.Attrs[0].Antialias || f.canvas.Attrs[0].PreserveDrawingBuffer {
		t.Errorf("default attrs = %+v", f.canvas.Attrs[0])
	}
}

func TestNewContextUnavailable(t *testing.T) {
	var reported []error
	sb, err := New(graphicstest.NewCanvas(10, 10), graphicstest.NewHost(10, 10),
		WithOnError(func(err error) { reported = append(reported, err) }))
	if sb != nil || !errors.Is(err, ErrContextUnavailable) {
		t.Fatalf("New = (%v, %v), want ErrContextUnavailable", sb, err)
	}
	if len(reported) != 1 || reported[0] != err {
		t.Errorf("reported = %v", reported)
	}
}

func TestNewContextCreationFailed(t *testing.T) {
	cause := errors.New("gpu process crashed")
	canvas := graphicstest.NewCanvas(10, 10)
	canvas.Err = cause
	_, err := New(canvas, graphicstest.NewHost(10, 10), WithOnError(func(error) {}))
	if !errors.Is(err, ErrContextCreationFailed) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want creation failure wrapping the cause", err)
	}
	var se Error
	if !errors.As(err, &se) || se.Code() != CodeContextCreationFailed {
		t.Errorf("code = %v", se)
	}
}

func TestStaticRender(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithAutoplay(false), WithFragment(timeFragment))

	f.sb.Time(1.5).Render()
	if got := lastValues(t, f.gl, UniformTime); len(got) != 1 || got[0] != 1.5 {
		t.Errorf("u_time = %v, want [1.5]", got)
	}
	if f.sb.IsPlaying() {
		t.Error("Render started playback")
	}
	if len(f.errs) != 0 {
		t.Errorf("errors: %v", f.errs)
	}
}

func TestResizePropagation(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithAutoplay(false), WithDPR(2), WithFragment(timeFragment))

	f.sb.Render()
	if got := lastValues(t, f.gl, UniformResolution); !reflect.DeepEqual(got, []float32{400, 200}) {
		t.Errorf("u_resolution = %v, want [400 200]", got)
	}
	if v, _ := f.sb.Uniform(UniformResolution); v != (mgl32.Vec2{400, 200}) {
		t.Errorf("Uniform(u_resolution) = %v", v)
	}
	if f.gl.ViewportRect != [4]int32{0, 0, 400, 200} {
		t.Errorf("viewport = %v", f.gl.ViewportRect)
	}

	f.canvas.Resize(150, 75)
	if w, h := f.sb.Resolution(); w != 300 || h != 150 {
		t.Errorf("after canvas resize resolution = %dx%d, want 300x150", w, h)
	}
}

func TestAutoPixelRatio(t *testing.T) {
	tests := []struct {
		hostDPR float64
		want    int
	}{
		{0, 200},
		{1, 200},
		{1.5, 300},
		{3, 400},
	}
	for _, tt := range tests {
		gl := gputest.New(gpu.Version2)
		host := graphicstest.NewHost(800, 600)
		host.DPR = tt.hostDPR
		sb, err := New(graphicstest.NewCanvas(200, 100, gl), host, WithAutoplay(false))
		if err != nil {
			t.Fatal(err)
		}
		if w, _ := sb.Resolution(); w != tt.want {
			t.Errorf("host dpr %v: width = %d, want %d", tt.hostDPR, w, tt.want)
		}

		host.DPR = 1
		host.Dispatch(graphics.Event{Kind: graphics.EventResize})
		if w, _ := sb.Resolution(); w != 200 {
			t.Errorf("host dpr %v: width after host resize = %d, want 200", tt.hostDPR, w)
		}
	}
}

func TestTogglePausesOnce(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2))
	if !f.sb.IsPlaying() {
		t.Fatal("autoplay did not start playback")
	}

	f.sb.Toggle()
	if f.sb.IsPlaying() {
		t.Fatal("Toggle did not pause")
	}
	if f.host.Cancels != 1 || f.host.Pending() != 0 {
		t.Errorf("cancels=%d pending=%d, want 1 and 0", f.host.Cancels, f.host.Pending())
	}

	f.sb.Toggle()
	if !f.sb.IsPlaying() {
		t.Fatal("second Toggle did not resume")
	}
	if f.host.Pending() != 1 {
		t.Errorf("pending = %d, want a single frame request", f.host.Pending())
	}

	f.sb.Toggle()
	if f.host.Cancels != 2 {
		t.Errorf("cancels = %d, want 2", f.host.Cancels)
	}
}

func TestPlayDrivesFrames(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithFragment(timeFragment))

	f.host.Advance(0.5)
	f.host.Advance(0.25)
	if len(f.gl.Draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(f.gl.Draws))
	}
	if got := lastValues(t, f.gl, UniformTime); got[0] != 0.75 {
		t.Errorf("u_time = %v, want 0.75", got[0])
	}
	if got := lastValues(t, f.gl, UniformFrame); got[0] != 2 {
		t.Errorf("u_frame = %v, want 2", got[0])
	}
}

func TestRenderSequence(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	f := newFixture(t, gl, WithAutoplay(false), WithFragment(timeFragment))
	f.sb.Hook(Every(func(ClockState) { gl.Calls = append(gl.Calls, "before") }), Before)
	f.sb.Hook(Every(func(ClockState) { gl.Calls = append(gl.Calls, "after") }), After)

	gl.Reset()
	f.sb.Render()

	order := []string{"before", "Clear", "UseProgram", "uniform2fv", "DrawElements", "after"}
	idx := 0
	for _, call := range gl.Calls {
		if idx < len(order) && call == order[idx] {
			idx++
		}
	}
	if idx != len(order) {
		t.Errorf("calls %v do not follow %v", gl.Calls, order)
	}

	// Built-ins go first, in a fixed order.
	names := make([]string, 0, 4)
	for _, up := range gl.Uploads[:4] {
		names = append(names, up.Name)
	}
	if names[0] != UniformResolution || names[1] != UniformTime {
		t.Errorf("first uploads = %v", names)
	}
}

func TestRecompilationResilience(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	f := newFixture(t, gl, WithAutoplay(false))
	good := f.sb.Engine().program.Handle()

	f.sb.SetShader(DefaultVertex(gpu.Version1), badFragment(gpu.Version1))

	if len(f.errs) != 1 {
		t.Fatalf("onError called %d times, want 1", len(f.errs))
	}
	var ce *ShaderCompilationError
	if !errors.As(f.errs[0], &ce) || ce.Stage.String() == "" || ce.Stage != gpu.FragmentShader {
		t.Fatalf("error = %v, want fragment ShaderCompilationError", f.errs[0])
	}

	gl.Reset()
	f.sb.Render()
	if len(gl.Draws) != 1 || gl.Draws[0].Program != good {
		t.Errorf("draws = %+v, want one draw with program %d", gl.Draws, good)
	}
}

func TestVersionMismatchKeepsProgram(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	f := newFixture(t, gl, WithAutoplay(false))
	good := f.sb.Engine().program.Handle()

	gl.Reset()
	f.sb.SetShader(DefaultVertex(gpu.Version1), DefaultFragment(gpu.Version2))
	if len(f.errs) != 1 || !errors.Is(f.errs[0], ErrVersionMismatch) {
		t.Fatalf("errors = %v", f.errs)
	}
	if gl.Count("CreateShader") != 0 {
		t.Error("mismatch reached the GPU")
	}
	f.sb.Render()
	if gl.Draws[0].Program != good {
		t.Errorf("drew with %d, want %d", gl.Draws[0].Program, good)
	}
}

func TestLinkFailureReported(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	f := newFixture(t, gl, WithAutoplay(false))
	gl.LinkLog = "link error"
	f.sb.SetFragment(DefaultFragment(gpu.Version2))
	if len(f.errs) != 1 || !errors.Is(f.errs[0], ErrProgramLink) {
		t.Errorf("errors = %v", f.errs)
	}
}

func TestSetShaderSwapsAndRelinks(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	f := newFixture(t, gl, WithAutoplay(false), WithFragment(timeFragment))
	f.sb.Render()
	queries := gl.LocationQueries[UniformTime]

	f.sb.SetFragment(DefaultFragment(gpu.Version2))
	if f.sb.WebGLVersion() != gpu.Version2 {
		t.Errorf("WebGLVersion() = %v after a version 2 fragment", f.sb.WebGLVersion())
	}
	if s, p, _, _ := gl.Live(); s != 2 || p != 1 {
		t.Errorf("live shaders=%d programs=%d, want 2 and 1", s, p)
	}

	f.sb.Render()
	if gl.LocationQueries[UniformTime] != queries+1 {
		t.Errorf("u_time location was not re-resolved after recompiling")
	}
	if len(f.errs) != 0 {
		t.Errorf("errors: %v", f.errs)
	}
}

func TestSetVertexKeepsFragment(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	f := newFixture(t, gl, WithAutoplay(false), WithFragment(timeFragment))
	f.sb.SetVertex(DefaultVertex(gpu.Version1))
	if _, frag := f.sb.Engine().Sources(); frag != timeFragment {
		t.Error("SetVertex replaced the fragment shader")
	}
	if len(f.errs) != 0 {
		t.Errorf("errors: %v", f.errs)
	}
}

func TestRenderWithoutProgram(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	f := newFixture(t, gl, WithAutoplay(false), WithFragment(badFragment(gpu.Version1)))
	if len(f.errs) != 1 {
		t.Fatalf("errors = %v", f.errs)
	}
	gl.Reset()
	f.sb.Render()
	if gl.Clears != 1 || len(gl.Draws) != 0 || len(gl.Uploads) != 0 {
		t.Errorf("clears=%d draws=%d uploads=%d", gl.Clears, len(gl.Draws), len(gl.Uploads))
	}
}

func TestPauseRunsHooksOnce(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2))
	var before, after []ClockState
	f.sb.Hook(Every(func(s ClockState) { before = append(before, s) }), Before)
	f.sb.Hook(Every(func(s ClockState) { after = append(after, s) }), After)

	f.host.Advance(1)
	f.sb.Pause()
	f.sb.Pause()

	if len(before) != 2 || len(after) != 2 {
		t.Fatalf("before=%d after=%d, want 2 each", len(before), len(after))
	}
	if before[1] != before[0] || after[1].Time != 1 {
		t.Errorf("pause hooks got %+v / %+v, want the final state", before[1], after[1])
	}
}

func TestPauseAt(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2))
	f.sb.PauseAt(1)

	f.host.Advance(0.5)
	if !f.sb.IsPlaying() {
		t.Fatal("paused too early")
	}
	f.host.Advance(0.6)
	if f.sb.IsPlaying() {
		t.Fatal("still playing after reaching the pause time")
	}
	if n := f.sb.Engine().after.Len(); n != 0 {
		t.Errorf("%d after hooks remain", n)
	}
}

func TestPlayAtAndRenderAt(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithAutoplay(false), WithFragment(timeFragment))

	f.sb.RenderAt(2.5)
	if got := lastValues(t, f.gl, UniformTime); got[0] != 2.5 {
		t.Errorf("RenderAt u_time = %v", got[0])
	}

	f.sb.PlayAt(10)
	f.host.Advance(0.5)
	if got := lastValues(t, f.gl, UniformTime); got[0] != 10.5 {
		t.Errorf("PlayAt u_time = %v, want 10.5", got[0])
	}
}

func TestWhen(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2))
	ch := f.sb.When(func(s ClockState) bool { return s.Frame >= 2 })

	f.host.Advance(0.1)
	select {
	case <-ch:
		t.Fatal("When fired early")
	default:
	}
	f.host.Advance(0.1)
	select {
	case s := <-ch:
		if s.Frame != 2 {
			t.Errorf("frame = %d", s.Frame)
		}
	default:
		t.Fatal("When did not fire")
	}
}

func TestWhenClosedByDestroy(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2))
	pending := f.sb.When(func(s ClockState) bool { return s.Time > 100 })
	fired := f.sb.When(func(s ClockState) bool { return s.Frame >= 1 })
	f.host.Advance(0.1)

	f.sb.Destroy()
	if s, ok := <-fired; !ok || s.Frame != 1 {
		t.Errorf("resolved channel = %+v, %v", s, ok)
	}
	if _, ok := <-fired; ok {
		t.Error("resolved channel delivered twice")
	}
	select {
	case _, ok := <-pending:
		if ok {
			t.Error("pending channel received a value")
		}
	default:
		t.Fatal("pending channel left open after Destroy")
	}
	if n := len(f.sb.Engine().waiters); n != 0 {
		t.Errorf("waiters = %d after Destroy", n)
	}

	select {
	case _, ok := <-f.sb.When(func(ClockState) bool { return true }):
		if ok {
			t.Error("When after Destroy received a value")
		}
	default:
		t.Error("When after Destroy returned an open channel")
	}
}

func TestMouseTracking(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithAutoplay(false), WithFragment(timeFragment))
	f.canvas.MoveTo(10, 20)

	f.host.Dispatch(graphics.Event{Kind: graphics.EventMouseMove, X: 60, Y: 70})
	f.host.Dispatch(graphics.Event{Kind: graphics.EventMouseMove, X: 500, Y: 500})
	f.sb.Render()
	if got := lastValues(t, f.gl, UniformMouse); !reflect.DeepEqual(got, []float32{50, 50}) {
		t.Errorf("u_mouse = %v, want [50 50]", got)
	}

	f.host.Dispatch(graphics.Event{Kind: graphics.EventTouchMove, X: 30, Y: 40, Touches: 1})
	f.host.Dispatch(graphics.Event{Kind: graphics.EventTouchMove, X: 11, Y: 21})
	f.sb.Render()
	if got := lastValues(t, f.gl, UniformMouse); !reflect.DeepEqual(got, []float32{20, 20}) {
		t.Errorf("u_mouse = %v, want [20 20]", got)
	}
}

func TestVisibilityAutoPause(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2))

	f.canvas.MoveTo(0, 1000)
	f.host.Dispatch(graphics.Event{Kind: graphics.EventScroll})
	if f.sb.IsPlaying() {
		t.Fatal("still playing out of the viewport")
	}

	f.canvas.MoveTo(0, 0)
	f.host.Dispatch(graphics.Event{Kind: graphics.EventScroll})
	if !f.sb.IsPlaying() {
		t.Fatal("did not resume in the viewport")
	}

	f.host.IsHidden = true
	f.host.Dispatch(graphics.Event{Kind: graphics.EventVisibilityChange})
	if f.sb.IsPlaying() {
		t.Fatal("still playing while the host is hidden")
	}
	f.host.IsHidden = false
	f.host.Dispatch(graphics.Event{Kind: graphics.EventVisibilityChange})
	if !f.sb.IsPlaying() {
		t.Fatal("did not resume when the host became visible")
	}
}

func TestVisibilityRespectsManualPause(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2))
	f.sb.Pause()
	f.host.Dispatch(graphics.Event{Kind: graphics.EventScroll})
	if f.sb.IsPlaying() {
		t.Error("scroll resumed a manually paused sandbox")
	}
}

func TestVisibilityDisabled(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithPauseWhenHidden(false))
	f.canvas.MoveTo(0, 5000)
	f.host.Dispatch(graphics.Event{Kind: graphics.EventScroll})
	if !f.sb.IsPlaying() {
		t.Error("paused although pauseWhenHidden is off")
	}
}

func TestUniformsThroughSandbox(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithAutoplay(false),
		WithUniforms(map[string]any{"u_scale": 2.0}))

	if v, ok := f.sb.Uniform("u_scale"); !ok || v != 2.0 {
		t.Errorf("initial uniform = %v, %v", v, ok)
	}
	color := [3]float32{1, 0, 0}
	f.sb.SetUniform("u_color", color).SetUniforms(map[string]any{"u_gain": 0.5})
	if v, _ := f.sb.Uniform("u_color"); v != color {
		t.Errorf("u_color = %v", v)
	}

	f.sb.SetUniform(UniformTime, 3.0)
	f.sb.SetUniform("u_bad", struct{}{})
	if len(f.errs) != 2 {
		t.Fatalf("errors = %v, want 2", f.errs)
	}
	for _, err := range f.errs {
		if !errors.Is(err, ErrInvalidUniform) {
			t.Errorf("error %v is not INVALID_UNIFORM", err)
		}
	}
}

func TestOptionCallbacks(t *testing.T) {
	loads, renders := 0, 0
	f := newFixture(t, gputest.New(gpu.Version2),
		WithAutoplay(false),
		WithOnLoad(func() { loads++ }),
		WithOnBeforeRender(func(ClockState) { renders++ }),
		WithOnAfterRender(func(ClockState) { renders++ }),
	)
	f.sb.Render()
	if loads != 1 || renders != 2 {
		t.Errorf("loads=%d renders=%d, want 1 and 2", loads, renders)
	}
}

func TestDefaultErrorHandlerLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	gl := gputest.New(gpu.Version2)
	sb, err := New(graphicstest.NewCanvas(10, 10, gl), graphicstest.NewHost(10, 10),
		WithAutoplay(false), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	sb.SetUniform(UniformFrame, 1)
	if !strings.Contains(buf.String(), string(CodeInvalidUniform)) {
		t.Errorf("log %q does not mention the error code", buf.String())
	}
}

func TestNoVertexArrayPath(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	f := newFixture(t, gl, WithAutoplay(false))
	gl.Reset()
	f.sb.Render()
	if gl.Count("VertexAttribPointer") != 2 || len(gl.Draws) != 1 {
		t.Errorf("pointers=%d draws=%d", gl.Count("VertexAttribPointer"), len(gl.Draws))
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	f := newFixture(t, gl)
	f.host.Advance(0.1)

	f.sb.Destroy()
	f.sb.Destroy()

	if s, p, b, a := gl.Live(); s+p+b+a != 0 {
		t.Errorf("live shaders=%d programs=%d buffers=%d arrays=%d", s, p, b, a)
	}
	if f.host.Total() != 0 || f.canvas.Total() != 0 {
		t.Errorf("listeners left: host=%d canvas=%d", f.host.Total(), f.canvas.Total())
	}
	if f.host.Pending() != 0 || f.sb.IsPlaying() {
		t.Errorf("pending=%d playing=%v", f.host.Pending(), f.sb.IsPlaying())
	}
	if f.sb.Engine().State() != StateDestroyed {
		t.Errorf("state = %v", f.sb.Engine().State())
	}

	gl.Reset()
	f.sb.Render().Play().SetUniform("u_x", 1)
	f.host.Advance(1)
	if len(gl.Calls) != 0 {
		t.Errorf("calls after Destroy: %v", gl.Calls)
	}
}

func TestEngineStates(t *testing.T) {
	f := newFixture(t, gputest.New(gpu.Version2), WithAutoplay(false))
	e := f.sb.Engine()
	if e.State() != StateReady {
		t.Fatalf("state = %v, want ready", e.State())
	}
	e.Play()
	if e.State() != StatePlaying {
		t.Errorf("state = %v, want playing", e.State())
	}
	e.Render()
	if e.State() != StatePlaying {
		t.Errorf("Render changed state to %v", e.State())
	}
	e.Pause()
	if e.State() != StatePaused {
		t.Errorf("state = %v, want paused", e.State())
	}
	e.Destroy()
	if e.State() != StateDestroyed || e.State().String() != "destroyed" {
		t.Errorf("state = %v", e.State())
	}
}
