// Package glfwcontext hosts a sandbox in a desktop glfw window.
package glfwcontext

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/goshadersandbox/glbackend"
	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
	options "github.com/richinsley/goshadersandbox/options"
)

// Window is both the canvas and the host of a sandbox: its client area is
// the drawing surface and its event loop drives the animation frames.
type Window struct {
	graphics.Listeners

	window    *glfw.Window
	log       *slog.Logger
	gl        *glbackend.Context
	frames    graphics.FrameQueue
	iconified bool
	dirty     bool
	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
}

var (
	_ graphics.Canvas = (*Window)(nil)
	_ graphics.Host   = (*Window)(nil)
)

// New creates a window sized from opts. Hidden windows are used for
// recording. InitGraphics must have been called.
func New(opts *options.SandboxOptions, visible bool, log *slog.Logger) (*Window, error) {
	if log == nil {
		log = slog.Default()
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 0)
	glfw.WindowHint(glfw.StencilBits, 0)
	glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)

	if opts.Antialias != nil && *opts.Antialias {
		glfw.WindowHint(glfw.Samples, 4)
	} else {
		glfw.WindowHint(glfw.Samples, 0)
	}

	if visible {
		glfw.WindowHint(glfw.Resizable, glfw.True)
		glfw.WindowHint(glfw.Visible, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(*opts.Width, *opts.Height, "goshadersandbox", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	w := &Window{
		window:       win,
		log:          log,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	w.installCallbacks()
	return w, nil
}

func (w *Window) installCallbacks() {
	w.window.SetKeyCallback(w.glfwKeyCallback)
	w.window.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		w.Dispatch(graphics.Event{Kind: graphics.EventResize})
	})
	w.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.dirty = true
		w.Dispatch(graphics.Event{Kind: graphics.EventResize})
	})
	w.window.SetContentScaleCallback(func(_ *glfw.Window, x, y float32) {
		w.Dispatch(graphics.Event{Kind: graphics.EventResize})
	})
	w.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.Dispatch(graphics.Event{Kind: graphics.EventMouseMove, X: x, Y: y})
	})
	w.window.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		w.Dispatch(graphics.Event{Kind: graphics.EventScroll, X: xoff, Y: yoff})
	})
	w.window.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		w.iconified = iconified
		w.Dispatch(graphics.Event{Kind: graphics.EventVisibilityChange})
	})
}

// RegisterKeyCallback allows the main application to register a function to be
// called when a specific key is pressed.
func (w *Window) RegisterKeyCallback(key glfw.Key, f func()) {
	w.keyCallbacks[key] = f
}

func (w *Window) glfwKeyCallback(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		win.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := w.keyCallbacks[key]; ok {
			callback()
		}
	}
}

// GetContext makes the window's GL context current and wraps it. The same
// 4.1 core context serves either requested version; shader sources are
// translated per dialect.
func (w *Window) GetContext(version gpu.Version, attrs graphics.ContextAttributes) (gpu.Context, error) {
	if w.gl != nil {
		return w.gl, nil
	}
	w.window.MakeContextCurrent()
	ctx, err := glbackend.New(version, nil, w.log)
	if err != nil {
		return nil, err
	}
	w.gl = ctx
	w.log.Info("glfwcontext: context created", "version", version, "antialias", attrs.Antialias)
	return ctx, nil
}

// ClientSize is the window size in screen coordinates.
func (w *Window) ClientSize() (float64, float64) {
	width, height := w.window.GetSize()
	return float64(width), float64(height)
}

// BoundingRect is the client area; cursor positions share its origin.
func (w *Window) BoundingRect() graphics.Rect {
	width, height := w.ClientSize()
	return graphics.Rect{Right: width, Bottom: height}
}

func (w *Window) ViewportSize() (float64, float64) { return w.ClientSize() }
func (w *Window) Hidden() bool                     { return w.iconified }

// DevicePixelRatio is the framebuffer to window size ratio, or the monitor
// content scale before the window has a size.
func (w *Window) DevicePixelRatio() float64 {
	fbWidth, _ := w.window.GetFramebufferSize()
	winWidth, _ := w.window.GetSize()
	if winWidth > 0 && fbWidth > 0 {
		return float64(fbWidth) / float64(winWidth)
	}
	x, _ := w.window.GetContentScale()
	return float64(x)
}

func (w *Window) RequestAnimationFrame(fn func(float64)) graphics.FrameID {
	id := w.frames.Add(fn)
	glfw.PostEmptyEvent()
	return id
}

func (w *Window) CancelAnimationFrame(id graphics.FrameID) { w.frames.Cancel(id) }

// Now is seconds since glfw was initialized.
func (w *Window) Now() float64 { return glfw.GetTime() }

// Present swaps buffers outside the frame loop, for renders triggered by
// the caller.
func (w *Window) Present() {
	w.window.SwapBuffers()
	w.dirty = false
}

// Dirty reports whether the framebuffer changed size since the last swap.
func (w *Window) Dirty() bool { return w.dirty }

// Run processes events and animation frames until the window closes or ctx
// is done. While no frame is requested it blocks on events instead of
// spinning.
func (w *Window) Run(ctx context.Context) {
	for !w.window.ShouldClose() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if w.frames.Len() == 0 {
			glfw.WaitEventsTimeout(0.1)
		} else {
			glfw.PollEvents()
		}

		if w.frames.Run(w.Now()) > 0 {
			w.Present()
		}
	}
}

// SetTitle changes the window title.
func (w *Window) SetTitle(title string) { w.window.SetTitle(title) }

func (w *Window) ShouldClose() bool { return w.window.ShouldClose() }

// Shutdown destroys the window. Sandboxes using it must be destroyed first.
func (w *Window) Shutdown() {
	w.frames.Clear()
	w.window.Destroy()
	w.log.Info("glfwcontext: window destroyed")
}

// InitGraphics initializes glfw. Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	slog.Info("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts down glfw. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	slog.Info("GLFW Terminated")
}
