//go:build js && wasm

package webgl

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
)

var (
	_ graphics.Canvas      = (*Canvas)(nil)
	_ graphics.BufferSizer = (*Canvas)(nil)
	_ graphics.Host        = (*Host)(nil)
)

// Canvas wraps an HTMLCanvasElement.
type Canvas struct {
	graphics.Listeners

	el       js.Value
	observer js.Value
	funcs    []js.Func
}

// NewCanvas wraps el and dispatches resize events from a ResizeObserver
// when the browser has one.
func NewCanvas(el js.Value) *Canvas {
	c := &Canvas{el: el}
	ctor := js.Global().Get("ResizeObserver")
	if ctor.Truthy() {
		fn := js.FuncOf(func(js.Value, []js.Value) any {
			c.Dispatch(graphics.Event{Kind: graphics.EventResize})
			return nil
		})
		c.funcs = append(c.funcs, fn)
		c.observer = ctor.New(fn)
		c.observer.Call("observe", el)
	}
	return c
}

// CanvasByID looks the canvas up in the document.
func CanvasByID(id string) (*Canvas, error) {
	el := js.Global().Get("document").Call("getElementById", id)
	if !el.Truthy() {
		return nil, fmt.Errorf("webgl: no element with id %q", id)
	}
	return NewCanvas(el), nil
}

// GetContext returns nil, nil when the browser has no context of that
// version. Exceptions thrown by getContext are returned as errors.
func (c *Canvas) GetContext(version gpu.Version, attrs graphics.ContextAttributes) (ctx gpu.Context, err error) {
	name := "webgl"
	if version == gpu.Version2 {
		name = "webgl2"
	}
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			if jsErr, ok := r.(js.Error); ok {
				err = errors.New(jsErr.Error())
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	gl := c.el.Call("getContext", name, map[string]any{
		"alpha":                 attrs.Alpha,
		"depth":                 attrs.Depth,
		"stencil":               attrs.Stencil,
		"antialias":             attrs.Antialias,
		"preserveDrawingBuffer": attrs.PreserveDrawingBuffer,
	})
	if gl.IsNull() || gl.IsUndefined() {
		return nil, nil
	}
	return newContext(gl, version), nil
}

func (c *Canvas) ClientSize() (float64, float64) {
	return c.el.Get("clientWidth").Float(), c.el.Get("clientHeight").Float()
}

func (c *Canvas) BoundingRect() graphics.Rect {
	r := c.el.Call("getBoundingClientRect")
	return graphics.Rect{
		Left:   r.Get("left").Float(),
		Top:    r.Get("top").Float(),
		Right:  r.Get("right").Float(),
		Bottom: r.Get("bottom").Float(),
	}
}

// SetBufferSize sets the drawing-buffer size of the element.
func (c *Canvas) SetBufferSize(width, height int) {
	c.el.Set("width", width)
	c.el.Set("height", height)
}

// Release disconnects the observer and frees the JS callbacks.
func (c *Canvas) Release() {
	if c.observer.Truthy() {
		c.observer.Call("disconnect")
	}
	for _, fn := range c.funcs {
		fn.Release()
	}
	c.funcs = nil
}

// Host is the browser window and document.
type Host struct {
	graphics.Listeners

	window   js.Value
	document js.Value
	funcs    []js.Func
	removers []func()

	nextFrame graphics.FrameID
	frames    map[graphics.FrameID]frameRequest
}

type frameRequest struct {
	handle js.Value
	fn     js.Func
}

// NewHost forwards resize, scroll, mousemove, touchmove and
// visibilitychange from the browser to the host's listeners.
func NewHost() *Host {
	h := &Host{
		window:   js.Global(),
		document: js.Global().Get("document"),
		frames:   make(map[graphics.FrameID]frameRequest),
	}
	h.forward(h.window, "resize", func(js.Value) graphics.Event {
		return graphics.Event{Kind: graphics.EventResize}
	})
	h.forward(h.window, "scroll", func(js.Value) graphics.Event {
		return graphics.Event{Kind: graphics.EventScroll}
	})
	h.forward(h.window, "mousemove", func(ev js.Value) graphics.Event {
		return graphics.Event{
			Kind: graphics.EventMouseMove,
			X:    ev.Get("clientX").Float(),
			Y:    ev.Get("clientY").Float(),
		}
	})
	h.forward(h.window, "touchmove", func(ev js.Value) graphics.Event {
		out := graphics.Event{Kind: graphics.EventTouchMove}
		touches := ev.Get("touches")
		out.Touches = touches.Get("length").Int()
		if out.Touches > 0 {
			t := touches.Index(0)
			out.X, out.Y = t.Get("clientX").Float(), t.Get("clientY").Float()
		}
		return out
	})
	h.forward(h.document, "visibilitychange", func(js.Value) graphics.Event {
		return graphics.Event{Kind: graphics.EventVisibilityChange}
	})
	return h
}

func (h *Host) forward(target js.Value, name string, convert func(js.Value) graphics.Event) {
	fn := js.FuncOf(func(_ js.Value, args []js.Value) any {
		var ev js.Value
		if len(args) > 0 {
			ev = args[0]
		}
		h.Dispatch(convert(ev))
		return nil
	})
	opts := map[string]any{"passive": true}
	target.Call("addEventListener", name, fn, opts)
	h.funcs = append(h.funcs, fn)
	h.removers = append(h.removers, func() {
		target.Call("removeEventListener", name, fn, opts)
	})
}

func (h *Host) ViewportSize() (float64, float64) {
	return h.window.Get("innerWidth").Float(), h.window.Get("innerHeight").Float()
}

func (h *Host) DevicePixelRatio() float64 {
	v := h.window.Get("devicePixelRatio")
	if v.Type() != js.TypeNumber {
		return 1
	}
	return v.Float()
}

func (h *Host) Hidden() bool { return h.document.Get("hidden").Truthy() }

func (h *Host) RequestAnimationFrame(fn func(float64)) graphics.FrameID {
	h.nextFrame++
	id := h.nextFrame
	cb := js.FuncOf(func(_ js.Value, args []js.Value) any {
		req, ok := h.frames[id]
		if !ok {
			return nil
		}
		delete(h.frames, id)
		req.fn.Release()
		ts := 0.0
		if len(args) > 0 {
			ts = args[0].Float() / 1000
		}
		fn(ts)
		return nil
	})
	handle := h.window.Call("requestAnimationFrame", cb)
	h.frames[id] = frameRequest{handle: handle, fn: cb}
	return id
}

func (h *Host) CancelAnimationFrame(id graphics.FrameID) {
	req, ok := h.frames[id]
	if !ok {
		return
	}
	delete(h.frames, id)
	h.window.Call("cancelAnimationFrame", req.handle)
	req.fn.Release()
}

// Now is performance.now() in seconds, the clock requestAnimationFrame
// timestamps use.
func (h *Host) Now() float64 {
	return h.window.Get("performance").Call("now").Float() / 1000
}

// Release removes the DOM listeners and cancels pending frames.
func (h *Host) Release() {
	for _, remove := range h.removers {
		remove()
	}
	for _, fn := range h.funcs {
		fn.Release()
	}
	for id := range h.frames {
		h.CancelAnimationFrame(id)
	}
	h.removers, h.funcs = nil, nil
}
