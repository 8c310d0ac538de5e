// Package graphics defines the host environment a sandbox lives in: the
// canvas it draws to, the window-level events around it and the
// animation-frame scheduler that paces it.
package graphics

import "github.com/richinsley/goshadersandbox/gpu"

// EventKind names a host or canvas event.
type EventKind string

const (
	EventResize           EventKind = "resize"
	EventScroll           EventKind = "scroll"
	EventMouseMove        EventKind = "mousemove"
	EventTouchMove        EventKind = "touchmove"
	EventVisibilityChange EventKind = "visibilitychange"
)

// Event carries the payload of a dispatched event. X and Y are client
// (viewport) coordinates in CSS pixels for pointer events.
type Event struct {
	Kind EventKind
	X, Y float64
	// Touches is the number of active touch points for EventTouchMove.
	Touches int
}

// EventTarget is anything listeners can be attached to.
type EventTarget interface {
	// Listen registers fn for kind and returns a function that removes
	// exactly that registration.
	Listen(kind EventKind, fn func(Event)) (remove func())
}

// Rect is a bounding rectangle in client coordinates.
type Rect struct {
	Left, Top, Right, Bottom float64
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Contains reports whether the point lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// ContextAttributes are the creation parameters of a rendering context.
type ContextAttributes struct {
	Alpha                 bool
	Depth                 bool
	Stencil               bool
	Antialias             bool
	PreserveDrawingBuffer bool
}

// Canvas is the drawing surface.
type Canvas interface {
	EventTarget
	// GetContext returns a context of the requested version. A nil context
	// with a nil error means the version is not supported; an error means
	// the request was rejected.
	GetContext(version gpu.Version, attrs ContextAttributes) (gpu.Context, error)
	// ClientSize is the laid-out size in CSS pixels.
	ClientSize() (width, height float64)
	BoundingRect() Rect
}

// FrameID identifies a pending animation-frame request.
type FrameID uint64

// Scheduler delivers animation frames. Timestamps are seconds on the same
// monotonic clock as Now.
type Scheduler interface {
	RequestAnimationFrame(fn func(timestamp float64)) FrameID
	CancelAnimationFrame(id FrameID)
	Now() float64
}

// Host is the window/document around a canvas.
type Host interface {
	EventTarget
	Scheduler
	// ViewportSize is the size of the visible client area.
	ViewportSize() (width, height float64)
	// DevicePixelRatio is the ratio of physical to CSS pixels; 0 if unknown.
	DevicePixelRatio() float64
	// Hidden reports whether the whole document is hidden (minimised window,
	// background tab).
	Hidden() bool
}

// BufferSizer is implemented by canvases whose drawing buffer size is set
// explicitly rather than following the window.
type BufferSizer interface {
	SetBufferSize(width, height int)
}
