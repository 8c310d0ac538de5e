// Package graphicstest provides an in-memory canvas and host whose frames
// are delivered only when a test advances the scheduler.
package graphicstest

import (
	"sort"

	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
)

// Scheduler is a manual animation-frame scheduler.
type Scheduler struct {
	now     float64
	next    graphics.FrameID
	pending map[graphics.FrameID]func(float64)

	// Requests and Cancels count calls to RequestAnimationFrame and
	// CancelAnimationFrame.
	Requests int
	Cancels  int
}

func (s *Scheduler) RequestAnimationFrame(fn func(float64)) graphics.FrameID {
	if s.pending == nil {
		s.pending = make(map[graphics.FrameID]func(float64))
	}
	s.Requests++
	s.next++
	s.pending[s.next] = fn
	return s.next
}

func (s *Scheduler) CancelAnimationFrame(id graphics.FrameID) {
	s.Cancels++
	delete(s.pending, id)
}

func (s *Scheduler) Now() float64 { return s.now }

// Pending returns the number of frame callbacks waiting to run.
func (s *Scheduler) Pending() int { return len(s.pending) }

// Advance moves the clock forward by dt seconds and runs every callback that
// was pending beforehand, in request order. It returns how many ran.
func (s *Scheduler) Advance(dt float64) int {
	s.now += dt
	ids := make([]graphics.FrameID, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ran := 0
	for _, id := range ids {
		fn, ok := s.pending[id]
		if !ok {
			continue
		}
		delete(s.pending, id)
		fn(s.now)
		ran++
	}
	return ran
}

// Host is a fake window.
type Host struct {
	graphics.Listeners
	Scheduler

	Width, Height float64
	DPR           float64
	IsHidden      bool
}

// NewHost returns a visible host with the given viewport size and a device
// pixel ratio of 1.
func NewHost(width, height float64) *Host {
	return &Host{Width: width, Height: height, DPR: 1}
}

func (h *Host) ViewportSize() (float64, float64) { return h.Width, h.Height }
func (h *Host) DevicePixelRatio() float64        { return h.DPR }
func (h *Host) Hidden() bool                     { return h.IsHidden }

// Canvas is a fake drawing surface positioned at Rect.
type Canvas struct {
	graphics.Listeners

	Rect graphics.Rect
	// Contexts are handed out by GetContext per version. A missing version
	// is reported as unsupported.
	Contexts map[gpu.Version]gpu.Context
	// Err, when set, makes GetContext fail.
	Err error

	Requested []gpu.Version
	Attrs     []graphics.ContextAttributes
}

// NewCanvas returns a canvas of the given CSS size at the origin offering the
// given contexts.
func NewCanvas(width, height float64, contexts ...gpu.Context) *Canvas {
	c := &Canvas{
		Rect:     graphics.Rect{Right: width, Bottom: height},
		Contexts: make(map[gpu.Version]gpu.Context),
	}
	for _, ctx := range contexts {
		c.Contexts[ctx.Version()] = ctx
	}
	return c
}

func (c *Canvas) GetContext(version gpu.Version, attrs graphics.ContextAttributes) (gpu.Context, error) {
	c.Requested = append(c.Requested, version)
	c.Attrs = append(c.Attrs, attrs)
	if c.Err != nil {
		return nil, c.Err
	}
	ctx, ok := c.Contexts[version]
	if !ok {
		return nil, nil
	}
	return ctx, nil
}

func (c *Canvas) ClientSize() (float64, float64) { return c.Rect.Width(), c.Rect.Height() }
func (c *Canvas) BoundingRect() graphics.Rect    { return c.Rect }

// Resize changes the CSS size and dispatches a resize event.
func (c *Canvas) Resize(width, height float64) {
	c.Rect.Right = c.Rect.Left + width
	c.Rect.Bottom = c.Rect.Top + height
	c.Dispatch(graphics.Event{Kind: graphics.EventResize})
}

// MoveTo positions the canvas in client coordinates, keeping its size.
func (c *Canvas) MoveTo(left, top float64) {
	w, h := c.Rect.Width(), c.Rect.Height()
	c.Rect = graphics.Rect{Left: left, Top: top, Right: left + w, Bottom: top + h}
}
