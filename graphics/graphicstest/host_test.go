package graphicstest

import (
	"testing"

	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/gpu/gputest"
	"github.com/richinsley/goshadersandbox/graphics"
)

func TestSchedulerAdvance(t *testing.T) {
	var s Scheduler
	var stamps []float64
	s.RequestAnimationFrame(func(ts float64) {
		stamps = append(stamps, ts)
		// Requests made while running wait for the next Advance.
		s.RequestAnimationFrame(func(ts float64) { stamps = append(stamps, ts) })
	})
	cancelled := s.RequestAnimationFrame(func(float64) { t.Error("cancelled frame ran") })
	s.CancelAnimationFrame(cancelled)

	if n := s.Advance(0.5); n != 1 {
		t.Fatalf("first Advance ran %d callbacks, want 1", n)
	}
	if n := s.Advance(0.25); n != 1 {
		t.Fatalf("second Advance ran %d callbacks, want 1", n)
	}
	if len(stamps) != 2 || stamps[0] != 0.5 || stamps[1] != 0.75 {
		t.Errorf("timestamps = %v, want [0.5 0.75]", stamps)
	}
	if s.Requests != 3 || s.Cancels != 1 || s.Pending() != 0 {
		t.Errorf("requests=%d cancels=%d pending=%d", s.Requests, s.Cancels, s.Pending())
	}
}

func TestCanvasContexts(t *testing.T) {
	c := NewCanvas(200, 100, gputest.New(gpu.Version1))

	ctx, err := c.GetContext(gpu.Version2, graphics.ContextAttributes{})
	if ctx != nil || err != nil {
		t.Fatalf("version 2 = (%v, %v), want unsupported", ctx, err)
	}
	ctx, err = c.GetContext(gpu.Version1, graphics.ContextAttributes{Alpha: true})
	if ctx == nil || err != nil {
		t.Fatalf("version 1 = (%v, %v)", ctx, err)
	}
	if len(c.Requested) != 2 || !c.Attrs[1].Alpha {
		t.Errorf("requests not recorded: %v %v", c.Requested, c.Attrs)
	}
}

func TestCanvasResizeDispatches(t *testing.T) {
	c := NewCanvas(10, 10)
	c.MoveTo(5, 5)
	resized := 0
	c.Listen(graphics.EventResize, func(graphics.Event) { resized++ })

	c.Resize(30, 20)
	if w, h := c.ClientSize(); w != 30 || h != 20 {
		t.Errorf("size = %vx%v, want 30x20", w, h)
	}
	if c.BoundingRect().Left != 5 || resized != 1 {
		t.Errorf("rect=%+v resized=%d", c.BoundingRect(), resized)
	}
}
