package sandbox

import "github.com/richinsley/goshadersandbox/graphics"

// ClockState is the timing snapshot handed to every callback of one tick.
type ClockState struct {
	// Time is seconds elapsed since the clock started.
	Time float64
	// Delta is seconds since the previous tick.
	Delta float64
	Frame int
}

// Clock produces ClockStates, either from the host's animation-frame
// scheduler or by manual stepping with Tick.
type Clock struct {
	sched graphics.Scheduler

	time  float64
	delta float64
	frame int

	running  bool
	start    float64
	last     float64
	callback func(ClockState)

	pending bool
	frameID graphics.FrameID
	gen     uint64
}

func NewClock(sched graphics.Scheduler) *Clock {
	return &Clock{sched: sched}
}

// Start begins the scheduler-driven loop. Time continues from its current
// value, so Stop followed by Start resumes. Calling Start on a running clock
// does nothing.
func (c *Clock) Start(callback func(ClockState)) {
	if c.running {
		return
	}
	c.callback = callback
	c.running = true

	now := c.sched.Now()
	c.start = now - c.time
	c.last = now
	c.request()
}

// Stop cancels the pending frame. Time and frame count are preserved.
func (c *Clock) Stop() {
	if !c.running {
		return
	}
	c.running = false
	c.cancel()
}

// Reset stops the clock and zeroes its state.
func (c *Clock) Reset() {
	c.Stop()
	c.time, c.delta, c.frame = 0, 0, 0
}

// Tick advances the clock by exactly dt seconds and invokes the callback
// once, without involving the scheduler.
func (c *Clock) Tick(dt float64) {
	c.delta = dt
	c.time += dt
	c.frame++
	if c.callback != nil {
		c.callback(c.State())
	}
}

// SetTime forces the elapsed time. Frame and delta are left alone; a running
// clock keeps counting from t.
func (c *Clock) SetTime(t float64) {
	c.time = t
	if c.running {
		c.start = c.last - t
	}
}

// SetCallback replaces the callback used by Tick and the scheduled loop.
func (c *Clock) SetCallback(callback func(ClockState)) {
	c.callback = callback
}

func (c *Clock) State() ClockState {
	return ClockState{Time: c.time, Delta: c.delta, Frame: c.frame}
}

func (c *Clock) Running() bool { return c.running }

// Destroy stops the clock and drops its callback.
func (c *Clock) Destroy() {
	c.Stop()
	c.callback = nil
}

func (c *Clock) request() {
	c.gen++
	gen := c.gen
	c.pending = true
	c.frameID = c.sched.RequestAnimationFrame(func(ts float64) {
		if gen != c.gen {
			return
		}
		c.loop(ts)
	})
}

func (c *Clock) cancel() {
	if !c.pending {
		return
	}
	c.pending = false
	c.gen++
	c.sched.CancelAnimationFrame(c.frameID)
}

func (c *Clock) loop(ts float64) {
	c.pending = false
	if !c.running {
		return
	}
	c.delta = ts - c.last
	c.last = ts
	c.time = ts - c.start
	c.frame++

	if c.callback != nil {
		c.callback(c.State())
	}

	// The callback may have stopped or restarted the clock.
	if c.running && !c.pending {
		c.request()
	}
}
