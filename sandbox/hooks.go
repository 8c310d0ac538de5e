package sandbox

// Hook runs once per frame. Returning false removes it after it ran.
type Hook func(ClockState) bool

// Every adapts a callback that should run on every frame until removed.
func Every(fn func(ClockState)) Hook {
	return func(s ClockState) bool {
		fn(s)
		return true
	}
}

type hookEntry struct {
	fn      Hook
	removed bool
}

// Hooks is an ordered registry of render hooks.
type Hooks struct {
	entries []*hookEntry
}

// Add registers fn and returns a function that removes it. Removing twice is
// harmless.
func (h *Hooks) Add(fn Hook) (remove func()) {
	e := &hookEntry{fn: fn}
	h.entries = append(h.entries, e)
	return func() { h.remove(e) }
}

func (h *Hooks) remove(e *hookEntry) {
	if e.removed {
		return
	}
	e.removed = true
	for i, cur := range h.entries {
		if cur == e {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			return
		}
	}
}

// Run invokes every hook in registration order. Hooks added during Run wait
// for the next call; hooks removed during Run are skipped if not yet reached.
func (h *Hooks) Run(state ClockState) {
	snapshot := append([]*hookEntry(nil), h.entries...)
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		if !e.fn(state) {
			h.remove(e)
		}
	}
}

func (h *Hooks) Len() int { return len(h.entries) }

// Destroy drops every hook.
func (h *Hooks) Destroy() {
	for _, e := range h.entries {
		e.removed = true
	}
	h.entries = nil
}
