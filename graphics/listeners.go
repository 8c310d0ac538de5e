package graphics

// Listeners is a small event dispatcher for EventTarget implementations.
// Handlers run in registration order. It is not safe for concurrent use;
// hosts dispatch on their UI thread.
type Listeners struct {
	next     uint64
	handlers map[EventKind][]listener
}

type listener struct {
	id uint64
	fn func(Event)
}

// Listen implements EventTarget.
func (l *Listeners) Listen(kind EventKind, fn func(Event)) func() {
	if l.handlers == nil {
		l.handlers = make(map[EventKind][]listener)
	}
	l.next++
	id := l.next
	l.handlers[kind] = append(l.handlers[kind], listener{id: id, fn: fn})
	return func() { l.remove(kind, id) }
}

func (l *Listeners) remove(kind EventKind, id uint64) {
	hs := l.handlers[kind]
	for i, h := range hs {
		if h.id == id {
			l.handlers[kind] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

// Dispatch delivers ev to every handler registered for ev.Kind.
func (l *Listeners) Dispatch(ev Event) {
	hs := append([]listener(nil), l.handlers[ev.Kind]...)
	for _, h := range hs {
		h.fn(ev)
	}
}

// Count returns the number of handlers registered for kind.
func (l *Listeners) Count(kind EventKind) int {
	return len(l.handlers[kind])
}

// Total returns the number of handlers across all kinds.
func (l *Listeners) Total() int {
	n := 0
	for _, hs := range l.handlers {
		n += len(hs)
	}
	return n
}
