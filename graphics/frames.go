package graphics

import "sort"

// FrameQueue holds animation-frame callbacks for hosts that drive their own
// loop. Callbacks requested while the queue runs wait for the next Run.
type FrameQueue struct {
	next    FrameID
	pending map[FrameID]func(float64)
}

func (q *FrameQueue) Add(fn func(float64)) FrameID {
	if q.pending == nil {
		q.pending = make(map[FrameID]func(float64))
	}
	q.next++
	q.pending[q.next] = fn
	return q.next
}

func (q *FrameQueue) Cancel(id FrameID) { delete(q.pending, id) }
func (q *FrameQueue) Len() int          { return len(q.pending) }
func (q *FrameQueue) Clear()            { q.pending = nil }

// Run invokes the queued callbacks in request order with timestamp ts and
// returns how many ran.
func (q *FrameQueue) Run(ts float64) int {
	if len(q.pending) == 0 {
		return 0
	}
	batch := q.pending
	q.pending = nil

	ids := make([]FrameID, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		batch[id](ts)
	}
	return len(ids)
}
