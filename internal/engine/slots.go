package engine

import "github.com/soyoshik-git/bro-reserve/internal/timeslot"

// DefaultGranularityMinutes is the spacing between candidate slot
// starts when no other granularity is configured.
const DefaultGranularityMinutes = 30

// SlotIterator walks candidate slot start times inside a working
// window. Slots ascend from the window start in fixed steps; a start
// is yielded only when the full duration still fits inside the window.
type SlotIterator struct {
	window      timeslot.Interval
	duration    int
	granularity int
	next        timeslot.TimeOfDay
}

// NewSlotIterator builds an iterator over the window. A non-positive
// granularity falls back to DefaultGranularityMinutes.
func NewSlotIterator(window timeslot.Interval, durationMinutes, granularityMinutes int) *SlotIterator {
	if granularityMinutes <= 0 {
		granularityMinutes = DefaultGranularityMinutes
	}
	return &SlotIterator{
		window:      window,
		duration:    durationMinutes,
		granularity: granularityMinutes,
		next:        window.Start,
	}
}

// Next returns the next candidate start time. ok is false once the
// window is exhausted.
func (it *SlotIterator) Next() (start timeslot.TimeOfDay, ok bool) {
	if it.duration <= 0 {
		return 0, false
	}
	start = it.next
	if start.Add(it.duration) > it.window.End {
		return 0, false
	}
	it.next = start.Add(it.granularity)
	return start, true
}

// Reset rewinds the iterator to the start of the window.
func (it *SlotIterator) Reset() {
	it.next = it.window.Start
}

// Collect drains the iterator into a slice of candidate intervals.
func (it *SlotIterator) Collect() []timeslot.Interval {
	var out []timeslot.Interval
	for {
		start, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, timeslot.NewInterval(start, it.duration))
	}
}
