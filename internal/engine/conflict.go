package engine

import (
	"github.com/soyoshik-git/bro-reserve/internal/models"
	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

// HasConflict reports whether the candidate interval overlaps any of
// the given reservations' intervals. Intervals are half-open, so a
// slot that starts exactly when a reservation ends is free.
func HasConflict(candidate timeslot.Interval, existing []models.Reservation) bool {
	for _, r := range existing {
		if candidate.Overlaps(r.Interval()) {
			return true
		}
	}
	return false
}

// FilterConflicts removes candidate intervals that overlap any of the
// existing reservations, preserving order.
func FilterConflicts(candidates []timeslot.Interval, existing []models.Reservation) []timeslot.Interval {
	if len(existing) == 0 {
		return candidates
	}
	free := candidates[:0:0]
	for _, c := range candidates {
		if !HasConflict(c, existing) {
			free = append(free, c)
		}
	}
	return free
}
