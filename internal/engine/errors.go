package engine

import "errors"

var (
	// ErrNotWorking means the staff member has no working window on the
	// requested date; it is not an internal failure.
	ErrNotWorking = errors.New("staff is not working on this date")

	// ErrSlotConflict means the requested interval overlaps an existing
	// blocking reservation.
	ErrSlotConflict = errors.New("slot conflicts with an existing reservation")

	// ErrLockTimeout means the per-staff-day admission lock could not be
	// acquired within the configured wait. The request may be retried.
	ErrLockTimeout = errors.New("timed out waiting for booking lock, retry later")

	// ErrDurationNotAllowed means the requested duration is not one of
	// the offered course lengths.
	ErrDurationNotAllowed = errors.New("duration is not an offered course length")

	// ErrOutsideBookingWindow means the requested date falls outside the
	// allowed advance-booking window.
	ErrOutsideBookingWindow = errors.New("date is outside the allowed booking window")

	// ErrSlotMisaligned means the requested start time does not fall on
	// the slot grid for the day.
	ErrSlotMisaligned = errors.New("start time is not aligned to the slot grid")

	// ErrReservationNotFound means no reservation exists with the given id.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrStatusConflict means the reservation's status changed between
	// read and update; the caller should reload and retry.
	ErrStatusConflict = errors.New("reservation status changed concurrently")

	// ErrDuplicateException means an exception already exists for the
	// staff member and date.
	ErrDuplicateException = errors.New("schedule exception already exists for this date")
)
