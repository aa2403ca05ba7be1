// Package engine implements availability resolution, slot generation,
// conflict filtering and the booking admission procedure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soyoshik-git/bro-reserve/internal/metrics"
	"github.com/soyoshik-git/bro-reserve/internal/models"
	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

// ScheduleStore provides the working-hours data the resolver needs.
type ScheduleStore interface {
	GetWeeklySchedule(ctx context.Context, staffID string) ([]models.WeeklyScheduleEntry, error)
	GetException(ctx context.Context, staffID, date string) (*models.ScheduleException, error)
}

// BookingStore persists reservations. InsertReservationIfFree must
// re-check conflicts against rows in the blocking statuses and insert
// atomically, returning ErrSlotConflict when the slot is taken.
type BookingStore interface {
	ListReservations(ctx context.Context, staffID, date string, statuses []models.ReservationStatus) ([]models.Reservation, error)
	InsertReservationIfFree(ctx context.Context, r models.Reservation, blocking []models.ReservationStatus) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, from, to models.ReservationStatus) error
}

// Blocking status sets. Customers browsing availability only see
// confirmed reservations as taken, so an unreviewed request does not
// hide a slot; admission counts pending rows too, so two requests can
// never hold the same slot.
var (
	displayBlocking   = []models.ReservationStatus{models.StatusConfirmed}
	admissionBlocking = []models.ReservationStatus{models.StatusPending, models.StatusConfirmed}
)

// Rules are the booking policy knobs.
type Rules struct {
	GranularityMinutes int
	AllowedDurations   []int
	MinAdvance         time.Duration
	MaxAdvance         time.Duration
}

func (r Rules) durationAllowed(minutes int) bool {
	if len(r.AllowedDurations) == 0 {
		return minutes > 0
	}
	for _, d := range r.AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

func (r Rules) granularity() int {
	if r.GranularityMinutes <= 0 {
		return DefaultGranularityMinutes
	}
	return r.GranularityMinutes
}

// Service ties the resolver, slot generator and conflict filter to the
// stores and guards admission with a per-staff-day lock.
type Service struct {
	schedules ScheduleStore
	bookings  BookingStore
	rules     Rules
	locks     *KeyedLock
	lockWait  time.Duration
	now       func() time.Time
	log       *zerolog.Logger
}

// NewService builds a Service. lockWait bounds how long an admission
// request waits for the staff-day lock before failing retryably.
func NewService(schedules ScheduleStore, bookings BookingStore, rules Rules, lockWait time.Duration, logger *zerolog.Logger) *Service {
	if lockWait <= 0 {
		lockWait = 5 * time.Second
	}
	return &Service{
		schedules: schedules,
		bookings:  bookings,
		rules:     rules,
		locks:     NewKeyedLock(),
		lockWait:  lockWait,
		now:       time.Now,
		log:       logger,
	}
}

// DayAvailability is one date's free slots within a range query.
type DayAvailability struct {
	Date    string              `json:"date"`
	Working bool                `json:"working"`
	Slots   []timeslot.Interval `json:"-"`

	// SlotStarts mirrors Slots for JSON output as "HH:MM" strings.
	SlotStarts []timeslot.TimeOfDay `json:"slots"`
}

// resolveFor loads schedule data and resolves the working window,
// logging and counting schedule gaps.
func (s *Service) resolveFor(ctx context.Context, staffID string, date time.Time) (ResolvedWindow, error) {
	weekly, err := s.schedules.GetWeeklySchedule(ctx, staffID)
	if err != nil {
		return ResolvedWindow{}, fmt.Errorf("loading weekly schedule: %w", err)
	}
	exception, err := s.schedules.GetException(ctx, staffID, models.FormatDate(date))
	if err != nil {
		return ResolvedWindow{}, fmt.Errorf("loading schedule exception: %w", err)
	}

	resolved := ResolveWindow(weekly, exception, date)
	if resolved.MissingWeeklyEntry {
		metrics.IncScheduleGap()
		s.log.Warn().
			Str("staff", staffID).
			Str("date", models.FormatDate(date)).
			Int("day_of_week", int(date.Weekday())).
			Msg("no weekly schedule entry for this weekday, treating as not working")
	}
	return resolved, nil
}

// GetAvailableSlots returns the free slot starts for one staff member
// on one date. Only confirmed reservations block a slot here.
// Returns ErrNotWorking when the staff member has no window that day.
func (s *Service) GetAvailableSlots(ctx context.Context, staffID string, date time.Time, durationMinutes int) ([]timeslot.Interval, error) {
	metrics.IncAvailabilityQuery()

	if !s.rules.durationAllowed(durationMinutes) {
		return nil, fmt.Errorf("%w: %d minutes", ErrDurationNotAllowed, durationMinutes)
	}

	resolved, err := s.resolveFor(ctx, staffID, date)
	if err != nil {
		return nil, err
	}
	if !resolved.Working {
		return nil, ErrNotWorking
	}

	existing, err := s.bookings.ListReservations(ctx, staffID, models.FormatDate(date), displayBlocking)
	if err != nil {
		return nil, fmt.Errorf("loading reservations: %w", err)
	}

	it := NewSlotIterator(resolved.Window, durationMinutes, s.rules.granularity())
	return FilterConflicts(it.Collect(), existing), nil
}

// GetAvailabilityCalendar resolves availability for every date in
// [from, to]. Non-working days appear with Working=false and no slots
// instead of failing the whole range.
func (s *Service) GetAvailabilityCalendar(ctx context.Context, staffID string, from, to time.Time, durationMinutes int) ([]DayAvailability, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s precedes start %s", models.FormatDate(to), models.FormatDate(from))
	}

	var days []DayAvailability
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		slots, err := s.GetAvailableSlots(ctx, staffID, d, durationMinutes)
		day := DayAvailability{Date: models.FormatDate(d)}
		switch {
		case err == nil:
			day.Working = true
			day.Slots = slots
			day.SlotStarts = make([]timeslot.TimeOfDay, 0, len(slots))
			for _, iv := range slots {
				day.SlotStarts = append(day.SlotStarts, iv.Start)
			}
		case errors.Is(err, ErrNotWorking):
			// day stays non-working
		default:
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// checkBookingWindow enforces the min/max advance policy against the
// start of the requested slot.
func (s *Service) checkBookingWindow(date time.Time, start timeslot.TimeOfDay) error {
	slotAt := start.On(date)
	now := s.now()

	if s.rules.MinAdvance > 0 && slotAt.Before(now.Add(s.rules.MinAdvance)) {
		return fmt.Errorf("%w: slot starts too soon", ErrOutsideBookingWindow)
	}
	if s.rules.MaxAdvance > 0 && slotAt.After(now.Add(s.rules.MaxAdvance)) {
		return fmt.Errorf("%w: slot starts too far ahead", ErrOutsideBookingWindow)
	}
	return nil
}

// RequestBooking runs the admission procedure: validate, take the
// staff-day lock with a bounded wait, re-resolve the window, re-check
// conflicts, then insert atomically. On success the stored reservation
// is returned with status pending.
func (s *Service) RequestBooking(ctx context.Context, req models.Reservation) (*models.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.rules.durationAllowed(req.DurationMinutes) {
		return nil, fmt.Errorf("%w: %d minutes", ErrDurationNotAllowed, req.DurationMinutes)
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.checkBookingWindow(date, req.StartTime); err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	release, err := s.locks.Acquire(lockCtx, req.StaffID+"|"+req.Date)
	if err != nil {
		metrics.IncAdmissionLockTimeout()
		s.log.Warn().
			Str("staff", req.StaffID).
			Str("date", req.Date).
			Msg("booking lock wait exceeded")
		return nil, ErrLockTimeout
	}
	defer release()

	resolved, err := s.resolveFor(ctx, req.StaffID, date)
	if err != nil {
		return nil, err
	}
	if !resolved.Working {
		return nil, ErrNotWorking
	}

	slot := req.Interval()
	if !resolved.Window.Contains(slot) {
		return nil, ErrNotWorking
	}
	if (slot.Start-resolved.Window.Start).Minutes()%s.rules.granularity() != 0 {
		return nil, ErrSlotMisaligned
	}

	existing, err := s.bookings.ListReservations(ctx, req.StaffID, req.Date, admissionBlocking)
	if err != nil {
		return nil, fmt.Errorf("loading reservations: %w", err)
	}
	if HasConflict(slot, existing) {
		metrics.IncAdmissionConflict()
		return nil, ErrSlotConflict
	}

	now := s.now()
	stored := req
	stored.ID = uuid.NewString()
	stored.Status = models.StatusPending
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := s.bookings.InsertReservationIfFree(ctx, stored, admissionBlocking); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			metrics.IncAdmissionConflict()
		}
		return nil, err
	}

	metrics.IncReservationCreated(string(stored.Status))
	s.log.Info().
		Str("reservation_id", stored.ID).
		Str("staff", stored.StaffID).
		Str("date", stored.Date).
		Str("slot", slot.String()).
		Msg("reservation admitted")
	return &stored, nil
}

// transition moves a reservation to the target status if the lifecycle
// allows it.
func (s *Service) transition(ctx context.Context, id string, to models.ReservationStatus) (*models.Reservation, error) {
	r, err := s.bookings.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(r.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, r.Status, to)
	}
	if err := s.bookings.UpdateReservationStatus(ctx, id, r.Status, to); err != nil {
		return nil, err
	}

	metrics.IncStaffDecision(string(to))
	s.log.Info().
		Str("reservation_id", id).
		Str("from", string(r.Status)).
		Str("to", string(to)).
		Msg("reservation status updated")

	r.Status = to
	r.UpdatedAt = s.now()
	return r, nil
}

// ConfirmReservation moves a pending reservation to confirmed.
func (s *Service) ConfirmReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusConfirmed)
}

// CancelReservation cancels a pending or confirmed reservation.
// Canceled rows are kept for history and stop blocking their slot.
func (s *Service) CancelReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusCanceled)
}
