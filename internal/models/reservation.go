package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCanceled  ReservationStatus = "canceled"
)

// ErrInvalidTransition is returned when a status change is not allowed
// by the lifecycle rules.
var ErrInvalidTransition = errors.New("invalid reservation status transition")

// allowedTransitions encodes the reservation lifecycle: a pending
// reservation can be confirmed or canceled, a confirmed one canceled.
// Canceled is terminal. Reservations are never deleted.
var allowedTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCanceled},
	StatusCanceled:  {},
}

// ValidStatus reports whether s is a known reservation status.
func ValidStatus(s ReservationStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether a reservation may move from one status
// to another.
func CanTransition(from, to ReservationStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Reservation is a booked appointment slot for one staff member.
type Reservation struct {
	ID              string             `json:"id"`
	StaffID         string             `json:"staff"`
	Date            string             `json:"date"`
	StartTime       timeslot.TimeOfDay `json:"start_time"`
	DurationMinutes int                `json:"duration_minutes"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone,omitempty"`
	CustomerEmail   string             `json:"customer_email,omitempty"`
	Note            string             `json:"note,omitempty"`
	Status          ReservationStatus  `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// EndTime returns the exclusive end of the reserved interval.
func (r Reservation) EndTime() timeslot.TimeOfDay {
	return r.StartTime.Add(r.DurationMinutes)
}

// Interval returns the reserved time range as a half-open interval.
func (r Reservation) Interval() timeslot.Interval {
	return timeslot.NewInterval(r.StartTime, r.DurationMinutes)
}

// OverlapsWith reports whether two reservations on the same staff and
// date occupy overlapping time. Touching reservations do not overlap.
func (r Reservation) OverlapsWith(other Reservation) bool {
	if r.StaffID != other.StaffID || r.Date != other.Date {
		return false
	}
	return r.Interval().Overlaps(other.Interval())
}

// Validate checks the fields required before admission.
func (r Reservation) Validate() error {
	if r.StaffID == "" {
		return fmt.Errorf("staff id is required")
	}
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	if !r.StartTime.Valid() {
		return fmt.Errorf("start_time out of range")
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d", r.DurationMinutes)
	}
	if !r.EndTime().Valid() {
		return fmt.Errorf("reservation extends past end of day")
	}
	if r.CustomerName == "" {
		return fmt.Errorf("customer name is required")
	}
	if r.Status != "" && !ValidStatus(r.Status) {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}
