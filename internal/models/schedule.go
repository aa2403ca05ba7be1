package models

import (
	"fmt"
	"time"

	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

// DateLayout is the canonical calendar-date format used in storage
// and over the API.
const DateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders a calendar date as "YYYY-MM-DD".
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// WeeklyScheduleEntry describes a staff member's recurring hours for one
// day of the week. DayOfWeek follows time.Weekday: 0 is Sunday.
type WeeklyScheduleEntry struct {
	StaffID   string             `json:"staff"`
	DayOfWeek int                `json:"day_of_week"`
	IsWorking bool               `json:"is_working"`
	StartTime timeslot.TimeOfDay `json:"start_time"`
	EndTime   timeslot.TimeOfDay `json:"end_time"`
}

// Window returns the working window as a half-open interval.
func (e WeeklyScheduleEntry) Window() timeslot.Interval {
	return timeslot.Interval{Start: e.StartTime, End: e.EndTime}
}

// Validate checks internal consistency of the entry.
func (e WeeklyScheduleEntry) Validate() error {
	if e.StaffID == "" {
		return fmt.Errorf("staff id is required")
	}
	if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be 0..6, got %d", e.DayOfWeek)
	}
	if !e.IsWorking {
		return nil
	}
	if !e.StartTime.Valid() || !e.EndTime.Valid() {
		return fmt.Errorf("working hours out of range")
	}
	if e.EndTime <= e.StartTime {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}

// ScheduleException overrides the weekly schedule for a single staff
// member on a single calendar date. When set, it replaces the weekly
// entry entirely for that date.
type ScheduleException struct {
	ID        int64              `json:"id"`
	StaffID   string             `json:"staff"`
	Date      string             `json:"date"`
	IsWorking bool               `json:"is_working"`
	StartTime timeslot.TimeOfDay `json:"start_time"`
	EndTime   timeslot.TimeOfDay `json:"end_time"`
	Note      string             `json:"note,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Window returns the override working window as a half-open interval.
func (x ScheduleException) Window() timeslot.Interval {
	return timeslot.Interval{Start: x.StartTime, End: x.EndTime}
}

// Validate checks internal consistency of the exception.
func (x ScheduleException) Validate() error {
	if x.StaffID == "" {
		return fmt.Errorf("staff id is required")
	}
	if _, err := ParseDate(x.Date); err != nil {
		return err
	}
	if !x.IsWorking {
		return nil
	}
	if !x.StartTime.Valid() || !x.EndTime.Valid() {
		return fmt.Errorf("working hours out of range")
	}
	if x.EndTime <= x.StartTime {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}
