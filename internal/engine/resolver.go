package engine

import (
	"time"

	"github.com/soyoshik-git/bro-reserve/internal/models"
	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

// ResolvedWindow is the outcome of availability resolution for one
// staff member on one calendar date.
type ResolvedWindow struct {
	Working bool
	Window  timeslot.Interval

	// MissingWeeklyEntry is set when no weekly entry existed for the
	// date's day of week and no exception covered the date. The day
	// degrades to non-working; callers should log the gap.
	MissingWeeklyEntry bool
}

// ResolveWindow computes the effective working window for a date from
// the weekly schedule and any date exception. An exception fully
// replaces the weekly entry for its date, including its hours: a
// weekly entry's hours never leak through an override.
func ResolveWindow(weekly []models.WeeklyScheduleEntry, exception *models.ScheduleException, date time.Time) ResolvedWindow {
	if exception != nil {
		if !exception.IsWorking {
			return ResolvedWindow{Working: false}
		}
		return ResolvedWindow{Working: true, Window: exception.Window()}
	}

	dow := int(date.Weekday())
	for _, e := range weekly {
		if e.DayOfWeek != dow {
			continue
		}
		if !e.IsWorking {
			return ResolvedWindow{Working: false}
		}
		return ResolvedWindow{Working: true, Window: e.Window()}
	}

	// No entry for this weekday: treat as not working rather than
	// inventing hours, and flag the schedule gap.
	return ResolvedWindow{Working: false, MissingWeeklyEntry: true}
}
