package engine

import (
	"testing"
	"time"

	"github.com/soyoshik-git/bro-reserve/internal/models"
	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

func mustTime(t *testing.T, s string) timeslot.TimeOfDay {
	t.Helper()
	tod, err := timeslot.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tod
}

func weeklyAllDays(start, end timeslot.TimeOfDay) []models.WeeklyScheduleEntry {
	entries := make([]models.WeeklyScheduleEntry, 0, 7)
	for dow := 0; dow < 7; dow++ {
		entries = append(entries, models.WeeklyScheduleEntry{
			StaffID:   "Koshi",
			DayOfWeek: dow,
			IsWorking: dow != 0, // Sunday off
			StartTime: start,
			EndTime:   end,
		})
	}
	return entries
}

func TestResolveWindow(t *testing.T) {
	start := mustTime(t, "10:00")
	end := mustTime(t, "20:00")
	weekly := weeklyAllDays(start, end)

	monday := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC)

	t.Run("weekly entry applies", func(t *testing.T) {
		got := ResolveWindow(weekly, nil, monday)
		if !got.Working {
			t.Fatal("expected working")
		}
		if got.Window.Start != start || got.Window.End != end {
			t.Errorf("window = %v, want 10:00-20:00", got.Window)
		}
	})

	t.Run("weekly day off", func(t *testing.T) {
		got := ResolveWindow(weekly, nil, sunday)
		if got.Working {
			t.Fatal("expected not working on Sunday")
		}
		if got.MissingWeeklyEntry {
			t.Error("an explicit day off is not a schedule gap")
		}
	})

	t.Run("exception overrides hours entirely", func(t *testing.T) {
		exc := &models.ScheduleException{
			StaffID:   "Koshi",
			Date:      "2026-09-14",
			IsWorking: true,
			StartTime: mustTime(t, "12:00"),
			EndTime:   mustTime(t, "15:00"),
		}
		got := ResolveWindow(weekly, exc, monday)
		if !got.Working {
			t.Fatal("expected working")
		}
		if got.Window.Start != exc.StartTime || got.Window.End != exc.EndTime {
			t.Errorf("window = %v, want 12:00-15:00 (weekly hours must not leak through)", got.Window)
		}
	})

	t.Run("exception closes a working day", func(t *testing.T) {
		exc := &models.ScheduleException{StaffID: "Koshi", Date: "2026-09-14", IsWorking: false}
		got := ResolveWindow(weekly, exc, monday)
		if got.Working {
			t.Fatal("closed-day exception must win over weekly entry")
		}
	})

	t.Run("exception opens a day off", func(t *testing.T) {
		exc := &models.ScheduleException{
			StaffID:   "Koshi",
			Date:      "2026-09-13",
			IsWorking: true,
			StartTime: mustTime(t, "11:00"),
			EndTime:   mustTime(t, "16:00"),
		}
		got := ResolveWindow(weekly, exc, sunday)
		if !got.Working {
			t.Fatal("exception should open the Sunday")
		}
		if got.Window.String() != "11:00-16:00" {
			t.Errorf("window = %v", got.Window)
		}
	})

	t.Run("missing weekly entry degrades to not working", func(t *testing.T) {
		got := ResolveWindow(nil, nil, monday)
		if got.Working {
			t.Fatal("missing entry must not invent working hours")
		}
		if !got.MissingWeeklyEntry {
			t.Error("expected MissingWeeklyEntry flag")
		}
	})

	t.Run("exception covers missing weekly entry", func(t *testing.T) {
		exc := &models.ScheduleException{
			StaffID:   "Koshi",
			Date:      "2026-09-14",
			IsWorking: true,
			StartTime: start,
			EndTime:   end,
		}
		got := ResolveWindow(nil, exc, monday)
		if !got.Working || got.MissingWeeklyEntry {
			t.Errorf("exception alone should resolve the day: %+v", got)
		}
	})
}
