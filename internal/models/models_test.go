package models

import (
	"testing"

	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ReservationStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCanceled, true},
		{StatusConfirmed, StatusCanceled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCanceled, StatusPending, false},
		{StatusCanceled, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
		{ReservationStatus("ghost"), StatusConfirmed, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []ReservationStatus{StatusPending, StatusConfirmed, StatusCanceled} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if ValidStatus("approved") {
		t.Error("ValidStatus(approved) should be false")
	}
}

func TestReservationOverlapsWith(t *testing.T) {
	base := Reservation{
		StaffID:         "Koshi",
		Date:            "2026-09-14",
		StartTime:       600, // 10:00
		DurationMinutes: 60,
	}

	tests := []struct {
		name  string
		other Reservation
		want  bool
	}{
		{"same slot", Reservation{StaffID: "Koshi", Date: "2026-09-14", StartTime: 600, DurationMinutes: 60}, true},
		{"touching after", Reservation{StaffID: "Koshi", Date: "2026-09-14", StartTime: 660, DurationMinutes: 60}, false},
		{"touching before", Reservation{StaffID: "Koshi", Date: "2026-09-14", StartTime: 540, DurationMinutes: 60}, false},
		{"overlapping tail", Reservation{StaffID: "Koshi", Date: "2026-09-14", StartTime: 630, DurationMinutes: 60}, true},
		{"different staff", Reservation{StaffID: "Asuka", Date: "2026-09-14", StartTime: 600, DurationMinutes: 60}, false},
		{"different date", Reservation{StaffID: "Koshi", Date: "2026-09-15", StartTime: 600, DurationMinutes: 60}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.OverlapsWith(tt.other); got != tt.want {
				t.Errorf("OverlapsWith = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReservationValidate(t *testing.T) {
	valid := Reservation{
		StaffID:         "Ryuki",
		Date:            "2026-09-14",
		StartTime:       600,
		DurationMinutes: 90,
		CustomerName:    "Tanaka",
		Status:          StatusPending,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid reservation rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Reservation)
	}{
		{"missing staff", func(r *Reservation) { r.StaffID = "" }},
		{"bad date", func(r *Reservation) { r.Date = "14/09/2026" }},
		{"zero duration", func(r *Reservation) { r.DurationMinutes = 0 }},
		{"negative duration", func(r *Reservation) { r.DurationMinutes = -30 }},
		{"past end of day", func(r *Reservation) { r.StartTime = 1410; r.DurationMinutes = 60 }},
		{"missing name", func(r *Reservation) { r.CustomerName = "" }},
		{"unknown status", func(r *Reservation) { r.Status = "approved" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWeeklyScheduleEntryValidate(t *testing.T) {
	valid := WeeklyScheduleEntry{
		StaffID:   "Koshi",
		DayOfWeek: 1,
		IsWorking: true,
		StartTime: 600,
		EndTime:   1200,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	dayOff := WeeklyScheduleEntry{StaffID: "Koshi", DayOfWeek: 0, IsWorking: false}
	if err := dayOff.Validate(); err != nil {
		t.Errorf("day off should not require hours: %v", err)
	}

	inverted := valid
	inverted.StartTime, inverted.EndTime = inverted.EndTime, inverted.StartTime
	if err := inverted.Validate(); err == nil {
		t.Error("inverted window should be rejected")
	}

	badDay := valid
	badDay.DayOfWeek = 7
	if err := badDay.Validate(); err == nil {
		t.Error("day_of_week 7 should be rejected")
	}
}

func TestScheduleExceptionValidate(t *testing.T) {
	valid := ScheduleException{
		StaffID:   "Asuka",
		Date:      "2026-09-20",
		IsWorking: true,
		StartTime: 720,
		EndTime:   1080,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid exception rejected: %v", err)
	}

	closed := ScheduleException{StaffID: "Asuka", Date: "2026-09-20", IsWorking: false}
	if err := closed.Validate(); err != nil {
		t.Errorf("closed-day exception should not require hours: %v", err)
	}

	badDate := valid
	badDate.Date = "tomorrow"
	if err := badDate.Validate(); err == nil {
		t.Error("bad date should be rejected")
	}
}

func TestReservationInterval(t *testing.T) {
	r := Reservation{StartTime: 600, DurationMinutes: 120}
	want := timeslot.Interval{Start: 600, End: 720}
	if r.Interval() != want {
		t.Errorf("Interval = %v, want %v", r.Interval(), want)
	}
	if r.EndTime() != 720 {
		t.Errorf("EndTime = %v, want 12:00", r.EndTime())
	}
}
