package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyoshik-git/bro-reserve/internal/engine"
	"github.com/soyoshik-git/bro-reserve/internal/models"
	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := New(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tod(t *testing.T, s string) timeslot.TimeOfDay {
	t.Helper()
	v, err := timeslot.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func TestMigrationsAreIdempotent(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := New(path, &logger)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening runs createTables again against existing tables.
	db, err = New(path, &logger)
	require.NoError(t, err)
	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.Close())
}

func TestWeeklyScheduleRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := models.WeeklyScheduleEntry{
		StaffID:   "Koshi",
		DayOfWeek: 1,
		IsWorking: true,
		StartTime: tod(t, "10:00"),
		EndTime:   tod(t, "20:00"),
	}
	require.NoError(t, db.UpsertWeeklyEntry(ctx, entry))

	got, err := db.GetWeeklySchedule(ctx, "Koshi")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry, got[0])

	// Upsert replaces the same weekday.
	entry.EndTime = tod(t, "18:00")
	require.NoError(t, db.UpsertWeeklyEntry(ctx, entry))
	got, err = db.GetWeeklySchedule(ctx, "Koshi")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "18:00", got[0].EndTime.String())

	empty, err := db.GetWeeklySchedule(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEnsureDefaultSchedules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start, end := tod(t, "10:00"), tod(t, "20:00")

	require.NoError(t, db.EnsureDefaultSchedules(ctx, []string{"Koshi", "Asuka"}, start, end))

	got, err := db.GetWeeklySchedule(ctx, "Koshi")
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.False(t, got[0].IsWorking, "Sunday defaults to a day off")
	for _, e := range got[1:] {
		assert.True(t, e.IsWorking)
		assert.Equal(t, start, e.StartTime)
		assert.Equal(t, end, e.EndTime)
	}

	// Existing schedules are not overwritten.
	custom := models.WeeklyScheduleEntry{StaffID: "Koshi", DayOfWeek: 1, IsWorking: true, StartTime: tod(t, "12:00"), EndTime: tod(t, "16:00")}
	require.NoError(t, db.UpsertWeeklyEntry(ctx, custom))
	require.NoError(t, db.EnsureDefaultSchedules(ctx, []string{"Koshi"}, start, end))
	got, err = db.GetWeeklySchedule(ctx, "Koshi")
	require.NoError(t, err)
	assert.Equal(t, "12:00", got[1].StartTime.String())
}

func TestExceptions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	missing, err := db.GetException(ctx, "Koshi", "2026-09-14")
	require.NoError(t, err)
	assert.Nil(t, missing, "absence of an exception is not an error")

	exc := models.ScheduleException{
		StaffID:   "Koshi",
		Date:      "2026-09-14",
		IsWorking: true,
		StartTime: tod(t, "12:00"),
		EndTime:   tod(t, "15:00"),
		Note:      "short day",
	}
	id, err := db.CreateException(ctx, exc)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := db.GetException(ctx, "Koshi", "2026-09-14")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsWorking)
	assert.Equal(t, "12:00", got.StartTime.String())
	assert.Equal(t, "15:00", got.EndTime.String())
	assert.Equal(t, "short day", got.Note)

	// One exception per staff and date.
	_, err = db.CreateException(ctx, exc)
	assert.ErrorIs(t, err, engine.ErrDuplicateException)

	// Closed-day exception stores no hours.
	closedID, err := db.CreateException(ctx, models.ScheduleException{StaffID: "Koshi", Date: "2026-09-15", IsWorking: false})
	require.NoError(t, err)

	list, err := db.ListExceptions(ctx, "Koshi", "2026-09-01", "2026-09-30")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-09-14", list[0].Date)

	require.NoError(t, db.DeleteException(ctx, closedID))
	assert.Error(t, db.DeleteException(ctx, closedID), "deleting twice should fail")
}

func testReservation(t *testing.T, start string, duration int) models.Reservation {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	return models.Reservation{
		ID:              uuid.NewString(),
		StaffID:         "Koshi",
		Date:            "2026-09-14",
		StartTime:       tod(t, start),
		DurationMinutes: duration,
		CustomerName:    "Tanaka",
		CustomerPhone:   "090-0000-0000",
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

var allStatuses = []models.ReservationStatus{models.StatusPending, models.StatusConfirmed, models.StatusCanceled}

func TestInsertReservationIfFree(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := testReservation(t, "11:00", 60)
	require.NoError(t, db.InsertReservationIfFree(ctx, first, allStatuses))

	t.Run("overlap rejected", func(t *testing.T) {
		overlap := testReservation(t, "11:30", 60)
		err := db.InsertReservationIfFree(ctx, overlap, allStatuses)
		assert.ErrorIs(t, err, engine.ErrSlotConflict)
	})

	t.Run("touching slot admitted", func(t *testing.T) {
		touching := testReservation(t, "12:00", 60)
		require.NoError(t, db.InsertReservationIfFree(ctx, touching, allStatuses))
	})

	t.Run("canceled rows do not block", func(t *testing.T) {
		canceled := testReservation(t, "14:00", 60)
		canceled.Status = models.StatusCanceled
		require.NoError(t, db.InsertReservationIfFree(ctx, canceled, allStatuses))

		blocking := []models.ReservationStatus{models.StatusPending, models.StatusConfirmed}
		replacement := testReservation(t, "14:00", 60)
		require.NoError(t, db.InsertReservationIfFree(ctx, replacement, blocking))
	})

	t.Run("other staff unaffected", func(t *testing.T) {
		other := testReservation(t, "11:00", 60)
		other.StaffID = "Asuka"
		require.NoError(t, db.InsertReservationIfFree(ctx, other, allStatuses))
	})
}

func TestInsertReservationConcurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	blocking := []models.ReservationStatus{models.StatusPending, models.StatusConfirmed}

	const attempts = 6
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- db.InsertReservationIfFree(ctx, testReservation(t, "11:00", 60), blocking)
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, engine.ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent insert must win")
	assert.Equal(t, attempts-1, conflicts)
}

func TestReservationLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := testReservation(t, "11:00", 90)
	require.NoError(t, db.InsertReservationIfFree(ctx, r, allStatuses))

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "11:00", got.StartTime.String())
	assert.Equal(t, 90, got.DurationMinutes)

	require.NoError(t, db.UpdateReservationStatus(ctx, r.ID, models.StatusPending, models.StatusConfirmed))

	// Guarded update: the row is no longer pending.
	err = db.UpdateReservationStatus(ctx, r.ID, models.StatusPending, models.StatusCanceled)
	assert.ErrorIs(t, err, engine.ErrStatusConflict)

	require.NoError(t, db.UpdateReservationStatus(ctx, r.ID, models.StatusConfirmed, models.StatusCanceled))

	got, err = db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status, "canceled rows stay on record")

	err = db.UpdateReservationStatus(ctx, "missing-id", models.StatusPending, models.StatusConfirmed)
	assert.ErrorIs(t, err, engine.ErrReservationNotFound)

	_, err = db.GetReservation(ctx, "missing-id")
	assert.ErrorIs(t, err, engine.ErrReservationNotFound)
}

func TestListReservations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := testReservation(t, "11:00", 60)
	b := testReservation(t, "13:00", 60)
	require.NoError(t, db.InsertReservationIfFree(ctx, a, allStatuses))
	require.NoError(t, db.InsertReservationIfFree(ctx, b, allStatuses))
	require.NoError(t, db.UpdateReservationStatus(ctx, b.ID, models.StatusPending, models.StatusConfirmed))

	confirmed, err := db.ListReservations(ctx, "Koshi", "2026-09-14", []models.ReservationStatus{models.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, b.ID, confirmed[0].ID)

	both, err := db.ListReservations(ctx, "Koshi", "2026-09-14", []models.ReservationStatus{models.StatusPending, models.StatusConfirmed})
	require.NoError(t, err)
	assert.Len(t, both, 2)
	assert.Equal(t, a.ID, both[0].ID, "ordered by start time")

	none, err := db.ListReservations(ctx, "Koshi", "2026-09-14", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListReservationsRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	early := testReservation(t, "11:00", 60)
	early.Date = "2026-09-10"
	late := testReservation(t, "11:00", 60)
	late.Date = "2026-09-20"
	other := testReservation(t, "11:00", 60)
	other.Date = "2026-09-12"
	other.StaffID = "Asuka"

	for _, r := range []models.Reservation{early, late, other} {
		require.NoError(t, db.InsertReservationIfFree(ctx, r, allStatuses))
	}
	require.NoError(t, db.UpdateReservationStatus(ctx, early.ID, models.StatusPending, models.StatusConfirmed))

	all, err := db.ListReservationsRange(ctx, "", "2026-09-01", "2026-09-30", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "2026-09-10", all[0].Date, "ordered by date")

	koshi, err := db.ListReservationsRange(ctx, "Koshi", "2026-09-01", "2026-09-30", false)
	require.NoError(t, err)
	assert.Len(t, koshi, 2)

	pending, err := db.ListReservationsRange(ctx, "Koshi", "2026-09-01", "2026-09-30", true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, late.ID, pending[0].ID)

	narrow, err := db.ListReservationsRange(ctx, "", "2026-09-11", "2026-09-15", false)
	require.NoError(t, err)
	assert.Len(t, narrow, 1)
}
