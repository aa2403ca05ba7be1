package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/soyoshik-git/bro-reserve/internal/engine"
	"github.com/soyoshik-git/bro-reserve/internal/models"
	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

// GetWeeklySchedule returns all weekly entries for a staff member,
// ordered by day of week. An empty result is not an error.
func (db *DB) GetWeeklySchedule(ctx context.Context, staffID string) ([]models.WeeklyScheduleEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT staff, day_of_week, is_working, start_time, end_time
		FROM staff_schedules
		WHERE staff = ?
		ORDER BY day_of_week`, staffID)
	if err != nil {
		return nil, fmt.Errorf("querying weekly schedule: %w", err)
	}
	defer rows.Close()

	var entries []models.WeeklyScheduleEntry
	for rows.Next() {
		var e models.WeeklyScheduleEntry
		if err := rows.Scan(&e.StaffID, &e.DayOfWeek, &e.IsWorking, &e.StartTime, &e.EndTime); err != nil {
			return nil, fmt.Errorf("scanning weekly schedule: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertWeeklyEntry creates or replaces one weekday's entry.
func (db *DB) UpsertWeeklyEntry(ctx context.Context, e models.WeeklyScheduleEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO staff_schedules (staff, day_of_week, is_working, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(staff, day_of_week) DO UPDATE SET
			is_working = excluded.is_working,
			start_time = excluded.start_time,
			end_time = excluded.end_time`,
		e.StaffID, e.DayOfWeek, e.IsWorking, e.StartTime, e.EndTime)
	if err != nil {
		return fmt.Errorf("upserting weekly entry: %w", err)
	}
	return nil
}

// EnsureDefaultSchedules seeds a weekly schedule for each staff member
// that has none: defaultStart-defaultEnd every day except Sunday.
// Existing rows are left untouched.
func (db *DB) EnsureDefaultSchedules(ctx context.Context, staff []string, defaultStart, defaultEnd timeslot.TimeOfDay) error {
	for _, staffID := range staff {
		var count int
		if err := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM staff_schedules WHERE staff = ?`, staffID).Scan(&count); err != nil {
			return fmt.Errorf("checking schedule for %s: %w", staffID, err)
		}
		if count > 0 {
			continue
		}

		for dow := 0; dow < 7; dow++ {
			entry := models.WeeklyScheduleEntry{
				StaffID:   staffID,
				DayOfWeek: dow,
				IsWorking: dow != 0,
				StartTime: defaultStart,
				EndTime:   defaultEnd,
			}
			if err := db.UpsertWeeklyEntry(ctx, entry); err != nil {
				return err
			}
		}
		db.logger.Info().Str("staff", staffID).Msg("seeded default weekly schedule")
	}
	return nil
}

// GetException returns the exception for a staff member and date, or
// nil when none exists.
func (db *DB) GetException(ctx context.Context, staffID, date string) (*models.ScheduleException, error) {
	var x models.ScheduleException
	var start, end sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, staff, date, is_working, start_time, end_time, note, created_at
		FROM staff_exceptions
		WHERE staff = ? AND date = ?`, staffID, date).
		Scan(&x.ID, &x.StaffID, &x.Date, &x.IsWorking, &start, &end, &x.Note, &x.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying exception: %w", err)
	}

	if start.Valid && start.String != "" {
		if x.StartTime, err = timeslot.ParseTimeOfDay(start.String); err != nil {
			return nil, fmt.Errorf("exception %d start_time: %w", x.ID, err)
		}
	}
	if end.Valid && end.String != "" {
		if x.EndTime, err = timeslot.ParseTimeOfDay(end.String); err != nil {
			return nil, fmt.Errorf("exception %d end_time: %w", x.ID, err)
		}
	}
	return &x, nil
}

// CreateException inserts a new date override. A second exception for
// the same staff and date is rejected with ErrDuplicateException.
func (db *DB) CreateException(ctx context.Context, x models.ScheduleException) (int64, error) {
	if err := x.Validate(); err != nil {
		return 0, err
	}

	start, end := "", ""
	if x.IsWorking {
		start, end = x.StartTime.String(), x.EndTime.String()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO staff_exceptions (staff, date, is_working, start_time, end_time, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		x.StaffID, x.Date, x.IsWorking, start, end, x.Note)
	if isUniqueViolation(err) {
		return 0, engine.ErrDuplicateException
	}
	if err != nil {
		return 0, fmt.Errorf("inserting exception: %w", err)
	}
	return res.LastInsertId()
}

// DeleteException removes a date override by id.
func (db *DB) DeleteException(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM staff_exceptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting exception: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("exception %d not found", id)
	}
	return nil
}

// ListExceptions returns a staff member's overrides in a date range,
// oldest first.
func (db *DB) ListExceptions(ctx context.Context, staffID, from, to string) ([]models.ScheduleException, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, staff, date, is_working, start_time, end_time, note, created_at
		FROM staff_exceptions
		WHERE staff = ? AND date >= ? AND date <= ?
		ORDER BY date`, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying exceptions: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduleException
	for rows.Next() {
		var x models.ScheduleException
		var start, end sql.NullString
		if err := rows.Scan(&x.ID, &x.StaffID, &x.Date, &x.IsWorking, &start, &end, &x.Note, &x.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exception: %w", err)
		}
		if start.Valid && start.String != "" {
			if x.StartTime, err = timeslot.ParseTimeOfDay(start.String); err != nil {
				return nil, fmt.Errorf("exception %d start_time: %w", x.ID, err)
			}
		}
		if end.Valid && end.String != "" {
			if x.EndTime, err = timeslot.ParseTimeOfDay(end.String); err != nil {
				return nil, fmt.Errorf("exception %d end_time: %w", x.ID, err)
			}
		}
		out = append(out, x)
	}
	return out, rows.Err()
}
