package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/soyoshik-git/bro-reserve/internal/engine"
	"github.com/soyoshik-git/bro-reserve/internal/models"
)

const reservationColumns = `id, staff, date, start_time, duration_minutes,
	customer_name, customer_phone, customer_email, note, status, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(&r.ID, &r.StaffID, &r.Date, &r.StartTime, &r.DurationMinutes,
		&r.CustomerName, &r.CustomerPhone, &r.CustomerEmail, &r.Note, &r.Status,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func statusPlaceholders(statuses []models.ReservationStatus) (string, []any) {
	marks := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		marks[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(marks, ", "), args
}

// ListReservations returns a staff member's reservations on one date,
// filtered to the given statuses, ordered by start time.
func (db *DB) ListReservations(ctx context.Context, staffID, date string, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	marks, statusArgs := statusPlaceholders(statuses)
	args := append([]any{staffID, date}, statusArgs...)

	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM reservations
		WHERE staff = ? AND date = ? AND status IN (%s)
		ORDER BY start_time`, reservationColumns, marks), args...)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertReservationIfFree inserts the reservation only if no blocking
// reservation overlaps its interval, in a single transaction. The
// _txlock=immediate DSN setting makes the transaction take the sqlite
// write lock up front, so the check and the insert are atomic.
func (db *DB) InsertReservationIfFree(ctx context.Context, r models.Reservation, blocking []models.ReservationStatus) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	marks, statusArgs := statusPlaceholders(blocking)
	args := append([]any{r.StaffID, r.Date}, statusArgs...)

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT start_time, duration_minutes FROM reservations
		WHERE staff = ? AND date = ? AND status IN (%s)`, marks), args...)
	if err != nil {
		return fmt.Errorf("checking conflicts: %w", err)
	}

	candidate := r.Interval()
	conflict := false
	for rows.Next() {
		var other models.Reservation
		if err := rows.Scan(&other.StartTime, &other.DurationMinutes); err != nil {
			rows.Close()
			return fmt.Errorf("scanning conflict row: %w", err)
		}
		if candidate.Overlaps(other.Interval()) {
			conflict = true
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checking conflicts: %w", err)
	}
	if conflict {
		return engine.ErrSlotConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, staff, date, start_time, duration_minutes,
			customer_name, customer_phone, customer_email, note, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StaffID, r.Date, r.StartTime, r.DurationMinutes,
		r.CustomerName, r.CustomerPhone, r.CustomerEmail, r.Note, string(r.Status),
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reservation: %w", err)
	}
	return nil
}

// GetReservation loads one reservation by id.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM reservations WHERE id = ?`, reservationColumns), id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return &r, nil
}

// UpdateReservationStatus moves a reservation from one status to
// another. The WHERE clause guards against a concurrent transition:
// when the row is no longer in the expected status, ErrStatusConflict
// is returned and nothing changes.
func (db *DB) UpdateReservationStatus(ctx context.Context, id string, from, to models.ReservationStatus) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("updating reservation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := db.conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM reservations WHERE id = ?)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking reservation: %w", err)
		}
		if !exists {
			return engine.ErrReservationNotFound
		}
		return engine.ErrStatusConflict
	}
	return nil
}

// ListReservationsRange returns reservations in [from, to] ordered by
// date then start time. staffID "" matches all staff; pendingOnly
// narrows to unreviewed requests.
func (db *DB) ListReservationsRange(ctx context.Context, staffID, from, to string, pendingOnly bool) ([]models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE date >= ? AND date <= ?`, reservationColumns)
	args := []any{from, to}
	if staffID != "" {
		query += ` AND staff = ?`
		args = append(args, staffID)
	}
	if pendingOnly {
		query += ` AND status = ?`
		args = append(args, string(models.StatusPending))
	}
	query += ` ORDER BY date, start_time`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
