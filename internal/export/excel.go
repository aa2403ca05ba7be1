// Package export renders reservation reports as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/soyoshik-git/bro-reserve/internal/models"
)

var reportHeader = []string{
	"ID", "Date", "Start", "End", "Duration (min)",
	"Customer", "Phone", "Email", "Status", "Note", "Created",
}

// WriteReservationReport writes one sheet per staff member, each
// listing that staff member's reservations ordered by date and time.
func WriteReservationReport(w io.Writer, reservations []models.Reservation) error {
	f := excelize.NewFile()
	defer f.Close()

	byStaff := make(map[string][]models.Reservation)
	for _, r := range reservations {
		byStaff[r.StaffID] = append(byStaff[r.StaffID], r)
	}

	staff := make([]string, 0, len(byStaff))
	for s := range byStaff {
		staff = append(staff, s)
	}
	sort.Strings(staff)

	if len(staff) == 0 {
		if err := f.SetSheetName("Sheet1", "Reservations"); err != nil {
			return fmt.Errorf("renaming sheet: %w", err)
		}
		if err := writeSheet(f, "Reservations", nil); err != nil {
			return err
		}
	}

	for i, staffID := range staff {
		rows := byStaff[staffID]
		sort.Slice(rows, func(a, b int) bool {
			if rows[a].Date != rows[b].Date {
				return rows[a].Date < rows[b].Date
			}
			return rows[a].StartTime < rows[b].StartTime
		})

		if i == 0 {
			// excelize starts with a default sheet; rename it.
			if err := f.SetSheetName("Sheet1", staffID); err != nil {
				return fmt.Errorf("renaming sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(staffID); err != nil {
				return fmt.Errorf("adding sheet %s: %w", staffID, err)
			}
		}
		if err := writeSheet(f, staffID, rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows []models.Reservation) error {
	for col, title := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			r.ID, r.Date, r.StartTime.String(), r.EndTime().String(), r.DurationMinutes,
			r.CustomerName, r.CustomerPhone, r.CustomerEmail, string(r.Status), r.Note,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing row %d: %w", i+2, err)
			}
		}
	}
	return nil
}
