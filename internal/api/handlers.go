package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soyoshik-git/bro-reserve/internal/engine"
	"github.com/soyoshik-git/bro-reserve/internal/export"
	"github.com/soyoshik-git/bro-reserve/internal/models"
	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

type availabilityResponse struct {
	Staff    string               `json:"staff"`
	Date     string               `json:"date"`
	Duration int                  `json:"duration_minutes"`
	Working  bool                 `json:"working"`
	Slots    []timeslot.TimeOfDay `json:"slots"`
}

// GET /api/v1/availability?staff=Koshi&date=2026-09-14&duration=60
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	incEndpoint("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	staff := r.URL.Query().Get("staff")
	dateStr := r.URL.Query().Get("date")
	durationStr := r.URL.Query().Get("duration")
	if staff == "" || dateStr == "" || durationStr == "" {
		writeError(w, http.StatusBadRequest, "staff, date and duration are required")
		return
	}
	date, err := models.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	duration, err := strconv.Atoi(durationStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "duration must be minutes")
		return
	}

	if body, ok := s.cache.Get(r.Context(), staff, dateStr, duration); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	resp := availabilityResponse{Staff: staff, Date: dateStr, Duration: duration, Slots: []timeslot.TimeOfDay{}}
	slots, err := s.engine.GetAvailableSlots(r.Context(), staff, date, duration)
	switch {
	case err == nil:
		resp.Working = true
		for _, iv := range slots {
			resp.Slots = append(resp.Slots, iv.Start)
		}
	case errors.Is(err, engine.ErrNotWorking):
		// not working renders as an empty day, not a failure
	default:
		s.writeEngineError(w, err)
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.cache.Set(r.Context(), staff, dateStr, duration, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

type rangeRequest struct {
	Staff    string `json:"staff"`
	From     string `json:"from"`
	To       string `json:"to"`
	Duration int    `json:"duration_minutes"`
}

// POST /api/v1/availability/range
func (s *Server) handleAvailabilityRange(w http.ResponseWriter, r *http.Request) {
	incEndpoint("availability_range")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Staff == "" {
		writeError(w, http.StatusBadRequest, "staff is required")
		return
	}
	from, err := models.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := models.ParseDate(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to precedes from")
		return
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > s.opts.maxRangeDays() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("range exceeds %d days", s.opts.maxRangeDays()))
		return
	}

	days, err := s.engine.GetAvailabilityCalendar(r.Context(), req.Staff, from, to, req.Duration)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": req.Staff, "days": days})
}

type createReservationRequest struct {
	Staff         string `json:"staff"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Duration      int    `json:"duration_minutes"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	Note          string `json:"note"`
}

// POST /api/v1/reservations creates a booking request;
// GET /api/v1/reservations lists reservations in a date range.
func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createReservation(w, r)
	case http.MethodGet:
		s.listReservations(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	incEndpoint("reservations_create")

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := timeslot.ParseTimeOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservation := models.Reservation{
		StaffID:         req.Staff,
		Date:            req.Date,
		StartTime:       start,
		DurationMinutes: req.Duration,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		Note:            req.Note,
	}
	if err := reservation.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.engine.RequestBooking(r.Context(), reservation)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.cache.Invalidate(r.Context(), created.StaffID, created.Date)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listReservations(w http.ResponseWriter, r *http.Request) {
	incEndpoint("reservations_list")

	q := r.URL.Query()
	from := q.Get("from")
	to := q.Get("to")
	if from == "" || to == "" {
		// default to the next ten days, matching the booking page's
		// date picker horizon
		now := time.Now()
		from = models.FormatDate(now)
		to = models.FormatDate(now.AddDate(0, 0, 9))
	}
	if _, err := models.ParseDate(from); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := models.ParseDate(to); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pendingOnly := q.Get("pending_only") == "true"

	reservations, err := s.db.ListReservationsRange(r.Context(), q.Get("staff"), from, to, pendingOnly)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

// handleReservationByID covers GET /api/v1/reservations/{id} and
// POST /api/v1/reservations/{id}/confirm|cancel.
func (s *Server) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "reservation id required")
		return
	}

	parts := strings.Split(rest, "/")
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		incEndpoint("reservations_get")
		reservation, err := s.db.GetReservation(r.Context(), id)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservation)

	case len(parts) == 2 && parts[1] == "confirm" && r.Method == http.MethodPost:
		incEndpoint("reservations_confirm")
		s.decide(w, r, id, s.engine.ConfirmReservation)

	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		incEndpoint("reservations_cancel")
		s.decide(w, r, id, s.engine.CancelReservation)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, id string,
	apply func(ctx context.Context, id string) (*models.Reservation, error)) {
	updated, err := apply(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.cache.Invalidate(r.Context(), updated.StaffID, updated.Date)
	writeJSON(w, http.StatusOK, updated)
}

// GET /api/v1/reservations/export?from=&to=&staff=
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	incEndpoint("reservations_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if _, err := models.ParseDate(from); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := models.ParseDate(to); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservations, err := s.db.ListReservationsRange(r.Context(), q.Get("staff"), from, to, false)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="reservations_%s_%s.xlsx"`, from, to))
	if err := export.WriteReservationReport(w, reservations); err != nil {
		s.logger.Error().Err(err).Msg("writing export")
	}
}

// handleSchedule covers the weekly schedule and exception endpoints:
//
//	GET    /api/v1/schedule/{staff}
//	PUT    /api/v1/schedule/{staff}
//	GET    /api/v1/schedule/{staff}/exceptions?from=&to=
//	POST   /api/v1/schedule/{staff}/exceptions
//	DELETE /api/v1/schedule/{staff}/exceptions/{id}
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/schedule/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "staff required")
		return
	}
	parts := strings.Split(rest, "/")
	staff := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		incEndpoint("schedule_get")
		s.getWeeklySchedule(w, r, staff)
	case len(parts) == 1 && r.Method == http.MethodPut:
		incEndpoint("schedule_put")
		s.putWeeklySchedule(w, r, staff)
	case len(parts) == 2 && parts[1] == "exceptions" && r.Method == http.MethodGet:
		incEndpoint("exceptions_list")
		s.listExceptions(w, r, staff)
	case len(parts) == 2 && parts[1] == "exceptions" && r.Method == http.MethodPost:
		incEndpoint("exceptions_create")
		s.createException(w, r, staff)
	case len(parts) == 3 && parts[1] == "exceptions" && r.Method == http.MethodDelete:
		incEndpoint("exceptions_delete")
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid exception id")
			return
		}
		if err := s.db.DeleteException(r.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) getWeeklySchedule(w http.ResponseWriter, r *http.Request, staff string) {
	entries, err := s.db.GetWeeklySchedule(r.Context(), staff)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if entries == nil {
		entries = []models.WeeklyScheduleEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": staff, "schedule": entries})
}

func (s *Server) putWeeklySchedule(w http.ResponseWriter, r *http.Request, staff string) {
	var entries []models.WeeklyScheduleEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, e := range entries {
		e.StaffID = staff
		if err := e.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.db.UpsertWeeklyEntry(r.Context(), e); err != nil {
			s.writeEngineError(w, err)
			return
		}
		// weekly changes can shift any day of that staff's calendar
		s.invalidateUpcoming(r, staff)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) listExceptions(w http.ResponseWriter, r *http.Request, staff string) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		now := time.Now()
		from = models.FormatDate(now)
		to = models.FormatDate(now.AddDate(0, 3, 0))
	}
	exceptions, err := s.db.ListExceptions(r.Context(), staff, from, to)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if exceptions == nil {
		exceptions = []models.ScheduleException{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": staff, "exceptions": exceptions})
}

func (s *Server) createException(w http.ResponseWriter, r *http.Request, staff string) {
	var exc models.ScheduleException
	if err := json.NewDecoder(r.Body).Decode(&exc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	exc.StaffID = staff
	if err := exc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.db.CreateException(r.Context(), exc)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	exc.ID = id
	s.cache.Invalidate(r.Context(), staff, exc.Date)
	writeJSON(w, http.StatusCreated, exc)
}

// invalidateUpcoming bumps cache versions for the near-future dates a
// weekly change affects.
func (s *Server) invalidateUpcoming(r *http.Request, staff string) {
	if s.cache == nil {
		return
	}
	now := time.Now()
	for i := 0; i < 14; i++ {
		s.cache.Invalidate(r.Context(), staff, models.FormatDate(now.AddDate(0, 0, i)))
	}
}
