package agenda

import (
	"net/http"
	"strconv"
	"time"

	appointmentstore "github.com/barbearia/calendario/internal/app/store/appointments"
	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/barbearia/calendario/internal/app/system/inputval"
	"github.com/barbearia/calendario/internal/app/system/normalize"
	"github.com/barbearia/calendario/internal/app/system/timeouts"
	"github.com/barbearia/calendario/internal/domain/models"
)

// parseInstant accepts an RFC3339 timestamp or a YYYY-MM-DD date, which is
// read as local midnight in loc.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(inputval.DateLayout, s, loc)
}

// list handles GET /api/agenda?from&to&professional&status&limit.
// Clients only ever see their own appointments.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) error {
	u, err := currentUser(r)
	if err != nil {
		return err
	}

	q := r.URL.Query()
	var f appointmentstore.Filter

	if s := normalize.QueryParam(q.Get("from")); s != "" {
		if f.From, err = parseInstant(s, h.Slots.Location); err != nil {
			return httperr.BadRequest("from must be an RFC3339 time or a YYYY-MM-DD date")
		}
	}
	if s := normalize.QueryParam(q.Get("to")); s != "" {
		if f.To, err = parseInstant(s, h.Slots.Location); err != nil {
			return httperr.BadRequest("to must be an RFC3339 time or a YYYY-MM-DD date")
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return httperr.BadRequest("from must be before to")
	}

	switch s := normalize.Role(q.Get("status")); s {
	case "", models.AppointmentScheduled, models.AppointmentCancelled:
		f.Status = s
	default:
		return httperr.BadRequest("status must be scheduled or cancelled")
	}
	f.Professional = normalize.QueryParam(q.Get("professional"))
	if s := normalize.QueryParam(q.Get("limit")); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 || n > appointmentstore.DefaultListLimit {
			return httperr.BadRequest("limit must be between 1 and 500")
		}
		f.Limit = n
	}

	if !models.IsStaffRole(u.Role) {
		if f.UserID, err = callerID(u); err != nil {
			return err
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "appointments.list")
	defer cancel()

	list, err := h.Store.List(ctx, f)
	if err != nil {
		return err
	}
	httperr.WriteJSON(w, http.StatusOK, list)
	return nil
}

type availabilityResponse struct {
	Date            string     `json:"date"`
	Professional    string     `json:"professional"`
	DurationMinutes int        `json:"duration_minutes"`
	Slots           []TimeSlot `json:"slots"`
}

// availability handles GET /api/agenda/availability?date&professional&duration.
func (h *Handler) availability(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	date := normalize.QueryParam(q.Get("date"))
	if !inputval.IsValidDate(date) {
		return httperr.BadRequest("date must be a date in YYYY-MM-DD format")
	}
	professional := normalize.Name(q.Get("professional"))
	if professional == "" {
		return httperr.BadRequest("professional is required")
	}

	minutes := int(h.Slots.Step / time.Minute)
	if s := normalize.QueryParam(q.Get("duration")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return httperr.BadRequest("duration must be a number of minutes")
		}
		minutes = n
	}
	duration := time.Duration(minutes) * time.Minute
	if duration < appointmentstore.MinDuration || duration > appointmentstore.MaxDuration {
		return httperr.BadRequest("duration must be between 5 and 480 minutes")
	}

	day, _ := time.ParseInLocation(inputval.DateLayout, date, h.Slots.Location)
	window := h.Slots.Window(day)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "appointments.busy")
	defer cancel()

	booked, err := h.Store.Busy(ctx, professional, window.Start, window.End)
	if err != nil {
		return err
	}
	busy := make([]TimeSlot, len(booked))
	for i, a := range booked {
		busy[i] = TimeSlot{Start: a.StartsAt, End: a.EndsAt}
	}

	httperr.WriteJSON(w, http.StatusOK, availabilityResponse{
		Date:            date,
		Professional:    professional,
		DurationMinutes: minutes,
		Slots:           h.Slots.FindAvailableSlots(day, duration, busy),
	})
	return nil
}
