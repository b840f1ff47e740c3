package agenda

import (
	"net/http"
	"time"

	appointmentstore "github.com/barbearia/calendario/internal/app/store/appointments"
	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/barbearia/calendario/internal/app/system/inputval"
	"github.com/barbearia/calendario/internal/app/system/middleware"
	"github.com/barbearia/calendario/internal/app/system/normalize"
	"github.com/barbearia/calendario/internal/app/system/timeouts"
	"github.com/barbearia/calendario/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// bookingRequest is the body of POST and PUT /api/agenda.
type bookingRequest struct {
	Professional    string    `json:"professional" validate:"required,max=100" label:"Professional"`
	Service         string    `json:"service" validate:"required,max=100" label:"Service"`
	StartsAt        time.Time `json:"starts_at" validate:"required" label:"Start time"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=5,max=480" label:"Duration"`
	Notes           string    `json:"notes" validate:"max=500" label:"Notes"`
	ClientName      string    `json:"client_name" validate:"max=100" label:"Client name"`
	// UserID lets staff book on behalf of a client. Ignored for clients.
	UserID string `json:"user_id,omitempty" validate:"omitempty,objectid" label:"User id"`
}

func (b *bookingRequest) normalize() {
	b.Professional = normalize.Name(b.Professional)
	b.Service = normalize.Name(b.Service)
	b.ClientName = normalize.Name(b.ClientName)
	b.UserID = normalize.QueryParam(b.UserID)
}

func (b bookingRequest) endsAt() time.Time {
	return b.StartsAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

func decodeBooking(r *http.Request) (bookingRequest, error) {
	var req bookingRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	req.normalize()
	if res := inputval.Validate(req); res.HasErrors() {
		return req, httperr.BadRequest(res.First())
	}
	return req, nil
}

// create handles POST /api/agenda.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) error {
	u, err := currentUser(r)
	if err != nil {
		return err
	}
	req, err := decodeBooking(r)
	if err != nil {
		return err
	}

	owner, err := callerID(u)
	if err != nil {
		return err
	}
	clientName := u.Name
	if models.IsStaffRole(u.Role) {
		if req.UserID != "" {
			owner, _ = primitive.ObjectIDFromHex(req.UserID)
		}
		if req.ClientName != "" {
			clientName = req.ClientName
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "appointments.create")
	defer cancel()

	a, err := h.Store.Create(ctx, models.Appointment{
		UserID:       owner,
		ClientName:   clientName,
		Professional: req.Professional,
		Service:      req.Service,
		Notes:        req.Notes,
		StartsAt:     req.StartsAt,
		EndsAt:       req.endsAt(),
	})
	if err != nil {
		return storeErr(err)
	}

	h.Log.Info("appointment booked",
		zap.String("appointment_id", a.ID.Hex()),
		zap.String("professional", a.Professional),
		zap.Time("starts_at", a.StartsAt))
	httperr.WriteJSON(w, http.StatusCreated, a)
	return nil
}

// update handles PUT /api/agenda/{id}.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "appointments.update")
	defer cancel()

	u, current, err := h.loadVisible(ctx, r)
	if err != nil {
		return err
	}
	req, err := decodeBooking(r)
	if err != nil {
		return err
	}

	clientName := current.ClientName
	if models.IsStaffRole(u.Role) && req.ClientName != "" {
		clientName = req.ClientName
	}

	out, err := h.Store.Update(ctx, current.ID, appointmentstore.Update{
		Professional: req.Professional,
		Service:      req.Service,
		ClientName:   clientName,
		Notes:        req.Notes,
		StartsAt:     req.StartsAt,
		EndsAt:       req.endsAt(),
	})
	if err != nil {
		return storeErr(err)
	}
	httperr.WriteJSON(w, http.StatusOK, out)
	return nil
}
