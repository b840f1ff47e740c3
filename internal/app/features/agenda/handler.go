// internal/app/features/agenda/handler.go
package agenda

import (
	"context"
	"errors"
	"net/http"
	"time"

	appointmentstore "github.com/barbearia/calendario/internal/app/store/appointments"
	"github.com/barbearia/calendario/internal/app/system/auth"
	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/barbearia/calendario/internal/app/system/timeouts"
	"github.com/barbearia/calendario/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Appointments is the subset of the appointment store the agenda needs.
type Appointments interface {
	Create(ctx context.Context, a models.Appointment) (models.Appointment, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	List(ctx context.Context, f appointmentstore.Filter) ([]models.Appointment, error)
	Busy(ctx context.Context, professional string, from, to time.Time) ([]models.Appointment, error)
	Update(ctx context.Context, id primitive.ObjectID, upd appointmentstore.Update) (models.Appointment, error)
	Cancel(ctx context.Context, id primitive.ObjectID) (models.Appointment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Handler struct {
	Store Appointments
	Slots *SlotFinder
	Auth  *auth.Authenticator
	Errs  *httperr.Handler
	Log   *zap.Logger
}

func NewHandler(store Appointments, slots *SlotFinder, authn *auth.Authenticator, errs *httperr.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		Store: store,
		Slots: slots,
		Auth:  authn,
		Errs:  errs,
		Log:   logger,
	}
}

// Client-facing messages.
const (
	msgNotFound  = "appointment not found"
	msgBadID     = "invalid appointment id"
	msgSlotTaken = "time slot already booked"
	msgCancelled = "appointment is cancelled"
)

// storeErr maps appointment store sentinels onto HTTP errors. Anything else
// is returned as is and becomes a 500 (or 504 on deadline).
func storeErr(err error) error {
	switch {
	case errors.Is(err, appointmentstore.ErrNotFound):
		return httperr.NotFound(msgNotFound)
	case errors.Is(err, appointmentstore.ErrSlotTaken):
		return httperr.Conflict(msgSlotTaken)
	case errors.Is(err, appointmentstore.ErrNotScheduled):
		return httperr.Conflict(msgCancelled)
	case errors.Is(err, appointmentstore.ErrInvalidInterval):
		return httperr.BadRequest(err.Error())
	default:
		return err
	}
}

func parseID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, httperr.BadRequest(msgBadID)
	}
	return id, nil
}

func callerID(u *auth.User) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, httperr.Unauthorized(auth.MsgInvalidToken)
	}
	return id, nil
}

// currentUser returns the authenticated caller set by RequireAuth.
func currentUser(r *http.Request) (*auth.User, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil, httperr.Unauthorized(auth.MsgMissingToken)
	}
	return u, nil
}

// loadVisible fetches the appointment in the URL if the caller may see it.
// Other clients' appointments are reported as missing.
func (h *Handler) loadVisible(ctx context.Context, r *http.Request) (*auth.User, *models.Appointment, error) {
	u, err := currentUser(r)
	if err != nil {
		return nil, nil, err
	}
	id, err := parseID(r)
	if err != nil {
		return nil, nil, err
	}

	a, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	if !models.IsStaffRole(u.Role) && a.UserID.Hex() != u.ID {
		return nil, nil, httperr.NotFound(msgNotFound)
	}
	return u, a, nil
}

// get handles GET /api/agenda/{id}.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "appointments.get")
	defer cancel()

	_, a, err := h.loadVisible(ctx, r)
	if err != nil {
		return err
	}
	httperr.WriteJSON(w, http.StatusOK, a)
	return nil
}

// cancel handles PATCH /api/agenda/{id}/cancel.
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "appointments.cancel")
	defer cancel()

	u, a, err := h.loadVisible(ctx, r)
	if err != nil {
		return err
	}

	out, err := h.Store.Cancel(ctx, a.ID)
	if err != nil {
		return storeErr(err)
	}
	h.Log.Info("appointment cancelled",
		zap.String("appointment_id", out.ID.Hex()),
		zap.String("by", u.ID))
	httperr.WriteJSON(w, http.StatusOK, out)
	return nil
}

// remove handles DELETE /api/agenda/{id}. Staff only (enforced by routes).
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(r)
	if err != nil {
		return err
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "appointments.delete")
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
