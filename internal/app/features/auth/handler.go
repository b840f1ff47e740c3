// internal/app/features/auth/handler.go
package authapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	userstore "github.com/barbearia/calendario/internal/app/store/users"
	"github.com/barbearia/calendario/internal/app/system/auth"
	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/barbearia/calendario/internal/app/system/inputval"
	"github.com/barbearia/calendario/internal/app/system/middleware"
	"github.com/barbearia/calendario/internal/app/system/normalize"
	"github.com/barbearia/calendario/internal/app/system/ratelimit"
	"github.com/barbearia/calendario/internal/app/system/timeouts"
	"github.com/barbearia/calendario/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Users is the subset of the user store the auth endpoints need.
type Users interface {
	Create(ctx context.Context, u models.User, password string) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// LoginHistory records successful logins.
type LoginHistory interface {
	Record(ctx context.Context, r *http.Request, userID primitive.ObjectID) error
	Recent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.LoginRecord, error)
}

type Handler struct {
	Users   Users
	Logins  LoginHistory // optional; nil disables login history
	Tokens  *auth.Tokens
	Auth    *auth.Authenticator
	Limiter *ratelimit.LoginLimiter
	Errs    *httperr.Handler
	Log     *zap.Logger
}

func NewHandler(users Users, tokens *auth.Tokens, authn *auth.Authenticator, limiter *ratelimit.LoginLimiter, errs *httperr.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		Users:   users,
		Tokens:  tokens,
		Auth:    authn,
		Limiter: limiter,
		Errs:    errs,
		Log:     logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100" label:"Name"`
	Email    string `json:"email" validate:"required,email,max=254" label:"Email"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Client-facing messages.
const (
	msgEmailTaken   = "email already registered"
	msgInvalidLogin = "invalid email or password"
	msgUserNotFound = "user not found"
)

// register handles POST /api/auth/register. New accounts are always clients.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	if !h.Tokens.Configured() {
		return httperr.Wrap(http.StatusInternalServerError, auth.MsgNotConfigured, auth.ErrNoSecret)
	}

	var req registerRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		return err
	}
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	if res := inputval.Validate(req); res.HasErrors() {
		return httperr.BadRequest(res.First())
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "users.create")
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName: req.Name,
		Email:    req.Email,
		Role:     models.RoleClient,
	}, req.Password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return httperr.Conflict(msgEmailTaken)
	}
	if err != nil {
		return err
	}

	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	return h.writeToken(w, http.StatusCreated, u)
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	if !h.Tokens.Configured() {
		return httperr.Wrap(http.StatusInternalServerError, auth.MsgNotConfigured, auth.ErrNoSecret)
	}

	var req loginRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		return err
	}
	req.Email = normalize.Email(req.Email)
	if res := inputval.Validate(req); res.HasErrors() {
		return httperr.BadRequest(res.First())
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, req.Email); !ok {
			h.Log.Warn("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
			return httperr.TooManyRequests(reason)
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "users.authenticate")
	defer cancel()

	u, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if errors.Is(err, userstore.ErrInvalidCredentials) {
		return httperr.Unauthorized(msgInvalidLogin)
	}
	if err != nil {
		return err
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}
	if h.Logins != nil {
		if err := h.Logins.Record(ctx, r, u.ID); err != nil {
			h.Log.Warn("failed to record login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}
	return h.writeToken(w, http.StatusOK, *u)
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) error {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		return httperr.Unauthorized(auth.MsgMissingToken)
	}
	id, err := primitive.ObjectIDFromHex(cu.ID)
	if err != nil {
		return httperr.Unauthorized(auth.MsgInvalidToken)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "users.get")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		return httperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return err
	}

	httperr.WriteJSON(w, http.StatusOK, u)
	return nil
}

// recentLoginsLimit is how many entries GET /api/auth/me/logins returns.
const recentLoginsLimit = 10

// logins handles GET /api/auth/me/logins: the caller's latest logins.
func (h *Handler) logins(w http.ResponseWriter, r *http.Request) error {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		return httperr.Unauthorized(auth.MsgMissingToken)
	}
	id, err := primitive.ObjectIDFromHex(cu.ID)
	if err != nil {
		return httperr.Unauthorized(auth.MsgInvalidToken)
	}

	out := []models.LoginRecord{}
	if h.Logins != nil {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "logins.recent")
		defer cancel()
		if out, err = h.Logins.Recent(ctx, id, recentLoginsLimit); err != nil {
			return err
		}
	}
	httperr.WriteJSON(w, http.StatusOK, out)
	return nil
}

// logout handles POST /api/auth/logout by revoking the presented token.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) error {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		return httperr.Unauthorized(auth.MsgMissingToken)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "tokens.revoke")
	defer cancel()

	if err := h.Auth.Revoke(ctx, cu); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) writeToken(w http.ResponseWriter, status int, u models.User) error {
	token, claims, err := h.Tokens.Issue(u.ID.Hex(), u.FullName, u.Role)
	if err != nil {
		return err
	}
	httperr.WriteJSON(w, status, authResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		User:      u,
	})
	return nil
}
