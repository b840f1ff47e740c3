package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/barbearia/calendario/internal/app/system/httperr"
	"go.uber.org/zap"
)

// Client-facing messages for authentication failures.
const (
	MsgNotConfigured = "authentication is not configured"
	MsgMissingToken  = "missing bearer token"
	MsgInvalidToken  = "invalid or expired token"
	MsgForbidden     = "insufficient permissions"
)

// User is the authenticated caller, taken from a verified token and
// injected into r.Context() by RequireAuth.
type User struct {
	ID        string
	Name      string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*User)
	return u, ok
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// Authenticator verifies bearer tokens on protected routes.
type Authenticator struct {
	tokens  *Tokens
	revoked Revoker
	errs    *httperr.Handler
	log     *zap.Logger
}

// NewAuthenticator builds the bearer middleware. revoked may be nil, in
// which case logout has no effect on verification.
func NewAuthenticator(tokens *Tokens, revoked Revoker, errs *httperr.Handler, logger *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, revoked: revoked, errs: errs, log: logger}
}

// RequireAuth rejects requests without a valid, unrevoked bearer token.
//   - empty signing secret: 500
//   - missing or malformed Authorization header: 401
//   - bad signature, expired, or revoked token: 401
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.tokens.Configured() {
			a.errs.ServeError(w, r, httperr.Wrap(http.StatusInternalServerError, MsgNotConfigured, ErrNoSecret))
			return
		}

		raw, ok := bearerToken(r)
		if !ok {
			a.errs.ServeError(w, r, httperr.Unauthorized(MsgMissingToken))
			return
		}

		claims, err := a.tokens.Parse(raw)
		if err != nil {
			a.log.Debug("token rejected", zap.Error(err))
			a.errs.ServeError(w, r, httperr.Unauthorized(MsgInvalidToken))
			return
		}

		if a.revoked != nil {
			revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				a.errs.ServeError(w, r, httperr.Internal(err))
				return
			}
			if revoked {
				a.errs.ServeError(w, r, httperr.Unauthorized(MsgInvalidToken))
				return
			}
		}

		u := &User{
			ID:      claims.Subject,
			Name:    claims.Name,
			Role:    claims.Role,
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			u.ExpiresAt = claims.ExpiresAt.Time
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireRole lets through only users whose role is in allowed. It must run
// after RequireAuth.
func (a *Authenticator) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				a.errs.ServeError(w, r, httperr.Unauthorized(MsgMissingToken))
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				a.errs.ServeError(w, r, httperr.Forbidden(MsgForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Revoke invalidates the token identified by u until it would have expired.
func (a *Authenticator) Revoke(ctx context.Context, u *User) error {
	if a.revoked == nil {
		return nil
	}
	if u == nil || u.TokenID == "" {
		return errors.New("auth: token has no id")
	}
	return a.revoked.Revoke(ctx, u.TokenID, u.ExpiresAt)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
