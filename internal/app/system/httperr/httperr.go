// Package httperr is the terminal error-handling stage of the request
// pipeline.
//
// Every failure that can happen while serving a request (malformed bodies,
// rejected origins, unmatched routes, handler errors, panics and deadline
// expiry) is funneled into Handler.ServeError, which maps it to a
// structured JSON body of the form
//
//	{ "status": 404, "message": "route not found" }
//
// Internal causes are logged and never returned to the client.
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Error is an error that carries the HTTP status and the client-safe
// message it should be rendered with. Err, when set, is the internal cause;
// it is logged but never sent to the client.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap returns an Error with the given status and message that keeps err
// as its internal cause.
func Wrap(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(message string) *Error      { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error    { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error       { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error        { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error        { return New(http.StatusConflict, message) }
func TooManyRequests(message string) *Error { return New(http.StatusTooManyRequests, message) }

// Internal wraps an unexpected failure. The client only sees a generic
// message.
func Internal(err error) *Error {
	return Wrap(http.StatusInternalServerError, "internal server error", err)
}

// Common messages shared by the pipeline stages.
const (
	MsgRouteNotFound    = "route not found"
	MsgMethodNotAllowed = "method not allowed"
	MsgTimeout          = "request timed out"
	MsgCanceled         = "request canceled"
)

// Response is the wire form of every error.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// HandlerFunc is an http.HandlerFunc that reports failures by returning
// them instead of writing a response.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handler renders errors. A single Handler is shared by every stage so the
// mapping and logging are identical wherever the failure happened.
type Handler struct {
	Log *zap.Logger

	// Decorate, when set, runs before an error is written. The bootstrap
	// uses it to apply the security headers to responses produced by
	// stages that short-circuit the pipeline.
	Decorate func(http.ResponseWriter, *http.Request)
}

// NewHandler constructs an error Handler.
func NewHandler(logger *zap.Logger, decorate func(http.ResponseWriter, *http.Request)) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Log: logger, Decorate: decorate}
}

// Resolve maps any error to the status and client message it renders as.
func Resolve(err error) *Error {
	var he *Error
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return Wrap(http.StatusGatewayTimeout, MsgTimeout, err)
	case errors.Is(err, context.Canceled):
		return Wrap(http.StatusServiceUnavailable, MsgCanceled, err)
	default:
		return Internal(err)
	}
}

// ServeError writes err as a structured JSON response. It never panics
// and never rethrows.
func (h *Handler) ServeError(w http.ResponseWriter, r *http.Request, err error) {
	he := Resolve(err)

	fields := []zap.Field{
		zap.Int("status", he.Status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	if he.Err != nil {
		fields = append(fields, zap.Error(he.Err))
	}
	if he.Status >= http.StatusInternalServerError {
		h.Log.Error(he.Message, fields...)
	} else {
		h.Log.Debug(he.Message, fields...)
	}

	if h.Decorate != nil {
		h.Decorate(w, r)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(he.Status)
	if err := json.NewEncoder(w).Encode(Response{Status: he.Status, Message: he.Message}); err != nil {
		h.Log.Warn("failed to encode error response", zap.Error(err))
	}
}

// Wrap adapts fn to an http.HandlerFunc, sending any returned error
// through ServeError.
func (h *Handler) Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.ServeError(w, r, err)
		}
	}
}

// NotFound is the router's fallback for unmatched paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.ServeError(w, r, NotFound(MsgRouteNotFound))
}

// MethodNotAllowed is the router's fallback for a known path with the
// wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.ServeError(w, r, New(http.StatusMethodNotAllowed, MsgMethodNotAllowed))
}

// Recoverer wraps inner, a panic-recovering middleware such as waffle's
// logging.Recoverer, so that the 500 it writes after a panic is replaced
// by the JSON error body. inner still does the recovering and the stack
// logging. A panic after the handler wrote its header leaves the response
// as inner left it.
func (h *Handler) Recoverer(inner func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pw := &panicWriter{ResponseWriter: w}
			marked := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if rec := recover(); rec != nil {
						pw.value = rec
						pw.panicked = true
						panic(rec)
					}
				}()
				next.ServeHTTP(w, r)
			})
			inner(marked).ServeHTTP(pw, r)
			if pw.swallowed {
				h.ServeError(w, r, Internal(fmt.Errorf("panic: %v", pw.value)))
			}
		})
	}
}

// panicWriter discards whatever is written to it once the handler below
// has panicked, remembering that a response was attempted.
type panicWriter struct {
	http.ResponseWriter
	panicked  bool
	swallowed bool
	value     any
	scratch   http.Header
}

func (p *panicWriter) Header() http.Header {
	if p.panicked {
		if p.scratch == nil {
			p.scratch = make(http.Header)
		}
		return p.scratch
	}
	return p.ResponseWriter.Header()
}

func (p *panicWriter) WriteHeader(code int) {
	if p.panicked {
		p.swallowed = true
		return
	}
	p.ResponseWriter.WriteHeader(code)
}

func (p *panicWriter) Write(b []byte) (int, error) {
	if p.panicked {
		p.swallowed = true
		return len(b), nil
	}
	return p.ResponseWriter.Write(b)
}

func (p *panicWriter) Unwrap() http.ResponseWriter { return p.ResponseWriter }

// WriteJSON writes v as a JSON body with the given status. Once the
// header is out there is nothing useful to do with an encode failure.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
