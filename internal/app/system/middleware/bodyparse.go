// internal/app/system/middleware/bodyparse.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/barbearia/calendario/internal/app/system/httperr"
)

// DefaultBodyLimit caps JSON request bodies when no limit is configured.
const DefaultBodyLimit int64 = 1 << 20

// Messages returned by the body parsing stage.
const (
	MsgMalformedJSON = "malformed JSON body"
	MsgBodyTooLarge  = "request body too large"
	MsgBodyRequired  = "request body is required"
	MsgNotJSON       = "Content-Type must be application/json"
)

type limitKey struct{}

func bodyLimit(ctx context.Context) int64 {
	if n, ok := ctx.Value(limitKey{}).(int64); ok && n > 0 {
		return n
	}
	return DefaultBodyLimit
}

// ParseJSON is the first pipeline stage. For requests that declare a JSON
// content type it reads the body (bounded by limit), rejects bodies that are
// not well-formed JSON with 400 and oversized bodies with 413, and hands the
// buffered body on so handlers can decode it again. Other requests pass
// through untouched; DecodeJSON refuses them. The limit is recorded on the
// request context for DecodeJSON.
func ParseJSON(errs *httperr.Handler, limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(context.WithValue(r.Context(), limitKey{}, limit))
			if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
			_ = r.Body.Close()
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					errs.ServeError(w, r, httperr.New(http.StatusRequestEntityTooLarge, MsgBodyTooLarge))
					return
				}
				errs.ServeError(w, r, httperr.Wrap(http.StatusBadRequest, MsgMalformedJSON, err))
				return
			}
			if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
				errs.ServeError(w, r, httperr.BadRequest(MsgMalformedJSON))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(raw))
			r.ContentLength = int64(len(raw))
			next.ServeHTTP(w, r)
		})
	}
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// DecodeJSON decodes the request body into dst. A missing body is 400, a
// non-JSON Content-Type is 415 and a body over the limit set by ParseJSON
// (DefaultBodyLimit outside the pipeline) is 413. Unknown fields and
// trailing data are 400.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return httperr.BadRequest(MsgBodyRequired)
	}
	if !isJSON(r.Header.Get("Content-Type")) {
		return httperr.New(http.StatusUnsupportedMediaType, MsgNotJSON)
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, bodyLimit(r.Context())))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return httperr.New(http.StatusRequestEntityTooLarge, MsgBodyTooLarge)
		case errors.Is(err, io.EOF):
			return httperr.BadRequest(MsgBodyRequired)
		}
		return httperr.Wrap(http.StatusBadRequest, "invalid request body", err)
	}
	if dec.More() {
		return httperr.BadRequest("request body must contain a single JSON object")
	}
	return nil
}
