// internal/app/system/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/go-chi/cors"
)

// DefaultOrigins is the allow-list used when no CORS origins are configured:
// the local static frontend.
var DefaultOrigins = []string{
	"http://localhost:5500",
	"http://127.0.0.1:5500",
}

// MsgOriginNotAllowed is returned when a request comes from an origin that
// is not on the allow-list.
const MsgOriginNotAllowed = "origin not allowed"

// CORSPolicy is the cross-origin mode of the API. It is either AllowList
// (named origins, credentials allowed) or AllowAny (every origin, never
// credentials). No other implementation exists, so a wildcard origin can
// never be combined with credentials.
type CORSPolicy interface {
	corsPolicy()
	String() string
}

// AllowList permits only the named origins and lets them send credentials.
type AllowList struct {
	Origins []string
}

// AllowAny permits every origin without credentials.
type AllowAny struct{}

func (AllowList) corsPolicy() {}
func (AllowAny) corsPolicy()  {}

func (p AllowList) String() string { return "allow-list(" + strings.Join(p.Origins, ",") + ")" }
func (AllowAny) String() string    { return "allow-any" }

// ParseCORSPolicy turns the CORS_ORIGINS setting into a policy. "*" selects
// AllowAny; a comma separated list selects AllowList. An empty setting
// falls back to DefaultOrigins. Mixing "*" with named origins is treated
// as AllowAny.
func ParseCORSPolicy(raw string) CORSPolicy {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			return AllowAny{}
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = append(origins, DefaultOrigins...)
	}
	return AllowList{Origins: origins}
}

// CORS enforces policy. In AllowList mode a request carrying an Origin
// header that is not listed is rejected with 403 through errs; requests
// without an Origin (curl, server to server) are not cross-origin and pass.
// Listed origins get the origin echoed back with credentials allowed.
func CORS(policy CORSPolicy, errs *httperr.Handler) func(http.Handler) http.Handler {
	if policy == nil {
		policy = AllowList{Origins: DefaultOrigins}
	}

	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}

	var allowed map[string]struct{}
	switch p := policy.(type) {
	case AllowAny:
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	case AllowList:
		opts.AllowedOrigins = p.Origins
		opts.AllowCredentials = true
		allowed = make(map[string]struct{}, len(p.Origins))
		for _, o := range p.Origins {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	headers := cors.Handler(opts)

	return func(next http.Handler) http.Handler {
		h := headers(next)
		if allowed == nil {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := allowed[strings.ToLower(origin)]; !ok {
					errs.ServeError(w, r, httperr.Forbidden(MsgOriginNotAllowed))
					return
				}
			}
			h.ServeHTTP(w, r)
		})
	}
}
