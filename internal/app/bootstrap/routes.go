// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	agendafeature "github.com/barbearia/calendario/internal/app/features/agenda"
	authfeature "github.com/barbearia/calendario/internal/app/features/auth"
	healthfeature "github.com/barbearia/calendario/internal/app/features/health"
	homefeature "github.com/barbearia/calendario/internal/app/features/home"
	statusfeature "github.com/barbearia/calendario/internal/app/features/status"
	appointmentstore "github.com/barbearia/calendario/internal/app/store/appointments"
	loginstore "github.com/barbearia/calendario/internal/app/store/logins"
	userstore "github.com/barbearia/calendario/internal/app/store/users"
	"github.com/barbearia/calendario/internal/app/system/auth"
	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/barbearia/calendario/internal/app/system/middleware"
	"github.com/barbearia/calendario/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/logging"
	wafflemw "github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// stores are the persistence collaborators the feature handlers use.
type stores struct {
	Users        authfeature.Users
	Logins       authfeature.LoginHistory
	Appointments agendafeature.Appointments
}

// BuildHandler constructs the root HTTP handler.
//
// Every request passes, in order: request ID, access log, panic recovery,
// metrics, body size cap, request deadline, JSON body parsing, CORS,
// security headers and compression, then route dispatch. Anything that
// goes wrong at any stage, including unknown routes, ends in the httperr
// terminal handler as a {status, message} JSON body.
func BuildHandler(core *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	return newRouter(core, cfg, deps, stores{
		Users:        userstore.New(deps.MongoDatabase),
		Logins:       loginstore.New(deps.MongoDatabase),
		Appointments: appointmentstore.New(deps.MongoDatabase).WithTransactions(logger),
	}, logger)
}

// newRouter builds the router. A nil core disables compression.
func newRouter(core *config.CoreConfig, cfg AppConfig, deps DBDeps, st stores, logger *zap.Logger) (http.Handler, error) {
	slots, err := cfg.SlotFinder()
	if err != nil {
		return nil, err
	}

	errs := httperr.NewHandler(logger, middleware.ApplySecurityHeaders)
	revoker := deps.Revoker
	if revoker == nil {
		revoker = auth.NewMemoryRevoker()
	}
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiry)
	authn := auth.NewAuthenticator(tokens, revoker, errs, logger)

	r := chi.NewRouter()

	// Fallbacks are set before mounting so every subrouter inherits them.
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	r.Use(chimw.RequestID)
	r.Use(logging.RequestLogger(logger))
	r.Use(errs.Recoverer(logging.Recoverer(logger)))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(wafflemw.LimitBodySize(cfg.BodyLimit))
	r.Use(middleware.Timeout(cfg.RequestTimeout, errs))
	r.Use(middleware.ParseJSON(errs, cfg.BodyLimit))
	r.Use(middleware.CORS(cfg.CORS, errs))
	r.Use(middleware.SecurityHeaders)
	r.Use(wafflemw.CompressFromConfig(core, nil))

	// A nil *mongo.Client must not reach the handler as a non-nil Pinger.
	var pinger healthfeature.Pinger
	if deps.MongoClient != nil {
		pinger = deps.MongoClient
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(pinger, logger)))
	r.Mount("/status", statusfeature.Routes(statusfeature.NewHandler(cfg.Env)))

	// An unstarted limiter runs no goroutine; its idle buckets are simply
	// never pruned.
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	authHandler := authfeature.NewHandler(st.Users, tokens, authn, limiter, errs, logger)
	if st.Logins != nil {
		authHandler.Logins = st.Logins
	}
	r.Mount("/api/auth", authfeature.Routes(authHandler))

	agendaHandler := agendafeature.NewHandler(st.Appointments, slots, authn, errs, logger)
	r.Mount("/api/agenda", agendafeature.Routes(agendaHandler))

	r.Mount("/", homefeature.Routes(homefeature.NewHandler()))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r, nil
}
