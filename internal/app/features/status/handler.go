package status

import (
	"net/http"

	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/go-chi/chi/v5"
)

// API identity reported by /status.
const (
	APIName    = "Calendário / Barbearia"
	APIVersion = "1.0.0"
)

// DefaultEnvironment is reported when no environment is configured.
const DefaultEnvironment = "development"

type Handler struct {
	env string
}

func NewHandler(env string) *Handler {
	if env == "" {
		env = DefaultEnvironment
	}
	return &Handler{env: env}
}

type statusResponse struct {
	API      string `json:"api"`
	Versao   string `json:"versao"`
	Ambiente string `json:"ambiente"`
}

// Serve handles GET /status.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	httperr.WriteJSON(w, http.StatusOK, statusResponse{
		API:      APIName,
		Versao:   APIVersion,
		Ambiente: h.env,
	})
}

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
