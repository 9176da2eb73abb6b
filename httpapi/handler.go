package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Edraak/authgate"
)

// Handler binds the engine to the HTTP surface.
type Handler struct {
	engine     *authgate.Engine
	adminToken string
	logger     *slog.Logger
}

// Options configures the adapter. AdminToken guards the /admin routes;
// empty disables them entirely.
type Options struct {
	AdminToken string
	Logger     *slog.Logger
}

func NewHandler(engine *authgate.Engine, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:     engine,
		adminToken: opts.AdminToken,
		logger:     logger,
	}
}

// NewRouter registers all routes and the middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)
	r.Use(clientIPMiddleware)

	r.Get("/healthz", h.healthz)

	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Post("/access_token", h.accessToken)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.adminAuthMiddleware)
		r.Get("/ip_locks", h.listIPLocks)
		r.Delete("/ip_locks/{ip}", h.resetIPLock)
		r.Get("/account_locks", h.listAccountLocks)
		r.Delete("/account_locks/{username}", h.clearAccountLock)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}
