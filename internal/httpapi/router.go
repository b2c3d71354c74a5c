// Package httpapi wires the JSON endpoints and the gated page routes onto a
// chi router.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Dependencies are the pieces NewRouter mounts. Nil handlers leave their
// routes unregistered.
type Dependencies struct {
	Auth     *AuthHandler
	Hotels   *HotelsHandler
	Gate     func(http.Handler) http.Handler
	Metrics  http.Handler
	Observer HTTPObserver
	Logger   *zap.Logger

	// TrustProxy takes the client address from X-Forwarded-For, X-Real-IP
	// and True-Client-IP. Enable it only behind a proxy that overwrites
	// those headers, since the login throttle keys on this address.
	TrustProxy bool
}

// NewRouter returns the site's HTTP handler. Requests outside /api, /healthz
// and /metrics go through the gate before reaching the page handler.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if deps.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log, deps.Observer))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		if deps.Auth != nil {
			api.Post("/auth/register", deps.Auth.Register)
			api.Post("/auth/login", deps.Auth.Login)
			api.Post("/auth/logout", deps.Auth.Logout)
			api.Get("/auth/session", deps.Auth.Session)
		}
		if deps.Hotels != nil {
			api.Post("/hotels/search", deps.Hotels.Search)
		}
		api.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "Not found")
		})
	})

	pages := http.Handler(http.HandlerFunc(Page))
	if deps.Gate != nil {
		pages = deps.Gate(pages)
	}
	r.Handle("/", pages)
	r.Handle("/*", pages)

	return r
}
