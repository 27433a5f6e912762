package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(ctrl Controller, bus EventBus) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus}

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.getStatus)
		r.Get("/status", h.getStatus)

		// Clock plan
		r.Get("/plan", h.getPlan)
		r.Post("/plan", h.applyPlan)

		// PLLs
		r.Get("/plls/{pll}", h.getPLL)
		r.Put("/plls/{pll}", h.setPLL)
		r.Post("/reset_pll", h.resetPLL)

		// MultiSynths and outputs
		r.Put("/multisynths/{ch}", h.setMultisynth)
		r.Get("/outputs/{ch}", h.getOutput)
		r.Patch("/outputs/{ch}", h.setOutput)

		r.Get("/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
