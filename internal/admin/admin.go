// Package admin serves health, upload inspection and pprof on a separate port.
package admin

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"vizora/domain/core"
	"vizora/internal/errors"
	"vizora/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type App struct {
	router  *chi.Mux
	store   ports.DatasetStore
	started time.Time
}

func New(store ports.DatasetStore) *App {
	a := &App{
		router:  chi.NewRouter(),
		store:   store,
		started: time.Now(),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/uploads/{id}", a.handleUpload)
	a.router.Mount("/debug", middleware.Profiler())
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// ListenAndServe blocks serving addr.
func (a *App) ListenAndServe(addr string) error {
	log.Printf("[Admin] Listening on %s (pprof at /debug/pprof/)", addr)
	srv := &http.Server{Addr: addr, Handler: a, ReadHeaderTimeout: 10 * time.Second}
	return srv.ListenAndServe()
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	files, err := a.store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uploads": len(files),
		"uptime":  time.Since(a.started).Round(time.Second).String(),
	})
}

// handleUpload describes one registered upload without its rows.
func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseFileID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}
	rec, err := a.store.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, errors.HTTPStatus(err), map[string]any{"error": err.Error(), "code": errors.GetCode(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_id":     rec.FileID,
		"filename":    rec.Filename,
		"uploaded_at": rec.UploadedAt,
		"rows":        rec.Table.NumRows(),
		"columns":     rec.Table.Columns,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
