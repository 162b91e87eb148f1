package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/foxstyle/internal/customizer"
	"github.com/kalambet/foxstyle/internal/filestore"
	"github.com/kalambet/foxstyle/internal/prefs"
	"github.com/kalambet/foxstyle/internal/profile"
	"github.com/kalambet/foxstyle/internal/templates"
)

const maxRequestBodySize = 2 << 20 // 2MB

// Deps holds the dependencies of the HTTP handler.
type Deps struct {
	Service *customizer.Service
	Catalog *templates.Catalog
	Token   string // optional; when set, /api routes require it as a bearer token
	Static  fs.FS  // optional; UI assets served at /
	Logger  *slog.Logger
}

// NewHandler returns the HTTP API and UI handler.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleNotFound)

	r.Get("/api/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Use(limitBody)

		r.Post("/api/file/load", handleLoad(deps))
		r.Post("/api/file/save", handleSave(deps))
		r.Post("/api/file/save-as", handleSaveAs(deps))
		r.Get("/api/file/handles", handleListHandles(deps))
		r.Delete("/api/file/handles", handlePruneHandles(deps))

		r.Get("/api/profiles", handleProfiles(deps))

		r.Post("/api/firefox/quick-access", handleQuickAccess(deps))
		r.Post("/api/firefox/enable-userchrome", handleEnable(deps))
		r.Get("/api/firefox/check-userchrome/{profileName}", handleCheck(deps))
		r.Post("/api/firefox/enable-userchrome-all", handleEnableAll(deps))
		r.Post("/api/firefox/create-userjs", handleCreateUserJS(deps))
		r.Get("/api/firefox/validate/{profileName}", handleValidate(deps))
		r.Get("/api/firefox/version/{profileName}", handleVersion(deps))
		r.Get("/api/firefox/backups/{profileName}", handleBackups(deps))
		r.Get("/api/firefox/history/{profileName}", handleHistory(deps))
		r.Get("/api/firefox/status", handleStatus(deps))

		r.Get("/api/templates", handleTemplates(deps))
		r.Get("/api/templates/{type}", handleTemplatesByType(deps))
	})

	if deps.Static != nil {
		r.Get("/", handleIndex(deps.Static))
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(deps.Static)))
	}

	return r
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		next.ServeHTTP(w, r)
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	httpError(w, http.StatusNotFound, "Endpoint not found")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"platform":  runtime.GOOS,
		"goVersion": runtime.Version(),
	})
}

func handleIndex(static fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(static, "index.html")
		if err != nil {
			httpError(w, http.StatusNotFound, "Endpoint not found")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// serviceError maps a domain error to its HTTP status.
func serviceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, filestore.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, filestore.ErrInvalidArgument),
		errors.Is(err, filestore.ErrMissingTarget),
		errors.Is(err, customizer.ErrInvalidCSSType),
		errors.Is(err, prefs.ErrInvalidPref):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	httpError(w, code, "%s", err.Error())
}
