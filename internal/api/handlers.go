package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/foxstyle/internal/prefs"
)

type loadRequest struct {
	FilePath string `json:"filePath"`
}

type saveRequest struct {
	FileID   string `json:"fileId"`
	Content  string `json:"content"`
	FilePath string `json:"filePath"`
}

type profileRequest struct {
	ProfileName     string       `json:"profileName"`
	CSSType         string       `json:"cssType"`
	AdditionalPrefs []prefs.Pref `json:"additionalPrefs"`
}

func handleLoad(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loadRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := deps.Service.Files().Load(req.FilePath)
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSave(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := deps.Service.Files().Save(req.FileID, req.Content, req.FilePath)
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSaveAs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := deps.Service.Files().SaveAs(req.Content, req.FilePath)
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleListHandles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handles, err := deps.Service.Handles(parseIntParam(r, "limit", 50, 500))
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, handles)
	}
}

func handlePruneHandles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("older_than")
		if raw == "" {
			httpError(w, http.StatusBadRequest, "older_than is required")
			return
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			httpError(w, http.StatusBadRequest, "invalid older_than %q", raw)
			return
		}
		n, err := deps.Service.PruneHandles(time.Now().Add(-d))
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"pruned": n})
	}
}

func handleProfiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := deps.Service.Profiles()
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, profiles)
	}
}

func handleQuickAccess(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ProfileName == "" {
			httpError(w, http.StatusBadRequest, "Profile name is required")
			return
		}
		res, err := deps.Service.QuickAccess(req.ProfileName, req.CSSType)
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleEnable(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ProfileName == "" {
			httpError(w, http.StatusBadRequest, "Profile name is required")
			return
		}
		res, err := deps.Service.EnableUserChrome(r.Context(), req.ProfileName)
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCheck(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := deps.Service.CheckUserChrome(chi.URLParam(r, "profileName"))
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleEnableAll(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Service.EnableAll(r.Context())
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCreateUserJS(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ProfileName == "" {
			httpError(w, http.StatusBadRequest, "Profile name is required")
			return
		}
		for _, p := range req.AdditionalPrefs {
			if err := p.Validate(); err != nil {
				httpError(w, http.StatusBadRequest, "%s", err.Error())
				return
			}
		}
		res, err := deps.Service.CreateUserJS(req.ProfileName, req.AdditionalPrefs)
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleValidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Service.Validate(chi.URLParam(r, "profileName"))
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleVersion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Service.Version(chi.URLParam(r, "profileName"))
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleBackups(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Service.Backups(chi.URLParam(r, "profileName"))
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 200)
		res, err := deps.Service.History(chi.URLParam(r, "profileName"), limit)
		if err != nil {
			serviceError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"firefoxRunning": deps.Service.BrowserRunning(r.Context()),
			"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

func handleTemplates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Catalog.All())
	}
}

func handleTemplatesByType(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Catalog.ByCategory(chi.URLParam(r, "type")))
	}
}

// parseIntParam reads a positive integer query parameter, falling back to
// def. Values above max are clamped when max > 0.
func parseIntParam(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
