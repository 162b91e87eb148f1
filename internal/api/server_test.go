package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kalambet/foxstyle/internal/customizer"
	"github.com/kalambet/foxstyle/internal/filestore"
	"github.com/kalambet/foxstyle/internal/templates"
)

func newTestHandler(t *testing.T, token string) (http.Handler, string) {
	t.Helper()
	svc, root := newTestService(t)
	h := NewHandler(Deps{
		Service: svc,
		Catalog: templates.Builtin(),
		Token:   token,
		Static: fstest.MapFS{
			"index.html": {Data: []byte("<html>foxstyle</html>")},
			"app.css":    {Data: []byte("body{}")},
		},
	})
	return h, root
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body["error"]
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, "secret")

	rr := doRequest(h, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status=ok", body)
	}
	if body["platform"] == "" {
		t.Error("expected platform in health response")
	}
}

func TestUnknownEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodGet, "/api/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if got := decodeError(t, rr); got != "Endpoint not found" {
		t.Errorf("error = %q, want %q", got, "Endpoint not found")
	}
}

func TestBearerAuth(t *testing.T) {
	h, _ := newTestHandler(t, "secret")

	rr := doRequest(h, http.MethodGet, "/api/profiles", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestProfiles(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodGet, "/api/profiles", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var profiles []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&profiles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(profiles) != 1 || profiles[0]["name"] != "abc.default" {
		t.Fatalf("profiles = %v", profiles)
	}
}

func TestEnableUserChrome(t *testing.T) {
	h, root := newTestHandler(t, "")

	rr := doRequest(h, http.MethodPost, "/api/firefox/enable-userchrome", `{"profileName":"abc.default"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var res customizer.EnableResult
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Enabled || !res.BackupCreated {
		t.Errorf("result = %+v, want enabled with backup", res)
	}

	data, err := os.ReadFile(filepath.Join(root, "abc.default", "prefs.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `stylesheets", true);`) {
		t.Errorf("prefs.js = %q", data)
	}

	rr = doRequest(h, http.MethodGet, "/api/firefox/history/abc.default", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d", rr.Code)
	}
	var history []customizer.HistoryEntry
	json.NewDecoder(rr.Body).Decode(&history)
	if len(history) != 1 {
		t.Errorf("history = %+v, want one entry", history)
	}
}

func TestEnableUserChrome_Errors(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodPost, "/api/firefox/enable-userchrome", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if got := decodeError(t, rr); got != "Profile name is required" {
		t.Errorf("error = %q", got)
	}

	rr = doRequest(h, http.MethodPost, "/api/firefox/enable-userchrome", `{"profileName":"ghost"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doRequest(h, http.MethodPost, "/api/firefox/enable-userchrome", `{"profileName":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCheckUserChrome(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodGet, "/api/firefox/check-userchrome/abc.default", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var state map[string]any
	json.NewDecoder(rr.Body).Decode(&state)
	if state["enabled"] != false {
		t.Errorf("state = %v, want disabled", state)
	}
	if state["details"] != "Not configured" {
		t.Errorf("details = %v", state["details"])
	}
}

func TestEnableAll(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodPost, "/api/firefox/enable-userchrome-all", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var res customizer.EnableAllResult
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Summary.Total != 1 || res.Summary.Enabled != 1 || res.Summary.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestQuickAccess(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodPost, "/api/firefox/quick-access", `{"profileName":"abc.default","cssType":"chrome"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var loaded filestore.Loaded
	json.NewDecoder(rr.Body).Decode(&loaded)
	if loaded.FileName != "userChrome.css" || loaded.Content != "" || loaded.FileID == "" {
		t.Errorf("loaded = %+v", loaded)
	}

	rr = doRequest(h, http.MethodPost, "/api/firefox/quick-access", `{"profileName":"abc.default","cssType":"bogus"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateUserJS(t *testing.T) {
	h, root := newTestHandler(t, "")

	rr := doRequest(h, http.MethodPost, "/api/firefox/create-userjs",
		`{"profileName":"abc.default","additionalPrefs":[{"key":"browser.startup.page","value":3}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	data, err := os.ReadFile(filepath.Join(root, "abc.default", "user.js"))
	if err != nil {
		t.Fatalf("reading user.js: %v", err)
	}
	if !strings.Contains(string(data), `user_pref("browser.startup.page", 3);`) {
		t.Errorf("user.js missing extra pref:\n%s", data)
	}
}

func TestCreateUserJS_RejectsUnsupportedValues(t *testing.T) {
	h, root := newTestHandler(t, "")

	for _, value := range []string{`null`, `{"a":1}`, `[1,2]`} {
		t.Run(value, func(t *testing.T) {
			body := `{"profileName":"abc.default","additionalPrefs":[{"key":"some.pref","value":` + value + `}]}`
			rr := doRequest(h, http.MethodPost, "/api/firefox/create-userjs", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
			if !strings.Contains(decodeError(t, rr), "invalid preference") {
				t.Errorf("unexpected error message")
			}
			if _, err := os.Stat(filepath.Join(root, "abc.default", "user.js")); !os.IsNotExist(err) {
				t.Errorf("user.js was written for value %s", value)
			}
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	h, _ := newTestHandler(t, "")
	path := filepath.Join(t.TempDir(), "chrome", "userChrome.css")

	body, _ := json.Marshal(map[string]string{"content": "#nav-bar{}", "filePath": path})
	rr := doRequest(h, http.MethodPost, "/api/file/save-as", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("save-as status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var saved filestore.Saved
	json.NewDecoder(rr.Body).Decode(&saved)
	if !saved.Success || saved.FileID == "" {
		t.Fatalf("saved = %+v", saved)
	}

	body, _ = json.Marshal(map[string]string{"fileId": saved.FileID, "content": "#nav-bar{display:none}"})
	rr = doRequest(h, http.MethodPost, "/api/file/save", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", rr.Code, rr.Body.String())
	}

	body, _ = json.Marshal(map[string]string{"filePath": path})
	rr = doRequest(h, http.MethodPost, "/api/file/load", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("load status = %d", rr.Code)
	}
	var loaded filestore.Loaded
	json.NewDecoder(rr.Body).Decode(&loaded)
	if loaded.Content != "#nav-bar{display:none}" {
		t.Errorf("content = %q", loaded.Content)
	}
}

func TestFileErrors(t *testing.T) {
	h, _ := newTestHandler(t, "")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"load missing file", "/api/file/load", `{"filePath":"/no/such/file.css"}`, http.StatusNotFound},
		{"load without path", "/api/file/load", `{}`, http.StatusBadRequest},
		{"save without target", "/api/file/save", `{"content":"x"}`, http.StatusBadRequest},
		{"save-as empty content", "/api/file/save-as", `{"filePath":"/tmp/x.css"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.want, rr.Body.String())
			}
			if decodeError(t, rr) == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestPruneHandles(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodDelete, "/api/file/handles", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doRequest(h, http.MethodDelete, "/api/file/handles?older_than=1h", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]int64
	json.NewDecoder(rr.Body).Decode(&body)
	if body["pruned"] != 0 {
		t.Errorf("pruned = %d, want 0", body["pruned"])
	}
}

func TestListHandles(t *testing.T) {
	h, _ := newTestHandler(t, "")
	path := filepath.Join(t.TempDir(), "userChrome.css")

	body, _ := json.Marshal(map[string]string{"content": "#nav-bar{}", "filePath": path})
	if rr := doRequest(h, http.MethodPost, "/api/file/save-as", string(body)); rr.Code != http.StatusOK {
		t.Fatalf("save-as status = %d", rr.Code)
	}

	rr := doRequest(h, http.MethodGet, "/api/file/handles", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var handles []filestore.Handle
	if err := json.NewDecoder(rr.Body).Decode(&handles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(handles) != 1 || handles[0].FilePath != path || handles[0].FileName != "userChrome.css" {
		t.Fatalf("handles = %+v", handles)
	}
	if handles[0].LastUsed.IsZero() {
		t.Error("lastUsed not set")
	}

	rr = doRequest(h, http.MethodGet, "/api/file/handles?limit=0", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestTemplates(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rr := doRequest(h, http.MethodGet, "/api/templates", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var all map[string]map[string]string
	json.NewDecoder(rr.Body).Decode(&all)
	if len(all["chrome"]) != 5 || len(all["content"]) != 5 || len(all["general"]) != 2 {
		t.Errorf("unexpected category sizes: %d/%d/%d", len(all["chrome"]), len(all["content"]), len(all["general"]))
	}

	rr = doRequest(h, http.MethodGet, "/api/templates/unknown", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "{}" {
		t.Errorf("body = %q, want {}", got)
	}
}

func TestStaticIndex(t *testing.T) {
	h, _ := newTestHandler(t, "secret")

	rr := doRequest(h, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "foxstyle") {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = doRequest(h, http.MethodGet, "/static/app.css", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status = %d", rr.Code)
	}
}
