// Package customizer ties profile discovery, preference patching and file
// handles together into the operations exposed over HTTP, MCP and the CLI.
package customizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kalambet/foxstyle/internal/filestore"
	"github.com/kalambet/foxstyle/internal/prefs"
	"github.com/kalambet/foxstyle/internal/profile"
	"github.com/kalambet/foxstyle/internal/storage"
)

// ErrInvalidCSSType is returned by QuickAccess for an unknown stylesheet.
var ErrInvalidCSSType = errors.New("cssType must be chrome or content")

const defaultHistoryLimit = 50

// EventStore persists patch history. Implemented by storage.Store.
type EventStore interface {
	SavePatchEvent(e storage.PatchEvent) error
	ListPatchEvents(profile string, limit int) ([]storage.PatchEvent, error)
}

// RunningFunc reports whether the browser is currently running.
type RunningFunc func(ctx context.Context) (bool, error)

// Deps holds the collaborators of a Service.
type Deps struct {
	Locator       *profile.Locator
	Patcher       *prefs.Patcher
	Files         *filestore.Store
	Events        EventStore
	PreferenceKey string      // defaults to prefs.StylesheetsKey
	Running       RunningFunc // defaults to profile.IsBrowserRunning
	Logger        *slog.Logger
}

// Service implements the customizer operations.
type Service struct {
	locator *profile.Locator
	patcher *prefs.Patcher
	files   *filestore.Store
	events  EventStore
	key     string
	running RunningFunc
	logger  *slog.Logger
}

// New creates a Service.
func New(deps Deps) *Service {
	s := &Service{
		locator: deps.Locator,
		patcher: deps.Patcher,
		files:   deps.Files,
		events:  deps.Events,
		key:     deps.PreferenceKey,
		running: deps.Running,
		logger:  deps.Logger,
	}
	if s.key == "" {
		s.key = prefs.StylesheetsKey
	}
	if s.running == nil {
		s.running = profile.IsBrowserRunning
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.patcher == nil {
		s.patcher = prefs.NewPatcher()
	}
	return s
}

// PreferenceKey returns the preference the service enables.
func (s *Service) PreferenceKey() string { return s.key }

// Profiles lists the discovered profiles.
func (s *Service) Profiles() ([]profile.Profile, error) {
	return s.locator.List()
}

// EnableResult is the outcome of enabling the preference for one profile.
type EnableResult struct {
	Enabled bool `json:"enabled"`
	prefs.Outcome
	FirefoxRunning bool `json:"firefoxRunning"`
}

// EnableUserChrome enables the preference in the named profile and records
// the outcome in the patch history.
func (s *Service) EnableUserChrome(ctx context.Context, name string) (EnableResult, error) {
	p, err := s.locator.Find(name)
	if err != nil {
		return EnableResult{}, err
	}

	running := s.browserRunning(ctx)
	if running {
		s.logger.Warn("firefox is running; restart it to apply preference changes", "profile", name)
	}

	out, err := s.patcher.EnsureEnabled(s.key, profile.ConfigFiles(p))
	if err != nil {
		return EnableResult{}, fmt.Errorf("enabling %s for %s: %w", s.key, name, err)
	}
	s.record(name, out)

	return EnableResult{Enabled: true, Outcome: out, FirefoxRunning: running}, nil
}

// ProfileResult is one entry of an EnableAll run.
type ProfileResult struct {
	Profile string         `json:"profile"`
	Enabled bool           `json:"enabled"`
	Outcome *prefs.Outcome `json:"outcome,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Summary counts EnableAll results.
type Summary struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
	Failed  int `json:"failed"`
}

// EnableAllResult is the outcome of EnableAll.
type EnableAllResult struct {
	Success bool            `json:"success"`
	Results []ProfileResult `json:"results"`
	Summary Summary         `json:"summary"`
}

// EnableAll enables the preference in every profile, one after another.
// Per-profile failures are captured in the result rather than aborting.
func (s *Service) EnableAll(ctx context.Context) (EnableAllResult, error) {
	profiles, err := s.locator.List()
	if err != nil {
		return EnableAllResult{}, err
	}

	res := EnableAllResult{Success: true, Results: []ProfileResult{}}
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return EnableAllResult{}, err
		}
		out, err := s.patcher.EnsureEnabled(s.key, profile.ConfigFiles(p))
		if err != nil {
			s.logger.Warn("enable failed", "profile", p.Name, "error", err)
			res.Results = append(res.Results, ProfileResult{Profile: p.Name, Error: err.Error()})
			res.Summary.Failed++
			continue
		}
		s.record(p.Name, out)
		res.Results = append(res.Results, ProfileResult{Profile: p.Name, Enabled: true, Outcome: &out})
		res.Summary.Enabled++
	}
	res.Summary.Total = len(profiles)
	return res, nil
}

// CheckUserChrome reports where the preference is set for a profile.
func (s *Service) CheckUserChrome(name string) (prefs.State, error) {
	p, err := s.locator.Find(name)
	if err != nil {
		return prefs.State{}, err
	}
	return s.patcher.CheckState(s.key, profile.ConfigFiles(p)), nil
}

// QuickAccess opens a profile's userChrome.css ("chrome") or
// userContent.css ("content"), creating the chrome directory first.
func (s *Service) QuickAccess(name, cssType string) (filestore.Loaded, error) {
	p, err := s.locator.Find(name)
	if err != nil {
		return filestore.Loaded{}, err
	}

	var path string
	switch cssType {
	case "chrome":
		path = p.UserChromeCSSPath
	case "content":
		path = p.UserContentCSSPath
	default:
		return filestore.Loaded{}, fmt.Errorf("%w: %q", ErrInvalidCSSType, cssType)
	}

	if err := profile.EnsureChromeDir(p); err != nil {
		return filestore.Loaded{}, err
	}
	return s.files.Open(path)
}

// CreateUserJS regenerates a profile's user.js with the default prefs plus
// extra.
func (s *Service) CreateUserJS(name string, extra []prefs.Pref) (prefs.UserJSResult, error) {
	p, err := s.locator.Find(name)
	if err != nil {
		return prefs.UserJSResult{}, err
	}
	return s.patcher.WriteUserJS(profile.UserJSPath(p), extra)
}

// Validate inspects the named profile.
func (s *Service) Validate(name string) (profile.Validation, error) {
	p, err := s.locator.Find(name)
	if err != nil {
		return profile.Validation{}, err
	}
	return profile.Validate(p), nil
}

// Version reports the Firefox version that last used the named profile.
func (s *Service) Version(name string) (profile.VersionInfo, error) {
	p, err := s.locator.Find(name)
	if err != nil {
		return profile.VersionInfo{}, err
	}
	return profile.Version(p), nil
}

// ProfileBackups lists the backups of both preference files.
type ProfileBackups struct {
	Profile string         `json:"profile"`
	Backups []prefs.Backup `json:"backups"`
}

// Backups lists the preference file backups of the named profile, newest
// first.
func (s *Service) Backups(name string) (ProfileBackups, error) {
	p, err := s.locator.Find(name)
	if err != nil {
		return ProfileBackups{}, err
	}

	all := []prefs.Backup{}
	for _, f := range profile.ConfigFiles(p) {
		b, err := prefs.ListBackups(f.Path)
		if err != nil {
			return ProfileBackups{}, err
		}
		all = append(all, b...)
	}
	sortBackups(all)
	return ProfileBackups{Profile: name, Backups: all}, nil
}

// HistoryEntry is a recorded patch event.
type HistoryEntry struct {
	ID            string    `json:"id"`
	Profile       string    `json:"profile"`
	PreferenceKey string    `json:"preferenceKey"`
	Action        string    `json:"action"`
	FilesModified []string  `json:"filesModified"`
	BackupPath    string    `json:"backupPath,omitempty"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// History returns the most recent patch events of a profile.
func (s *Service) History(name string, limit int) ([]HistoryEntry, error) {
	if s.events == nil {
		return []HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	events, err := s.events.ListPatchEvents(name, limit)
	if err != nil {
		return nil, fmt.Errorf("listing patch events: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(events))
	for _, e := range events {
		files := []string{}
		if err := json.Unmarshal([]byte(e.FilesModified), &files); err != nil {
			s.logger.Warn("malformed files_modified", "event", e.ID, "error", err)
			files = []string{}
		}
		entries = append(entries, HistoryEntry{
			ID:            e.ID,
			Profile:       e.Profile,
			PreferenceKey: e.PreferenceKey,
			Action:        e.Action,
			FilesModified: files,
			BackupPath:    e.BackupPath,
			Message:       e.Message,
			CreatedAt:     e.CreatedAt,
		})
	}
	return entries, nil
}

// BrowserRunning reports whether Firefox is running. Detection failures are
// logged and reported as not running.
func (s *Service) BrowserRunning(ctx context.Context) bool {
	return s.browserRunning(ctx)
}

// Handles lists the newest registered file handles.
func (s *Service) Handles(limit int) ([]filestore.Handle, error) {
	return s.files.List(limit)
}

// PruneHandles drops file handles not used since before.
func (s *Service) PruneHandles(before time.Time) (int64, error) {
	return s.files.Prune(before)
}

// Files exposes the file store for the load/save endpoints.
func (s *Service) Files() *filestore.Store { return s.files }

func (s *Service) browserRunning(ctx context.Context) bool {
	running, err := s.running(ctx)
	if err != nil {
		s.logger.Debug("browser process check failed", "error", err)
		return false
	}
	return running
}

func sortBackups(b []prefs.Backup) {
	slices.SortStableFunc(b, func(x, y prefs.Backup) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})
}

func (s *Service) record(name string, out prefs.Outcome) {
	if s.events == nil {
		return
	}
	files, err := json.Marshal(out.FilesModified)
	if err != nil {
		files = []byte("[]")
	}
	e := storage.PatchEvent{
		ID:            ulid.Make().String(),
		Profile:       name,
		PreferenceKey: s.key,
		Action:        string(out.Action),
		FilesModified: string(files),
		BackupPath:    out.BackupPath,
		Message:       out.Message,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.events.SavePatchEvent(e); err != nil {
		s.logger.Warn("failed to record patch event", "profile", name, "error", err)
	}
}
