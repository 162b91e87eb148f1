package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

const userJSHeader = "// foxstyle - User preferences\n// This file is used to override default Firefox settings\n\n"

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Outcome is the result of one EnsureEnabled invocation.
type Outcome struct {
	Action        Action   `json:"action"`
	FilesModified []string `json:"filesModified"`
	BackupCreated bool     `json:"backupCreated"`
	BackupPath    string   `json:"backupPath,omitempty"`
	Message       string   `json:"message"`
}

// State is the read-only view of a preference across candidate files.
type State struct {
	Enabled             bool     `json:"enabled"`
	FoundIn             []string `json:"foundIn"`
	ConflictingSettings bool     `json:"conflictingSettings"`
	Details             string   `json:"details"`
}

// Patcher enables boolean preferences in a profile's preference files.
type Patcher struct {
	clock  Clock
	logger *slog.Logger
}

// NewPatcher creates a Patcher using the wall clock and the default logger.
func NewPatcher() *Patcher {
	return &Patcher{clock: realClock{}, logger: slog.Default()}
}

// NewPatcherWithClock creates a Patcher with a custom clock (for testing).
func NewPatcherWithClock(clock Clock, logger *slog.Logger) *Patcher {
	if clock == nil {
		clock = realClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Patcher{clock: clock, logger: logger}
}

// patchRun carries the per-invocation state shared across candidate files.
type patchRun struct {
	key            string
	backupDone     bool
	backupPath     string
	primaryEnabled bool
	alreadyEnabled bool
	action         Action
	filesModified  []string
}

// EnsureEnabled makes sure key is set to true in files, which are tried in
// order. The first existing file that needs a change is backed up; later
// files are not. A successfully written primary file ends the run. Once the
// primary file is known to be enabled, secondary files are only rewritten
// when they carry an explicit assignment for key that would override it.
//
// Per-file I/O failures are logged and the file is skipped. When nothing
// could be written and nothing was already enabled, ErrNoWritableConfig is
// returned.
func (p *Patcher) EnsureEnabled(key string, files []ConfigFile) (Outcome, error) {
	run := &patchRun{key: key, action: ActionNone}
	var lastErr error

	for _, file := range files {
		stop, err := p.patchFile(run, file)
		if err != nil {
			p.logger.Warn("skipping preference file", "file", file.Label, "path", file.Path, "error", err)
			lastErr = err
			continue
		}
		if stop {
			break
		}
	}

	if len(run.filesModified) == 0 {
		if run.alreadyEnabled {
			return Outcome{
				Action:        ActionAlreadyEnabled,
				FilesModified: []string{},
				BackupCreated: false,
				Message:       fmt.Sprintf("%s was already enabled", subject(key)),
			}, nil
		}
		if lastErr != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrNoWritableConfig, lastErr)
		}
		return Outcome{}, ErrNoWritableConfig
	}

	return Outcome{
		Action:        run.action,
		FilesModified: run.filesModified,
		BackupCreated: run.backupDone,
		BackupPath:    run.backupPath,
		Message:       fmt.Sprintf("%s enabled in %s", subject(key), strings.Join(run.filesModified, ", ")),
	}, nil
}

// patchFile processes one candidate file. stop reports whether the run is
// complete after this file.
func (p *Patcher) patchFile(run *patchRun, file ConfigFile) (stop bool, err error) {
	content, exists, err := readOptional(file.Path)
	if err != nil {
		return false, err
	}

	if strings.Contains(content, enabledNeedle(run.key)) {
		run.alreadyEnabled = true
		if file.Primary {
			run.primaryEnabled = true
		}
		return false, nil
	}

	pattern := assignmentPattern(run.key)
	hasAssignment := pattern.MatchString(content)
	if run.primaryEnabled && !hasAssignment {
		// Nothing here overrides the enabled primary file.
		return false, nil
	}

	if exists && !run.backupDone {
		backup, err := createBackup(file.Path, p.clock.Now())
		if err != nil {
			return false, fmt.Errorf("backing up %s: %w", file.Label, err)
		}
		run.backupDone = true
		run.backupPath = backup
		p.logger.Info("created backup", "path", backup)
	}

	var next string
	var action Action
	switch {
	case hasAssignment:
		next = pattern.ReplaceAllString(content, "${1}${2}(\""+escapeReplacement(run.key)+"\", true);")
		action = ActionUpdated
	case strings.TrimSpace(content) != "":
		next = strings.TrimSpace(content) + "\n\n" + enableComment(run.key) + "\n" + assignmentLine(run.key) + "\n"
		action = ActionAdded
	default:
		header := ""
		if !file.Primary {
			header = userJSHeader
		}
		next = header + enableComment(run.key) + "\n" + assignmentLine(run.key) + "\n"
		action = ActionCreated
	}

	if err := os.WriteFile(file.Path, []byte(next), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", file.Label, err)
	}
	run.action = action
	run.filesModified = append(run.filesModified, file.Label)
	p.logger.Info("preference enabled", "file", file.Label, "key", run.key, "action", string(action))

	return file.Primary, nil
}

// CheckState inspects files without modifying them. Unreadable files are
// ignored.
func (p *Patcher) CheckState(key string, files []ConfigFile) State {
	state := State{FoundIn: []string{}}
	sawDisabled := false

	for _, file := range files {
		data, err := os.ReadFile(file.Path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				p.logger.Debug("cannot read preference file", "path", file.Path, "error", err)
			}
			continue
		}
		content := string(data)

		switch {
		case strings.Contains(content, enabledNeedle(key)):
			state.Enabled = true
			state.FoundIn = append(state.FoundIn, file.Label)
		case strings.Contains(content, disabledNeedle(key)):
			sawDisabled = true
			state.FoundIn = append(state.FoundIn, file.Label+" (disabled)")
		}
	}

	state.ConflictingSettings = state.Enabled && sawDisabled
	if len(state.FoundIn) > 0 {
		state.Details = "Found in: " + strings.Join(state.FoundIn, ", ")
	} else {
		state.Details = "Not configured"
	}
	return state
}

// readOptional reads path, treating a missing file as empty content.
func readOptional(path string) (content string, exists bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// subject names what key switches on in user-facing messages.
func subject(key string) string {
	if key == StylesheetsKey {
		return "userChrome.css support"
	}
	return key
}

func enableComment(key string) string {
	return "// Enable " + subject(key)
}

// escapeReplacement escapes '$' for regexp.ReplaceAllString templates.
func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
