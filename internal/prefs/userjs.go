package prefs

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultUserJSPrefs are written to every generated user.js.
var DefaultUserJSPrefs = []Pref{
	{Key: StylesheetsKey, Value: true, Comment: "Enable userChrome.css and userContent.css support"},
	{Key: "browser.tabs.drawInTitlebar", Value: true, Comment: "Enable drawing tabs in titlebar (required for many userChrome themes)"},
	{Key: "svg.context-properties.content.enabled", Value: true, Comment: "Enable SVG context properties (helps with custom icons)"},
}

// UserJSResult describes a generated user.js.
type UserJSResult struct {
	Path       string `json:"path"`
	PrefsAdded int    `json:"prefsAdded"`
	BackupPath string `json:"backupPath,omitempty"`
	Message    string `json:"message"`
}

// WriteUserJS replaces path with a generated user.js holding the default
// prefs followed by extra. An existing file is backed up first.
func (p *Patcher) WriteUserJS(path string, extra []Pref) (UserJSResult, error) {
	for _, pref := range extra {
		if err := pref.Validate(); err != nil {
			return UserJSResult{}, err
		}
	}

	now := p.clock.Now()
	var result UserJSResult

	if _, err := os.Stat(path); err == nil {
		backup, err := createBackup(path, now)
		if err != nil {
			return UserJSResult{}, fmt.Errorf("backing up user.js: %w", err)
		}
		result.BackupPath = backup
	}

	all := make([]Pref, 0, len(DefaultUserJSPrefs)+len(extra))
	all = append(all, DefaultUserJSPrefs...)
	all = append(all, extra...)

	if err := os.WriteFile(path, []byte(renderUserJS(all, now)), 0o644); err != nil {
		return UserJSResult{}, fmt.Errorf("writing user.js: %w", err)
	}

	result.Path = path
	result.PrefsAdded = len(all)
	result.Message = fmt.Sprintf("Created user.js with %d preferences", len(all))
	p.logger.Info("user.js written", "path", path, "prefs", len(all))
	return result, nil
}

func renderUserJS(all []Pref, at time.Time) string {
	var b strings.Builder
	b.WriteString("// foxstyle - User preferences\n")
	b.WriteString("// This file contains user preferences that override Firefox defaults\n")
	fmt.Fprintf(&b, "// Generated on: %s\n", at.UTC().Format(time.RFC3339))
	b.WriteString("//\n// IMPORTANT: Restart Firefox after making changes to this file\n\n")

	for i, pref := range all {
		if i > 0 {
			b.WriteString("\n")
		}
		if pref.Comment != "" {
			fmt.Fprintf(&b, "// %s\n", pref.Comment)
		}
		b.WriteString(pref.Line())
		b.WriteString("\n")
	}

	b.WriteString("\n// Add your custom preferences below this line\n")
	return b.String()
}
