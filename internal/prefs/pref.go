// Package prefs reads and patches Firefox preference files (prefs.js,
// user.js) without disturbing unrelated lines.
package prefs

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// StylesheetsKey is the preference that makes Firefox load userChrome.css
// and userContent.css from the profile's chrome directory.
const StylesheetsKey = "toolkit.legacyUserProfileCustomizations.stylesheets"

// ErrNoWritableConfig is returned when no candidate file could be patched.
var ErrNoWritableConfig = errors.New("could not enable preference in any config file")

// ErrInvalidPref is returned for a preference Firefox cannot store: an
// empty key or a value that is not a boolean, string or number.
var ErrInvalidPref = errors.New("invalid preference")

// Action describes what a patch invocation did.
type Action string

const (
	ActionNone           Action = "none"
	ActionUpdated        Action = "updated"
	ActionAdded          Action = "added"
	ActionCreated        Action = "created"
	ActionAlreadyEnabled Action = "already_enabled"
)

// ConfigFile is one candidate preference file of a profile.
type ConfigFile struct {
	Path    string `json:"path"`
	Label   string `json:"label"`
	Primary bool   `json:"primary"`
}

// assignmentMarkers are the functions Firefox accepts in preference files.
var assignmentMarkers = []string{"user_pref", "pref", "sticky_pref", "lockPref"}

// enabledNeedle is the serialized form that marks key as enabled.
func enabledNeedle(key string) string {
	return key + `", true`
}

func disabledNeedle(key string) string {
	return key + `", false`
}

// assignmentLine returns the canonical line enabling key.
func assignmentLine(key string) string {
	return fmt.Sprintf("user_pref(%q, true);", key)
}

// assignmentPattern matches a whole boolean assignment line for key,
// capturing indentation and marker so they survive a rewrite.
func assignmentPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^([ \t]*)(` + strings.Join(assignmentMarkers, "|") + `)\("` +
		regexp.QuoteMeta(key) + `",\s*(?:true|false)\);`)
}

// Pref is an arbitrary preference assignment written by WriteUserJS.
type Pref struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// Validate reports whether p can be written as a user_pref line.
func (p Pref) Validate() error {
	if strings.TrimSpace(p.Key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidPref)
	}
	if _, ok := renderValue(p.Value); !ok {
		return fmt.Errorf("%w: %s has unsupported value %v (%T)", ErrInvalidPref, p.Key, p.Value, p.Value)
	}
	return nil
}

// Line renders the preference as a user_pref call. Callers validate first;
// an unsupported value renders as false.
func (p Pref) Line() string {
	value, ok := renderValue(p.Value)
	if !ok {
		value = "false"
	}
	return fmt.Sprintf("user_pref(%q, %s);", p.Key, value)
}

// renderValue formats the value types Firefox preferences hold.
func renderValue(v any) (string, bool) {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v), true
	case string:
		return strconv.Quote(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return renderValue(float64(v))
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	default:
		return "", false
	}
}
