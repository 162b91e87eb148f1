package profile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Checks records which parts of a profile are present.
type Checks struct {
	PrefsExists           bool `json:"prefsExists"`
	ChromeDirectoryExists bool `json:"chromeDirectoryExists"`
	UserChromeExists      bool `json:"userChromeExists"`
	UserContentExists     bool `json:"userContentExists"`
	UserJSExists          bool `json:"userJsExists"`
	IsWritable            bool `json:"isWritable"`
}

// Validation is the result of Validate.
type Validation struct {
	Valid           bool     `json:"valid"`
	Profile         string   `json:"profile"`
	Path            string   `json:"path"`
	Checks          Checks   `json:"checks"`
	Recommendations []string `json:"recommendations"`
}

// Validate inspects p. A profile is valid when prefs.js is readable and the
// profile directory is writable.
func Validate(p Profile) Validation {
	checks := Checks{
		PrefsExists:           readable(p.PrimaryConfigPath),
		ChromeDirectoryExists: isDir(p.ChromeDirPath),
		UserChromeExists:      readable(p.UserChromeCSSPath),
		UserContentExists:     readable(p.UserContentCSSPath),
		UserJSExists:          readable(UserJSPath(p)),
		IsWritable:            writable(p.RootPath),
	}

	recs := []string{}
	if !checks.ChromeDirectoryExists {
		recs = append(recs, "Create chrome directory for CSS files")
	}
	if !checks.UserJSExists {
		recs = append(recs, "Consider creating user.js for advanced configuration")
	}
	if !checks.IsWritable {
		recs = append(recs, "Check file permissions - profile directory is not writable")
	}

	return Validation{
		Valid:           checks.PrefsExists && checks.IsWritable,
		Profile:         p.Name,
		Path:            p.RootPath,
		Checks:          checks,
		Recommendations: recs,
	}
}

// VersionInfo reports the Firefox version that last used a profile.
type VersionInfo struct {
	Version string `json:"version"`
	Source  string `json:"source"`
}

var mstonePattern = regexp.MustCompile(`user_pref\("browser\.startup\.homepage_override\.mstone", "(.+)"\)`)

// Version reads the last Firefox version from compatibility.ini, falling
// back to the homepage override milestone in prefs.js.
func Version(p Profile) VersionInfo {
	if data, err := os.ReadFile(filepath.Join(p.RootPath, "compatibility.ini")); err == nil {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if v, ok := strings.CutPrefix(line, "LastVersion="); ok && v != "" {
				return VersionInfo{Version: v, Source: "compatibility.ini"}
			}
		}
	}

	if data, err := os.ReadFile(p.PrimaryConfigPath); err == nil {
		if m := mstonePattern.FindSubmatch(data); m != nil {
			return VersionInfo{Version: string(m[1]), Source: "prefs.js"}
		}
	}

	return VersionInfo{Version: "unknown", Source: "none"}
}

// EnsureChromeDir creates the profile's chrome directory if needed.
func EnsureChromeDir(p Profile) error {
	if err := os.MkdirAll(p.ChromeDirPath, 0o755); err != nil {
		return fmt.Errorf("creating chrome directory: %w", err)
	}
	return nil
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// writable checks dir by creating and removing a temporary file.
func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".foxstyle-writable-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
