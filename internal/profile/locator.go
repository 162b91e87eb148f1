// Package profile discovers Firefox profile directories and inspects their
// layout.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kalambet/foxstyle/internal/prefs"
)

const (
	primaryConfigName = "prefs.js"
	userConfigName    = "user.js"
	chromeDirName     = "chrome"
	userChromeName    = "userChrome.css"
	userContentName   = "userContent.css"
)

var (
	// ErrUnsupportedPlatform is returned for an OS with no known profile root.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrProfileNotFound is returned when no profile has the requested name.
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile is a snapshot of one profile directory taken at discovery time.
type Profile struct {
	Name               string `json:"name"`
	RootPath           string `json:"path"`
	ChromeDirPath      string `json:"chromePath"`
	PrimaryConfigPath  string `json:"prefsPath"`
	HasChromeDir       bool   `json:"hasChrome"`
	UserChromeCSSPath  string `json:"userChrome"`
	UserContentCSSPath string `json:"userContent"`
}

// ProfilesRoot returns the directory holding Firefox profiles for platform
// ("linux", "darwin" or "windows") under the home directory.
func ProfilesRoot(platform, home string) (string, error) {
	switch platform {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles"), nil
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox", "Profiles"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
}

// DefaultRoot returns the profiles root of the running OS.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return ProfilesRoot(runtime.GOOS, home)
}

// Locator enumerates the profiles below a root directory.
type Locator struct {
	root string
}

// NewLocator creates a Locator for root.
func NewLocator(root string) *Locator {
	return &Locator{root: root}
}

// Root returns the directory the locator scans.
func (l *Locator) Root() string { return l.root }

// List returns every profile directory in directory order. Entries are
// profiles when they are non-hidden directories containing prefs.js. A
// missing root yields an empty list.
func (l *Locator) List() ([]Profile, error) {
	entries, err := os.ReadDir(l.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profiles root %s: %w", l.root, err)
	}

	profiles := []Profile{}
	for _, e := range entries {
		name := e.Name()
		if name == "" || name[0] == '.' {
			continue
		}
		dir := filepath.Join(l.root, name)
		// Stat follows symlinked profile directories.
		if !isDir(dir) {
			continue
		}
		prefsPath := filepath.Join(dir, primaryConfigName)
		if _, err := os.Stat(prefsPath); err != nil {
			continue
		}
		chromeDir := filepath.Join(dir, chromeDirName)
		profiles = append(profiles, Profile{
			Name:               name,
			RootPath:           dir,
			ChromeDirPath:      chromeDir,
			PrimaryConfigPath:  prefsPath,
			HasChromeDir:       isDir(chromeDir),
			UserChromeCSSPath:  filepath.Join(chromeDir, userChromeName),
			UserContentCSSPath: filepath.Join(chromeDir, userContentName),
		})
	}
	return profiles, nil
}

// Find returns the profile called name.
func (l *Locator) Find(name string) (Profile, error) {
	profiles, err := l.List()
	if err != nil {
		return Profile{}, err
	}
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// ConfigFiles returns the preference files to patch, primary first.
func ConfigFiles(p Profile) []prefs.ConfigFile {
	return []prefs.ConfigFile{
		{Path: p.PrimaryConfigPath, Label: primaryConfigName, Primary: true},
		{Path: UserJSPath(p), Label: userConfigName},
	}
}

// UserJSPath returns the location of the profile's user.js.
func UserJSPath(p Profile) string {
	return filepath.Join(p.RootPath, userConfigName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
