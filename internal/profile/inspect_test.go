package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findProfile(t *testing.T, root, name string) Profile {
	t.Helper()
	p, err := NewLocator(root).Find(name)
	require.NoError(t, err)
	return p
}

func TestValidate_BareProfile(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "p", true, false)

	v := Validate(findProfile(t, root, "p"))

	assert.True(t, v.Valid)
	assert.Equal(t, "p", v.Profile)
	assert.True(t, v.Checks.PrefsExists)
	assert.True(t, v.Checks.IsWritable)
	assert.False(t, v.Checks.ChromeDirectoryExists)
	assert.False(t, v.Checks.UserChromeExists)
	assert.False(t, v.Checks.UserJSExists)
	assert.Equal(t, []string{
		"Create chrome directory for CSS files",
		"Consider creating user.js for advanced configuration",
	}, v.Recommendations)

	entries, err := os.ReadDir(filepath.Join(root, "p"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "writability check must clean up")
}

func TestValidate_FullProfile(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "p", true, true)
	dir := filepath.Join(root, "p")
	for _, f := range []string{"chrome/userChrome.css", "chrome/userContent.css", "user.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(f)), nil, 0o644))
	}

	v := Validate(findProfile(t, root, "p"))

	assert.True(t, v.Valid)
	assert.Equal(t, Checks{
		PrefsExists:           true,
		ChromeDirectoryExists: true,
		UserChromeExists:      true,
		UserContentExists:     true,
		UserJSExists:          true,
		IsWritable:            true,
	}, v.Checks)
	assert.Empty(t, v.Recommendations)
}

func TestVersion(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "p", true, false)
	p := findProfile(t, root, "p")

	assert.Equal(t, VersionInfo{Version: "unknown", Source: "none"}, Version(p))

	require.NoError(t, os.WriteFile(p.PrimaryConfigPath,
		[]byte(`user_pref("browser.startup.homepage_override.mstone", "128.0");`+"\n"), 0o644))
	assert.Equal(t, VersionInfo{Version: "128.0", Source: "prefs.js"}, Version(p))

	ini := "[Compatibility]\nLastVersion=131.0_20241001000000/20241001000000\nLastOSABI=Linux_x86_64-gcc3\n"
	require.NoError(t, os.WriteFile(filepath.Join(p.RootPath, "compatibility.ini"), []byte(ini), 0o644))
	assert.Equal(t, VersionInfo{Version: "131.0_20241001000000/20241001000000", Source: "compatibility.ini"}, Version(p))
}

func TestEnsureChromeDir(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "p", true, false)
	p := findProfile(t, root, "p")

	require.NoError(t, EnsureChromeDir(p))
	require.NoError(t, EnsureChromeDir(p))
	assert.DirExists(t, p.ChromeDirPath)
}
