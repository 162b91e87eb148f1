//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.foxstyle.app"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "foxstyle")
	}
	return "foxstyle-data"
}

// Location describes where SetKey writes.
func Location() string {
	return "defaults domain " + defaultsDomain
}

// userDefaults keeps foxstyle keys in the macOS defaults database, one
// entry per dotted key.
type userDefaults struct {
	domain string
}

func newPlatformBackend() Backend {
	return &userDefaults{domain: defaultsDomain}
}

// run invokes the defaults tool. A missing key or domain makes defaults exit
// with status 1, reported here as missing=true.
func (u *userDefaults) run(verb, key string, extra ...string) (out string, missing bool, err error) {
	args := append([]string{verb, u.domain, key}, extra...)
	raw, err := exec.Command("defaults", args...).CombinedOutput()
	out = strings.TrimSpace(string(raw))
	if err == nil {
		return out, false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && verb != "write" {
		return "", true, nil
	}
	return "", false, fmt.Errorf("defaults %s %s: %w (%s)", verb, key, err, out)
}

func (u *userDefaults) GetString(key string) (string, bool, error) {
	out, missing, err := u.run("read", key)
	return out, !missing && err == nil, err
}

func (u *userDefaults) GetInt(key string) (int, bool, error) {
	s, ok, err := u.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (u *userDefaults) SetString(key, val string) error {
	_, _, err := u.run("write", key, "-string", val)
	return err
}

func (u *userDefaults) SetInt(key string, val int) error {
	_, _, err := u.run("write", key, "-int", strconv.Itoa(val))
	return err
}

func (u *userDefaults) Delete(key string) error {
	_, _, err := u.run("delete", key)
	return err
}
