package profile

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// IsBrowserRunning reports whether a Firefox process is alive. It shells out
// to pgrep (or tasklist on Windows); a missing tool is reported as an error.
func IsBrowserRunning(ctx context.Context) (bool, error) {
	switch runtime.GOOS {
	case "windows":
		out, err := exec.CommandContext(ctx, "tasklist", "/FI", "IMAGENAME eq firefox.exe").Output()
		if err != nil {
			return false, err
		}
		return strings.Contains(strings.ToLower(string(out)), "firefox.exe"), nil
	case "darwin":
		return pgrep(ctx, "Firefox")
	default:
		return pgrep(ctx, "firefox")
	}
}

func pgrep(ctx context.Context, pattern string) (bool, error) {
	err := exec.CommandContext(ctx, "pgrep", "-f", pattern).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		// pgrep exits 1 when nothing matched.
		return false, nil
	}
	return false, err
}
