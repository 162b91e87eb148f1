package prefs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const backupInfix = ".backup."

// Backup is a timestamped copy of a preference file.
type Backup struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
}

// maxBackupAttempts bounds the search for a free backup name.
const maxBackupAttempts = 1000

// createBackup copies path to <path>.backup.<unix-millis>, preserving the
// source file mode. An existing backup is never overwritten: when the name
// is taken the millisecond suffix is advanced until a free one is found.
func createBackup(path string, at time.Time) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", err
	}

	var (
		dst string
		out *os.File
	)
	stamp := at.UnixMilli()
	for i := 0; ; i++ {
		dst = fmt.Sprintf("%s%s%d", path, backupInfix, stamp+int64(i))
		out, err = os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) || i+1 >= maxBackupAttempts {
			return "", err
		}
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// ListBackups returns the backups of path, newest first. A missing
// directory yields an empty list.
func ListBackups(path string) ([]Backup, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + backupInfix

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Backup{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	backups := []Backup{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimPrefix(name, prefix), 10, 64)
		if err != nil {
			continue
		}
		b := Backup{
			Path:      filepath.Join(dir, name),
			Name:      name,
			CreatedAt: time.UnixMilli(ms),
		}
		if info, err := e.Info(); err == nil {
			b.Size = info.Size()
		}
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}
