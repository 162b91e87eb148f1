package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// FileHandle is a registered editor handle bound to a file on disk.
// LastModified mirrors the file; LastUsed is when the handle was last
// opened or saved through and drives TTL eviction.
type FileHandle struct {
	ID           string
	Path         string
	Name         string
	Directory    string
	LastModified time.Time
	LastUsed     time.Time
	CreatedAt    time.Time
}

// PatchEvent records one preference patch invocation against a profile.
type PatchEvent struct {
	ID            string
	Profile       string
	PreferenceKey string
	Action        string
	FilesModified string // JSON array stored as text
	BackupPath    string
	Message       string
	CreatedAt     time.Time
}
