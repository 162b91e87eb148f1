// Package filestore loads and saves stylesheet files on behalf of the editor
// and tracks them through opaque handles.
package filestore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/foxstyle/internal/storage"
)

var (
	// ErrInvalidArgument is returned when a required argument is empty.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a file cannot be read.
	ErrNotFound = errors.New("file not found or not readable")
	// ErrMissingTarget is returned by Save when neither a known handle nor a
	// path was given.
	ErrMissingTarget = errors.New("file path or file ID is required")
)

// HandleRegistry persists handles. Implemented by storage.Store.
type HandleRegistry interface {
	SaveHandle(h storage.FileHandle) error
	GetHandle(id string) (storage.FileHandle, error)
	TouchHandle(id string, at time.Time) error
	ListHandles(limit int) ([]storage.FileHandle, error)
	PruneHandles(before time.Time) (int64, error)
}

// Handle describes a registered file handle.
type Handle struct {
	FileID       string    `json:"fileId"`
	FilePath     string    `json:"filePath"`
	FileName     string    `json:"fileName"`
	LastModified time.Time `json:"lastModified"`
	LastUsed     time.Time `json:"lastUsed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Loaded is the result of Load and Open.
type Loaded struct {
	FileID    string `json:"fileId"`
	Content   string `json:"content"`
	FileName  string `json:"fileName"`
	Directory string `json:"directory"`
	FullPath  string `json:"fullPath"`
}

// Saved is the result of Save and SaveAs.
type Saved struct {
	Success  bool   `json:"success"`
	FileID   string `json:"fileId,omitempty"`
	FilePath string `json:"filePath"`
	FileName string `json:"fileName,omitempty"`
	Message  string `json:"message"`
}

// Store reads and writes files and registers handles for them.
type Store struct {
	registry HandleRegistry
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Store backed by registry.
func New(registry HandleRegistry, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{registry: registry, now: time.Now, logger: logger}
}

// Load reads path and registers a fresh handle for it.
func (s *Store) Load(path string) (Loaded, error) {
	if path == "" {
		return Loaded{}, fmt.Errorf("%w: file path is required", ErrInvalidArgument)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	mtime := s.now()
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime()
	}
	return s.register(path, string(data), mtime)
}

// Open is Load for files that may not exist yet: a missing file yields
// empty content and still gets a handle.
func (s *Store) Open(path string) (Loaded, error) {
	if path == "" {
		return Loaded{}, fmt.Errorf("%w: file path is required", ErrInvalidArgument)
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Loaded{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return s.register(path, string(data), s.now())
}

// Save writes content to the file behind fileID. When fileID is unknown,
// pathOverride is used instead.
func (s *Store) Save(fileID, content, pathOverride string) (Saved, error) {
	target := pathOverride
	known := false
	if fileID != "" {
		h, err := s.registry.GetHandle(fileID)
		switch {
		case err == nil:
			target = h.Path
			known = true
		case errors.Is(err, storage.ErrNotFound):
		default:
			return Saved{}, fmt.Errorf("looking up handle: %w", err)
		}
	}
	if target == "" {
		return Saved{}, ErrMissingTarget
	}

	if err := writeFile(target, content); err != nil {
		return Saved{}, err
	}

	if known {
		if err := s.registry.TouchHandle(fileID, s.now()); err != nil {
			s.logger.Warn("failed to refresh file handle", "id", fileID, "error", err)
		}
	}

	return Saved{Success: true, FilePath: target, Message: "File saved successfully"}, nil
}

// SaveAs writes content to path and registers a new handle for it.
func (s *Store) SaveAs(content, path string) (Saved, error) {
	if path == "" || content == "" {
		return Saved{}, fmt.Errorf("%w: file path and content are required", ErrInvalidArgument)
	}
	if err := writeFile(path, content); err != nil {
		return Saved{}, err
	}
	loaded, err := s.register(path, "", s.now())
	if err != nil {
		return Saved{}, err
	}
	return Saved{
		Success:  true,
		FileID:   loaded.FileID,
		FilePath: path,
		FileName: loaded.FileName,
		Message:  "File saved successfully",
	}, nil
}

// List returns up to limit handles, newest first.
func (s *Store) List(limit int) ([]Handle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	}
	rows, err := s.registry.ListHandles(limit)
	if err != nil {
		return nil, fmt.Errorf("listing handles: %w", err)
	}
	out := make([]Handle, 0, len(rows))
	for _, h := range rows {
		out = append(out, Handle{
			FileID:       h.ID,
			FilePath:     h.Path,
			FileName:     h.Name,
			LastModified: h.LastModified,
			LastUsed:     h.LastUsed,
			CreatedAt:    h.CreatedAt,
		})
	}
	return out, nil
}

// Prune drops handles that have not been opened or saved through since before.
func (s *Store) Prune(before time.Time) (int64, error) {
	n, err := s.registry.PruneHandles(before)
	if err != nil {
		return 0, fmt.Errorf("pruning handles: %w", err)
	}
	s.logger.Info("pruned file handles", "count", n, "before", before)
	return n, nil
}

func (s *Store) register(path, content string, mtime time.Time) (Loaded, error) {
	now := s.now()
	h := storage.FileHandle{
		ID:           uuid.NewString(),
		Path:         path,
		Name:         filepath.Base(path),
		Directory:    filepath.Dir(path),
		LastModified: mtime,
		LastUsed:     now,
		CreatedAt:    now,
	}
	if err := s.registry.SaveHandle(h); err != nil {
		return Loaded{}, fmt.Errorf("registering handle: %w", err)
	}
	return Loaded{
		FileID:    h.ID,
		Content:   content,
		FileName:  h.Name,
		Directory: h.Directory,
		FullPath:  path,
	}, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
