package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite database holding the file handle registry and the
// preference patch history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "foxstyle.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- File handles ---

// SaveHandle inserts or replaces a file handle.
func (s *Store) SaveHandle(h FileHandle) error {
	lastUsed := h.LastUsed
	if lastUsed.IsZero() {
		lastUsed = h.CreatedAt
	}
	_, err := s.db.Exec(`
		INSERT INTO file_handles (id, path, name, directory, last_modified, last_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			name = excluded.name,
			directory = excluded.directory,
			last_modified = excluded.last_modified,
			last_used = excluded.last_used`,
		h.ID, h.Path, h.Name, h.Directory,
		h.LastModified.UTC().Format(timeLayout), lastUsed.UTC().Format(timeLayout),
		h.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

const handleColumns = `id, path, name, directory, last_modified, last_used, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHandle(row rowScanner) (FileHandle, error) {
	var h FileHandle
	var lastModified, lastUsed, createdAt string
	if err := row.Scan(&h.ID, &h.Path, &h.Name, &h.Directory, &lastModified, &lastUsed, &createdAt); err != nil {
		return FileHandle{}, err
	}
	var err error
	if h.LastModified, err = time.Parse(timeLayout, lastModified); err != nil {
		return FileHandle{}, fmt.Errorf("parsing last_modified: %w", err)
	}
	if h.LastUsed, err = time.Parse(timeLayout, lastUsed); err != nil {
		return FileHandle{}, fmt.Errorf("parsing last_used: %w", err)
	}
	if h.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return FileHandle{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return h, nil
}

func (s *Store) GetHandle(id string) (FileHandle, error) {
	h, err := scanHandle(s.db.QueryRow(`SELECT `+handleColumns+` FROM file_handles WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return FileHandle{}, ErrNotFound
	}
	return h, err
}

// TouchHandle records a save through the handle: both the file's
// modification time and the handle's last use move to at.
func (s *Store) TouchHandle(id string, at time.Time) error {
	ts := at.UTC().Format(timeLayout)
	res, err := s.db.Exec(`UPDATE file_handles SET last_modified = ?, last_used = ? WHERE id = ?`, ts, ts, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListHandles returns the most recently created handles first.
func (s *Store) ListHandles(limit int) ([]FileHandle, error) {
	rows, err := s.db.Query(`SELECT `+handleColumns+` FROM file_handles ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FileHandle
	for rows.Next() {
		h, err := scanHandle(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// PruneHandles deletes handles that have not been used since before and
// reports how many were removed. The file's own mtime plays no part.
func (s *Store) PruneHandles(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM file_handles WHERE last_used < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Patch events ---

func (s *Store) SavePatchEvent(e PatchEvent) error {
	files := e.FilesModified
	if files == "" {
		files = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO patch_events (id, profile, preference_key, action, files_modified, backup_path, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Profile, e.PreferenceKey, e.Action, files, e.BackupPath, e.Message,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

// ListPatchEvents returns the newest events for a profile first.
func (s *Store) ListPatchEvents(profile string, limit int) ([]PatchEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, profile, preference_key, action, files_modified, backup_path, message, created_at
		FROM patch_events WHERE profile = ? ORDER BY created_at DESC, id DESC LIMIT ?`, profile, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []PatchEvent
	for rows.Next() {
		var e PatchEvent
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Profile, &e.PreferenceKey, &e.Action, &e.FilesModified, &e.BackupPath, &e.Message, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}
