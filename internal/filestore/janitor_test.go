package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (m *mockPruner) Prune(before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, before)
	return 2, m.err
}

func (m *mockPruner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cutoffs)
}

func TestJanitor_RunOnceUsesTTL(t *testing.T) {
	p := &mockPruner{}
	j := NewJanitor(p, 24*time.Hour, 0, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	n, err := j.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoffs[0])
	assert.Equal(t, time.Hour, j.every)
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	p := &mockPruner{err: errors.New("db closed")}
	j := NewJanitor(p, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestJanitor_ZeroTTLDisabled(t *testing.T) {
	p := &mockPruner{}
	j := NewJanitor(p, 0, time.Millisecond, nil)

	j.Run(context.Background())
	assert.Equal(t, 0, p.calls())
}

func TestJanitor_PrunesStoredHandles(t *testing.T) {
	fs, db := newTestStore(t)
	old := time.Now().Add(-48 * time.Hour)
	fs.now = func() time.Time { return old }
	_, err := fs.Open(filepath.Join(t.TempDir(), "stale.css"))
	require.NoError(t, err)
	fs.now = time.Now

	j := NewJanitor(fs, 24*time.Hour, 0, nil)
	n, err := j.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	handles, err := db.ListHandles(10)
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestJanitor_KeepsFreshHandleForOldFile(t *testing.T) {
	fs, _ := newTestStore(t)
	path := filepath.Join(t.TempDir(), "userChrome.css")
	require.NoError(t, os.WriteFile(path, []byte("#nav-bar {}"), 0o644))
	stale := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(path, stale, stale))

	loaded, err := fs.Load(path)
	require.NoError(t, err)

	j := NewJanitor(fs, 720*time.Hour, time.Hour, nil)
	n, err := j.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	saved, err := fs.Save(loaded.FileID, "#nav-bar { display: none }", "")
	require.NoError(t, err)
	assert.Equal(t, path, saved.FilePath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#nav-bar { display: none }", string(data))
}
