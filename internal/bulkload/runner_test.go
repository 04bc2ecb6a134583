package bulkload

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeDocs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0644))
	}
}

func newUploadServer(t *testing.T, uploaded *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/documents", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*uploaded = append(*uploaded, body["file_name"])
		w.WriteHeader(http.StatusAccepted)
	}))
}

func TestRunner_UploadsAllFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "b.txt", "a.txt", "c.txt")

	var uploaded []string
	server := newUploadServer(t, &uploaded)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = server.URL
	cfg.Directory = dir
	cfg.OwnerID = "user-1"
	cfg.CursorFile = filepath.Join(t.TempDir(), "cursor.json")
	cfg.RequestsPerSecond = 1000

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)
	defer runner.Close()

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, uploaded)

	cursor, err := runner.GetCursor()
	require.NoError(t, err)
	assert.Equal(t, 3, cursor.ProcessedCount)
}

func TestRunner_ResumesFromCursor(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "a.txt", "b.txt", "c.txt")

	var uploaded []string
	server := newUploadServer(t, &uploaded)
	defer server.Close()

	cursorFile := filepath.Join(t.TempDir(), "cursor.json")
	require.NoError(t, NewCursorManager(cursorFile).Save(Cursor{
		LastFile:       filepath.Join(dir, "b.txt"),
		ProcessedCount: 2,
	}))

	cfg := DefaultConfig()
	cfg.ServerURL = server.URL
	cfg.Directory = dir
	cfg.CursorFile = cursorFile
	cfg.RequestsPerSecond = 1000

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)
	defer runner.Close()

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []string{"c.txt"}, uploaded)
}

func TestRunner_DryRunUploadsNothing(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "a.txt")

	var uploaded []string
	server := newUploadServer(t, &uploaded)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = server.URL
	cfg.Directory = dir
	cfg.CursorFile = filepath.Join(t.TempDir(), "cursor.json")
	cfg.DryRun = true

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)
	defer runner.Close()

	require.NoError(t, runner.Run(context.Background()))
	assert.Empty(t, uploaded)
}

func TestRunner_StopsOnServerError(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "a.txt", "b.txt")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = server.URL
	cfg.Directory = dir
	cfg.CursorFile = filepath.Join(t.TempDir(), "cursor.json")
	cfg.RequestsPerSecond = 1000

	runner, err := NewRunner(cfg, testLogger())
	require.NoError(t, err)
	defer runner.Close()

	err = runner.Run(context.Background())
	require.Error(t, err)

	cursor, cerr := runner.GetCursor()
	require.NoError(t, cerr)
	assert.True(t, cursor.IsEmpty(), "cursor must not advance past a failed upload")
}
