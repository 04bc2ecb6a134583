package bulkload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config controls one bulk upload run.
type Config struct {
	ServerURL string
	Directory string
	OwnerID   string
	IndexName string

	CursorFile        string
	RequestsPerSecond int
	DryRun            bool
}

// DefaultConfig returns a config with working defaults.
func DefaultConfig() Config {
	return Config{
		ServerURL:         "http://localhost:9020",
		CursorFile:        "upload-cursor.json",
		RequestsPerSecond: 2,
	}
}

// Runner walks a directory of documents and uploads each one to the
// orchestrator's document API, tracking progress in a resumable cursor.
type Runner struct {
	cfg     Config
	cursors *CursorManager
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewRunner(cfg Config, logger *slog.Logger) (*Runner, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	cursors := NewCursorManager(cfg.CursorFile)
	if err := cursors.Lock(); err != nil {
		return nil, fmt.Errorf("lock cursor: %w", err)
	}

	return &Runner{
		cfg:     cfg,
		cursors: cursors,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}, nil
}

// Close releases the cursor lock.
func (r *Runner) Close() {
	if err := r.cursors.Unlock(); err != nil {
		r.logger.Warn("failed to unlock cursor", slog.Any("error", err))
	}
}

// GetCursor returns the persisted cursor.
func (r *Runner) GetCursor() (Cursor, error) {
	return r.cursors.Load()
}

// ResetCursor clears the persisted cursor.
func (r *Runner) ResetCursor() error {
	return r.cursors.Reset()
}

// Run uploads every file under the directory in lexical order, skipping
// files at or before the cursor position. The cursor is saved after every
// upload so an interrupted run resumes where it stopped.
func (r *Runner) Run(ctx context.Context) error {
	cursor, err := r.cursors.Load()
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}

	files, err := r.listFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.logger.Info("no files to upload", slog.String("directory", r.cfg.Directory))
		return nil
	}

	for _, path := range files {
		if cursor.LastFile != "" && path <= cursor.LastFile {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.cfg.DryRun {
			r.logger.Info("would upload", slog.String("file", path))
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := r.uploadFile(ctx, path); err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}

		cursor.LastFile = path
		cursor.ProcessedCount++
		if err := r.cursors.Save(cursor); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}

		r.logger.Info("uploaded",
			slog.String("file", path),
			slog.Int("processed", cursor.ProcessedCount))
	}

	r.logger.Info("bulk upload finished", slog.Int("processed", cursor.ProcessedCount))
	return nil
}

func (r *Runner) listFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.cfg.Directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (r *Runner) uploadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	payload, err := json.Marshal(map[string]string{
		"file_name":    filepath.Base(path),
		"content_type": contentType,
		"index_name":   r.cfg.IndexName,
		"data_base64":  base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return fmt.Errorf("marshal upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.ServerURL+"/api/documents", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.OwnerID != "" {
		req.Header.Set("X-User-Id", r.cfg.OwnerID)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
