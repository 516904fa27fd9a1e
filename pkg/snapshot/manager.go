// Package snapshot produces consistent point-in-time copies of the backing
// store file and manages their retention.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	filePrefix = "archive-"
	fileSuffix = ".db"
	// stampLayout embeds a UTC timestamp in the file name; lexical order
	// equals chronological order.
	stampLayout = "20060102T150405Z"
)

// Handle identifies one snapshot artifact.
type Handle struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config controls snapshot placement and retention.
type Config struct {
	Dir      string        // Directory snapshots are written to.
	MaxKeep  int           // Max retained snapshots; oldest evicted first. Default 10.
	Interval time.Duration // Periodic snapshot interval; <= 0 disables the timer.
}

// Manager creates, lists, and evicts snapshots of the live store.
type Manager struct {
	db     *gorm.DB
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager over the live store's connection.
func NewManager(db *gorm.DB, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxKeep < 1 {
		cfg.MaxKeep = 10
	}
	return &Manager{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// Snapshot writes a transactionally consistent copy of the entire store
// under the configured directory using SQLite's VACUUM INTO, which never
// observes a partial write and blocks concurrent traffic only for the
// duration of the copy itself. Retention is applied afterwards.
func (m *Manager) Snapshot(ctx context.Context) (*Handle, error) {
	if err := os.MkdirAll(m.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	createdAt := m.now().UTC()
	name := filePrefix + createdAt.Format(stampLayout) + fileSuffix
	path := filepath.Join(m.cfg.Dir, name)

	if err := m.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return nil, fmt.Errorf("vacuum into %s: %w", path, err)
	}

	if evicted, err := m.evict(); err != nil {
		m.logger.Warn("snapshot eviction failed", "error", err)
	} else if evicted > 0 {
		m.logger.Info("evicted old snapshots", "count", evicted)
	}

	m.logger.Info("snapshot created", "path", path)
	return &Handle{ID: uuid.NewString(), Path: path, CreatedAt: createdAt}, nil
}

// List returns the retained snapshots, oldest first.
func (m *Manager) List() ([]Handle, error) {
	names, err := m.snapshotNames()
	if err != nil {
		return nil, err
	}
	handles := make([]Handle, 0, len(names))
	for _, name := range names {
		createdAt, err := time.Parse(stampLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		handles = append(handles, Handle{
			ID:        name,
			Path:      filepath.Join(m.cfg.Dir, name),
			CreatedAt: createdAt,
		})
	}
	return handles, nil
}

// Run takes periodic snapshots until the context is cancelled. Disabled
// when no interval is configured.
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.Interval <= 0 {
		m.logger.Info("snapshot timer disabled")
		return
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.Info("snapshot timer started", "interval", m.cfg.Interval.String(), "dir", m.cfg.Dir)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("snapshot timer stopped")
			return
		case <-ticker.C:
			if _, err := m.Snapshot(ctx); err != nil {
				m.logger.Error("periodic snapshot failed", "error", err)
			}
		}
	}
}

// evict removes the oldest snapshots beyond MaxKeep. Names embed the
// creation timestamp, so lexical order is age order.
func (m *Manager) evict() (int, error) {
	names, err := m.snapshotNames()
	if err != nil {
		return 0, err
	}
	excess := len(names) - m.cfg.MaxKeep
	for i := 0; i < excess; i++ {
		if err := os.Remove(filepath.Join(m.cfg.Dir, names[i])); err != nil {
			return i, err
		}
	}
	if excess < 0 {
		return 0, nil
	}
	return excess, nil
}

func (m *Manager) snapshotNames() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RestoreFile substitutes the live store file with a snapshot. The store
// must not be open while this runs; the caller re-opens it afterwards and
// must re-run the store's consistency check before serving traffic. The
// copy goes through a temp file and rename so a failed restore never leaves
// a half-written store.
func RestoreFile(snapshotPath, dbPath string) error {
	src, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dbPath), ".restore-*")
	if err != nil {
		return fmt.Errorf("create restore temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("flush restore temp: %w", err)
	}

	// Drop sqlite sidecar files so the restored store opens clean.
	for _, sidecar := range []string{dbPath + "-wal", dbPath + "-shm"} {
		os.Remove(sidecar)
	}

	if err := os.Rename(tmpName, dbPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("substitute store file: %w", err)
	}
	return nil
}

// ConfigFromEnv loads snapshot config from environment variables.
// ARCHIVE_SNAPSHOT_DIR, ARCHIVE_SNAPSHOT_MAX_KEEP,
// ARCHIVE_SNAPSHOT_INTERVAL_HOURS
func ConfigFromEnv() Config {
	cfg := Config{Dir: "snapshots", MaxKeep: 10}

	if v := os.Getenv("ARCHIVE_SNAPSHOT_DIR"); v != "" {
		cfg.Dir = v
	}
	if v := os.Getenv("ARCHIVE_SNAPSHOT_MAX_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxKeep = n
		}
	}
	if v := os.Getenv("ARCHIVE_SNAPSHOT_INTERVAL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Interval = time.Duration(n) * time.Hour
		}
	}
	return cfg
}
