// Package backup snapshots and restores the SQLite submission database.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	backupPrefix  = "backup-"
	restorePrefix = "pre-restore-"
	extension     = ".db"
	stampLayout   = "20060102-150405.000000"
)

var ErrBackupNotFound = errors.New("backup not found")

// Info describes one backup file.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Manager writes backups of a live database into a directory and keeps the
// newest MaxBackups of them.
type Manager struct {
	db         *sqlx.DB
	dbPath     string
	dir        string
	maxBackups int
	now        func() time.Time
}

func NewManager(db *sqlx.DB, dbPath, dir string, maxBackups int) *Manager {
	return &Manager{
		db:         db,
		dbPath:     dbPath,
		dir:        dir,
		maxBackups: maxBackups,
		now:        time.Now,
	}
}

// Create writes a consistent snapshot with VACUUM INTO and prunes old backups.
func (m *Manager) Create(ctx context.Context) (*Info, error) {
	info, err := m.snapshot(ctx, backupPrefix)
	if err != nil {
		return nil, err
	}

	slog.Info("backup created", "name", info.Name, "size_bytes", info.Size)

	_, err = m.Prune()
	if err != nil {
		slog.Warn("failed to prune old backups", "error", err)
	}

	return info, nil
}

func (m *Manager) snapshot(ctx context.Context, prefix string) (*Info, error) {
	err := os.MkdirAll(m.dir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := prefix + m.now().UTC().Format(stampLayout) + extension
	target := filepath.Join(m.dir, name)

	_, err = m.db.ExecContext(ctx, "VACUUM INTO ?", target)
	if err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return stat(target)
}

// List returns the regular backups, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		info, err := stat(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		backups = append(backups, *info)
	}

	// Names embed a sortable UTC timestamp
	slices.SortFunc(backups, func(a, b Info) int {
		return strings.Compare(b.Name, a.Name)
	})
	return backups, nil
}

// Prune deletes regular backups beyond the newest maxBackups and returns their names.
func (m *Manager) Prune() ([]string, error) {
	if m.maxBackups <= 0 {
		return nil, nil
	}

	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(backups) <= m.maxBackups {
		return nil, nil
	}

	var removed []string
	for _, b := range backups[m.maxBackups:] {
		err := os.Remove(b.Path)
		if err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", b.Name, err)
		}
		slog.Info("removed old backup", "name", b.Name)
		removed = append(removed, b.Name)
	}
	return removed, nil
}

// Restore snapshots the current database, closes the handle and copies the
// named backup over the database file. The server must not be running.
func (m *Manager) Restore(ctx context.Context, name string) (*Info, error) {
	src, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	pre, err := m.snapshot(ctx, restorePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to back up current database: %w", err)
	}
	slog.Info("current database saved before restore", "name", pre.Name)

	err = m.db.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close database: %w", err)
	}

	err = copyFile(src, m.dbPath)
	if err != nil {
		return nil, err
	}

	// Stale WAL files would be replayed over the restored pages
	for _, suffix := range []string{"-wal", "-shm"} {
		err := os.Remove(m.dbPath + suffix)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}

	slog.Info("database restored", "from", name)
	return pre, nil
}

// resolve maps a backup name to its path. Names never contain directories.
func (m *Manager) resolve(name string) (string, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, extension) ||
		!(strings.HasPrefix(name, backupPrefix) || strings.HasPrefix(name, restorePrefix)) {
		return "", fmt.Errorf("%w: %q", ErrBackupNotFound, name)
	}

	path := filepath.Join(m.dir, name)
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrBackupNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func stat(path string) (*Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	return &Info{Name: fi.Name(), Path: path, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// copyFile writes src to a temp file next to dst and renames it into place.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = io.Copy(tmp, in)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy backup: %w", err)
	}
	err = tmp.Sync()
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync restored database: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to close restored database: %w", err)
	}

	err = os.Rename(tmp.Name(), dst)
	if err != nil {
		return fmt.Errorf("failed to replace database: %w", err)
	}
	return nil
}
