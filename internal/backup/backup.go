// Package backup writes, lists and restores point-in-time copies of the
// SQLite database file.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/intermernet/scoreboard/internal/apperr"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/log"
	"github.com/intermernet/scoreboard/internal/metrics"
)

const (
	backupPrefix        = "scoreboard_backup_"
	beforeRestorePrefix = "scoreboard_before_restore_"
	timestampLayout     = "20060102_150405"

	// Above this many backups Create logs a reminder to prune.
	warnThreshold = 5
)

// Info describes one backup file.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Manager handles backups of the database file at dbFile, stored in dir.
type Manager struct {
	dbFile string
	dir    string
	now    func() time.Time
}

func NewManager(dbFile, dir string, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{dbFile: dbFile, dir: dir, now: now}
}

// Create writes a consistent copy of the open database with VACUUM INTO.
func (m *Manager) Create(store *database.Service) (Info, error) {
	logger := log.WithComponent("backup")

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create backup directory: %w", err)
	}

	name := backupPrefix + m.now().Format(timestampLayout) + ".db"
	path := filepath.Join(m.dir, name)
	if _, err := os.Stat(path); err == nil {
		return Info{}, apperr.Validation("backup %s already exists", name)
	}

	if _, err := store.DB().Exec(`VACUUM INTO ?;`, path); err != nil {
		return Info{}, fmt.Errorf("vacuum into %s: %w", path, err)
	}
	metrics.BackupsCreated.Inc()

	info, err := stat(path)
	if err != nil {
		return Info{}, err
	}
	logger.Info().Str("path", path).Int64("size_bytes", info.Size).Msg("backup created")

	all, err := m.List()
	if err != nil {
		return info, err
	}
	if len(all) > warnThreshold {
		logger.Warn().Int("count", len(all)).Str("dir", m.dir).Msg("consider cleaning up old backups")
	}
	return info, nil
}

// List returns the backups in dir, oldest first. A missing directory means no
// backups.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		info, err := stat(filepath.Join(m.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Restore replaces the database file with the named backup. The current file
// is first copied next to it as scoreboard_before_restore_<timestamp>.db,
// whose path is returned (empty if there was no current file). The server
// must not be running.
func (m *Manager) Restore(name string) (string, error) {
	logger := log.WithComponent("backup")

	if name == "" || filepath.Base(name) != name {
		return "", apperr.Validation("invalid backup name %q", name)
	}
	src := filepath.Join(m.dir, name)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return "", apperr.NotFound("backup file not found: %s", name)
	} else if err != nil {
		return "", err
	}

	var saved string
	if _, err := os.Stat(m.dbFile); err == nil {
		saved = filepath.Join(filepath.Dir(m.dbFile), beforeRestorePrefix+m.now().Format(timestampLayout)+".db")
		if err := copyFile(m.dbFile, saved); err != nil {
			return "", fmt.Errorf("save current database: %w", err)
		}
		logger.Info().Str("path", saved).Msg("current database saved")
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(m.dbFile), 0o755); err != nil {
		return saved, err
	}
	// Copy beside the target then rename, so a failed copy never leaves a
	// truncated database behind.
	tmp := m.dbFile + ".restore"
	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return saved, fmt.Errorf("copy backup: %w", err)
	}
	if err := os.Rename(tmp, m.dbFile); err != nil {
		os.Remove(tmp)
		return saved, fmt.Errorf("replace database: %w", err)
	}

	logger.Info().Str("backup", name).Str("path", m.dbFile).Msg("database restored")
	return saved, nil
}

func stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: fi.Name(), Path: path, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
