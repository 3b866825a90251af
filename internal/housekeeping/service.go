// Package housekeeping prunes stale session files and old generated
// images on a cron schedule.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/storyloom/storyloom/internal/config"
)

// Service runs the scheduled sweep. Start blocks until the context is
// cancelled.
type Service struct {
	cfg         config.HousekeepingConfig
	sessionsDir string
	imagesDir   string
}

// NewService creates a housekeeping service over the given directories.
func NewService(cfg config.HousekeepingConfig, sessionsDir, imagesDir string) *Service {
	return &Service{cfg: cfg, sessionsDir: sessionsDir, imagesDir: imagesDir}
}

// Start arms the cron schedule and blocks until ctx is cancelled. A
// disabled service returns immediately.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		slog.Info("housekeeping disabled")
		return nil
	}

	c := robfigcron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		removed := s.Sweep(time.Now())
		slog.Info("housekeeping sweep complete", "removed", removed)
	})
	if err != nil {
		return fmt.Errorf("housekeeping: bad schedule %q: %w", s.cfg.Schedule, err)
	}

	c.Start()
	slog.Info("housekeeping started", "schedule", s.cfg.Schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Sweep removes session files and images older than the configured
// ages, returning the number of files deleted.
func (s *Service) Sweep(now time.Time) int {
	removed := 0
	if s.cfg.MaxSessionAgeDays > 0 {
		cutoff := now.Add(-time.Duration(s.cfg.MaxSessionAgeDays) * 24 * time.Hour)
		removed += pruneDir(s.sessionsDir, cutoff, ".jsonl")
	}
	if s.cfg.MaxImageAgeDays > 0 {
		cutoff := now.Add(-time.Duration(s.cfg.MaxImageAgeDays) * 24 * time.Hour)
		removed += pruneDir(s.imagesDir, cutoff, ".png", ".jpg", ".jpeg")
	}
	return removed
}

// pruneDir deletes regular files under dir whose modification time is
// before cutoff and whose extension matches. Missing directories are not
// an error.
func pruneDir(dir string, cutoff time.Time, exts ...string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("housekeeping: read dir failed", "dir", dir, "err", err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !matchExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("housekeeping: remove failed", "path", path, "err", err)
			continue
		}
		removed++
	}
	return removed
}

func matchExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
