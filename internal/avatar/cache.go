// Package avatar maintains the on-disk avatar cache: one file per user,
// swept after seven days of inactivity measured by file modification time.
package avatar

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultTTL           = 7 * 24 * time.Hour
	defaultSweepInterval = 24 * time.Hour
)

// Downloader is the slice of the fetch client the cache needs.
type Downloader interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Cache stores avatars under dir as <userID>.png. Concurrent writers for the
// same user converge on the same content; last write wins.
type Cache struct {
	dir    string
	ttl    time.Duration
	client Downloader
	logger *slog.Logger
}

type Config struct {
	Dir    string
	TTL    time.Duration
	Client Downloader
	Logger *slog.Logger
}

// New creates the cache directory if absent.
func New(cfg Config) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{
		dir:    cfg.Dir,
		ttl:    cfg.TTL,
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// Path returns the cache file location for a user.
func (c *Cache) Path(userID string) string {
	return filepath.Join(c.dir, userID+".png")
}

// Ensure downloads the avatar once per user; subsequent calls are a stat.
func (c *Cache) Ensure(ctx context.Context, userID, url string) error {
	path := c.Path(userID)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := c.client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("download avatar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write avatar: %w", err)
	}
	return nil
}

// Sweep deletes cache files whose mtime is older than the TTL.
func (c *Cache) Sweep() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Error("cache sweep failed", "dir", c.dir, "err", err)
		return
	}

	cutoff := time.Now().Add(-c.ttl)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(c.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				c.logger.Warn("stale avatar not removed", "file", path, "err", err)
			} else {
				c.logger.Info("stale avatar removed", "file", path)
			}
		}
	}
}

// RunSweeper sweeps on a fixed interval until ctx is cancelled. It runs
// independently of message handling; the TTL makes collisions with an
// in-flight write practically negligible.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
