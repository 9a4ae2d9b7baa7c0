// Package local loads database files from the local filesystem and watches
// them for changes.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/JakeFAU/referer-classifier/internal/storage"
)

// Config captures the parameters for the local filesystem store.
type Config struct {
	// BaseDir is the directory database files are resolved against.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Store reads database files below a base directory.
type Store struct {
	baseDir string
	logger  *zap.Logger
}

// New creates a Store rooted at cfg.BaseDir, which must be an existing
// directory.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{baseDir: filepath.Clean(cfg.BaseDir), logger: logger}, nil
}

// Load reads the named file.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined to baseDir by resolve.
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file://%s", storage.ErrNotFound, fullPath)
		}
		return nil, fmt.Errorf("read %s: %w", fullPath, err)
	}
	return data, nil
}

// Watch calls onChange whenever the named file is written, created or
// renamed into place. The parent directory is watched so editors that
// replace the file atomically are still noticed.
func (s *Store) Watch(ctx context.Context, name string, onChange func()) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			s.logger.Warn("Failed to close file watcher", zap.Error(cerr))
		}
	}()
	if err := watcher.Add(filepath.Dir(fullPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(fullPath), err)
	}

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != fullPath || event.Op&relevant == 0 {
				continue
			}
			s.logger.Debug("Database file changed", zap.String("path", fullPath), zap.Stringer("op", event.Op))
			onChange()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("File watcher error", zap.Error(werr))
		}
	}
}

// resolve joins name onto baseDir, rejecting paths that escape it.
func (s *Store) resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("path is required")
	}
	fullPath := filepath.Join(s.baseDir, name)
	rel, err := filepath.Rel(s.baseDir, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return fullPath, nil
}
