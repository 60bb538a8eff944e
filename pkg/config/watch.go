package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/odvcencio/hoverkit/pkg/errors"
)

// ChangeFunc receives the reloaded config, or the error that made the new
// file unusable. It runs on the watcher goroutine.
type ChangeFunc func(*Config, error)

// Watcher reloads a config file whenever its content changes.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	checksum []byte
}

// NewWatcher starts watching path. The parent directory is watched so that
// editors which save by renaming a temp file are noticed.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "resolving config path").WithContext("path", path)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "initializing file watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "watching config directory").WithContext("path", abs)
	}

	w := &Watcher{path: abs, watcher: fw}
	w.checksum, _ = fileChecksum(abs)
	return w, nil
}

// Run delivers reloads to onChange until ctx is done or the watcher fails.
// The Watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	defer w.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New(errors.ErrCodeInternal, "file watcher closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.changed() {
				continue
			}
			onChange(LoadFromPath(w.path))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New(errors.ErrCodeInternal, "file watcher closed")
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "file watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// changed reports whether the file content differs from the last load.
func (w *Watcher) changed() bool {
	sum, err := fileChecksum(w.path)
	if err != nil {
		return false
	}
	if bytes.Equal(sum, w.checksum) {
		return false
	}
	w.checksum = sum
	return true
}

func fileChecksum(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}
