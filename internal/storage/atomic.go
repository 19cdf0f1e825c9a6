package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// errEmptyPath indicates a store was opened without a file path.
var errEmptyPath = errors.New("state file path is empty")

// writeAtomic replaces path with data so readers see either the old or the
// new document, never a partial one. The temp file lives beside the target
// so the final rename stays on one filesystem.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return errEmptyPath
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path comes from configuration
		_ = os.Remove(tmpPath)
		committed = true
		return fmt.Errorf("renaming temp file: %w", err)
	}
	committed = true

	// Best effort: make the rename itself durable.
	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir derives from the configured path
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
