package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/scanning"
)

// WriteFile encodes r and writes it to path atomically. An existing file is
// replaced only once the full report has been written.
func WriteFile(path string, r *scanning.Report, format Format) error {
	var buf bytes.Buffer
	if err := Encode(&buf, r, format); err != nil {
		return err
	}
	if err := WriteAtomic(path, buf.Bytes()); err != nil {
		return errors.WrapScanError(errors.CodeFileWrite, "failed to write report", err).
			WithContext("path", path)
	}
	return nil
}

// WriteAtomic writes data to a temp file in the same directory, syncs it and
// renames it over path. The temp file is removed on failure.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".portscout-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
