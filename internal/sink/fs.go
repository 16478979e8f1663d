package sink

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/trihash/internal/checksum"
	"github.com/starford/trihash/internal/models"
)

const tmpPrefix = ".trihash-tmp-"

// FS implements Sink backed by the local file system.
type FS struct {
	root string // absolute path to the export directory
}

var _ Sink = (*FS)(nil)

// NewFS creates a new FS sink rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sink: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("sink: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sink: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("sink: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("sink: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("sink: path escapes root: %s", rel)
	}
	return abs, nil
}

// List walks dir (relative to root) and describes every stored payload.
// Temporary files of in-flight writes are skipped.
func (f *FS) List(dir string) ([]models.ExportFile, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	out := []models.ExportFile{}
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.ExportFile{
			Path:      filepath.ToSlash(rel),
			Size:      info.Size(),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sink: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a stored payload.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("sink: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content (tmp file, fsync, rename) and describes
// the stored payload.
func (f *FS) Write(path string, content []byte) (*models.ExportFile, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("sink: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return nil, fmt.Errorf("sink: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sink: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("sink: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return nil, fmt.Errorf("sink: rename: %w", err)
	}
	success = true

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("sink: stat %s: %w", path, err)
	}
	rel, _ := filepath.Rel(f.root, abs)
	return &models.ExportFile{
		Path:      filepath.ToSlash(rel),
		Size:      info.Size(),
		Checksum:  checksum.Sum(content),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Delete removes a stored payload.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("sink: delete: path is the sink root")
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("sink: delete %s: %w", path, err)
	}
	return nil
}
