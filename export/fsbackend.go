package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/castellan/extract/failure"
)

// FSBackend writes exported files under a root directory on local disk,
// mirroring the key as a relative path. Flattened to a plain relative path
// rather than a hive-partitioned layout, since the exporter has no
// dataset/partition concept.
type FSBackend struct {
	Root string
}

// NewFSBackend returns a Backend rooted at dir.
func NewFSBackend(dir string) *FSBackend {
	return &FSBackend{Root: dir}
}

// Put writes data to Root/key, creating parent directories as needed.
// contentType is accepted for interface symmetry with Backend
// implementations that need it (e.g. S3) but is unused on local disk.
func (b *FSBackend) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path := filepath.Join(b.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return failure.WrapInitError(err, filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return failure.WrapWriteError(err, path)
	}
	return nil
}
