package adaptors

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"site_auditor/internal/pkg/errors"
)

// FileStore keeps screenshots under a local directory. References are file://
// URLs.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, `failed to resolve screenshot directory`)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, `failed to create screenshot directory`)
	}
	return &FileStore{dir: abs}, nil
}

func (f *FileStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return ``, err
	}
	path, err := f.path(key)
	if err != nil {
		return ``, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ``, errors.Wrap(err, `failed to create directory`)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ``, errors.Wrap(err, `failed to write file`)
	}
	return `file://` + filepath.ToSlash(path), nil
}

func (f *FileStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := strings.CutPrefix(ref, `file://`)
	if !ok {
		return nil, errors.Errorf(`reference %q is not a file reference`, ref)
	}
	path = filepath.FromSlash(path)
	if !strings.HasPrefix(path, f.dir+string(filepath.Separator)) {
		return nil, errors.Errorf(`reference %q is outside the store`, ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, `failed to read file`)
	}
	return data, nil
}

func (f *FileStore) path(key string) (string, error) {
	path := filepath.Join(f.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, f.dir+string(filepath.Separator)) {
		return ``, errors.Errorf(`key %q escapes the store`, key)
	}
	return path, nil
}
