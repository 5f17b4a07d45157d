package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileClient stores objects as files below a root directory.
type FileClient struct {
	root string
}

// NewFileClient creates a filesystem client rooted at dir.
func NewFileClient(dir string) (*FileClient, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileClient{root: dir}, nil
}

func (c *FileClient) path(key string) string {
	return filepath.Join(c.root, filepath.FromSlash(key))
}

// Upload writes content to a temporary file and renames it into place.
func (c *FileClient) Upload(ctx context.Context, key string, content io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := c.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()           // #nosec G104 -- best-effort cleanup in error path
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Download opens the file stored under key.
func (c *FileClient) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.path(key)) // #nosec G304 -- key is validated by Store
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

// Delete removes the file stored under key.
func (c *FileClient) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}

// List walks the root and returns the files whose key starts with prefix.
func (c *FileClient) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size(), Modified: info.ModTime()})
		return nil
	})
	return objects, err
}

var _ Client = (*FileClient)(nil)
