// Package fsblob stores photo bytes on the local filesystem.
package fsblob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store writes objects under a root directory, one file per key.
type Store struct {
	root string
}

// New creates a filesystem blob store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("blob directory is required")
	}
	root := filepath.Clean(dir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Put writes the full contents of reader under key, replacing any previous
// object. A partial write never replaces an existing object.
func (s *Store) Put(ctx context.Context, key string, reader io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := s.keyPath(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create blob parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create blob temp file: %w", err)
	}
	written, err := io.Copy(tmp, reader)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("close blob temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("finalize blob: %w", err)
	}
	return written, nil
}

// Open returns a reader for the object at key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return file, nil
}

// Delete removes the object at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *Store) keyPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(filepath.Clean(path), s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob key escapes storage root")
	}
	return path, nil
}
