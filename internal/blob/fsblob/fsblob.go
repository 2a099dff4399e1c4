// Package fsblob is the filesystem slip store used in development and in
// single-instance deployments.
package fsblob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cashtrack/internal/blob"
)

type Store struct {
	dir     string
	baseURL string
}

var _ blob.Store = (*Store)(nil)

// New creates a store rooted at dir. Saved objects are served by the HTTP
// layer under baseURL, e.g. "http://localhost:8080/slips".
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the root directory, for the HTTP layer to serve from.
func (s *Store) Dir() string { return s.dir }

func (s *Store) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	clean, err := s.localPath(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create slip dir: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return "", fmt.Errorf("write slip: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return fmt.Errorf("url %q not under %q", url, s.baseURL)
	}
	clean, err := s.localPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove slip: %w", err)
	}
	return nil
}

// localPath rejects names that would escape the root directory.
func (s *Store) localPath(name string) (string, error) {
	cleaned := path.Clean("/" + name)
	if cleaned == "/" {
		return "", fmt.Errorf("empty object name")
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}
