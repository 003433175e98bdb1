package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"journalflow/internal/errs"
	"journalflow/internal/ports"
)

var ErrInvalidRef = errors.New("file reference escapes storage root")

// LocalStore resolves manuscript file references against a directory on disk.
type LocalStore struct {
	root string
}

var _ ports.FileStore = (*LocalStore)(nil)

func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.Wrapf(err, "resolve storage root %s", root)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errs.Wrap(err, "check context")
	}

	path, err := s.resolve(ref)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrapf(err, "stat %s", ref)
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalStore) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || filepath.IsAbs(ref) {
		return "", ErrInvalidRef
	}
	path := filepath.Join(s.root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidRef
	}
	return path, nil
}
