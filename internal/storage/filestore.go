// Package storage keeps uploaded attachments on a filesystem rooted at the
// configured upload directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"registrationintake/internal/domain"
)

type fileStore struct {
	fs afero.Fs
}

// NewLocal returns a FileStore rooted at dir on the OS filesystem, creating
// dir if it does not exist. Names are resolved inside dir only.
func NewLocal(dir string) (domain.FileStore, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("could not create the directory where the uploaded files will be stored: %w", err)
	}
	return New(afero.NewBasePathFs(osFs, root)), nil
}

// New returns a FileStore over an arbitrary afero filesystem.
func New(fsys afero.Fs) domain.FileStore {
	return &fileStore{fs: fsys}
}

func (s *fileStore) Save(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	f, err := s.fs.OpenFile(clean, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", clean, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", clean, err)
	}
	return nil
}

func (s *fileStore) Open(ctx context.Context, name string) (*domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, domain.NewNotFoundError("File not found: %s", name)
	}
	info, err := s.fs.Stat(clean)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("stat %s: %w", clean, err)
		}
		return nil, domain.NewNotFoundError("File not found: %s", name)
	}
	f, err := s.fs.Open(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, domain.NewNotFoundError("File not found: %s", name)
		}
		return nil, fmt.Errorf("open %s: %w", clean, err)
	}
	return &domain.Attachment{Content: f, Size: info.Size()}, nil
}

// cleanName accepts only a bare file name so nothing can resolve outside the root.
func cleanName(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." || base != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}
