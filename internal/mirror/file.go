package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBlob stores the snapshot in one JSON file, replaced by rename.
type FileBlob struct {
	path string
}

// NewFile returns a Mirror backed by the file at path.
func NewFile(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("mirror file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return New(&FileBlob{path: path}), nil
}

func (f *FileBlob) Get(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return data, err
}

func (f *FileBlob) Put(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}

func (f *FileBlob) Close() error   { return nil }
func (f *FileBlob) String() string { return "file:" + f.path }
