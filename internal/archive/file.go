package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

type FileArchive struct {
	root string
}

func NewFileArchive(root string) (*FileArchive, error) {
	for _, ns := range []Namespace{Originals, Teasers, Collages} {
		if err := os.MkdirAll(filepath.Join(root, string(ns)), 0o755); err != nil {
			return nil, err
		}
	}

	return &FileArchive{root: root}, nil
}

func (a *FileArchive) path(ns Namespace, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(a.root, string(ns), key), nil
}

func (a *FileArchive) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	p, err := a.path(ns, key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}

	return data, err
}

// Put writes through a temp file and a rename so readers never see a partial image.
func (a *FileArchive) Put(ctx context.Context, ns Namespace, key string, data []byte) error {
	p, err := a.path(ns, key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), p)
}

func (a *FileArchive) Exists(ctx context.Context, ns Namespace, key string) (bool, error) {
	p, err := a.path(ns, key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (a *FileArchive) List(ctx context.Context, ns Namespace) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.root, string(ns)))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)

	return keys, nil
}
