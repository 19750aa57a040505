package snapshot

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore：本地目录后端（默认）
type FSStore struct {
	dir string
}

func NewFSStore(dir string) *FSStore { return &FSStore{dir: dir} }

func (s *FSStore) Driver() Driver { return DriverFS }

func (s *FSStore) Dir() string { return s.dir }

// Put：目录不存在时创建；先写临时文件再改名，读者不会看到半截文件
func (s *FSStore) Put(ctx context.Context, key string, body []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, key))
}

func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// List：目录缺失视为空
func (s *FSStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}
