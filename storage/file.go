package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const DefaultDir = "checkpoint"

// FileStore keeps one file per checkpoint in dir. The directory is created on first save.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDir
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Save(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", s.dir)
	}

	// Write then rename so a reader never sees a half written checkpoint.
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmp.Name())
	}

	return errors.Wrapf(os.Rename(tmp.Name(), filepath.Join(s.dir, name)), "failed to store %s", name)
}

func (s *FileStore) Load(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%s in %s", name, s.dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return data, nil
}

func (s *FileStore) Close() error {
	return nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}
