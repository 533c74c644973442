package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"catalog/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
)

type fileSnapshotStore struct {
	path       string
	backupPath string
}

// NewFileSnapshotStore keeps the catalog as pretty JSON at path and the
// previous version at path+backupSuffix.
func NewFileSnapshotStore(path, backupSuffix string) SnapshotStore {
	return &fileSnapshotStore{
		path:       path,
		backupPath: path + backupSuffix,
	}
}

func (s *fileSnapshotStore) Load(_ context.Context) (domain.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read catalog %s: %w", s.path, err)
	}
	return decode(data, s.path)
}

func (s *fileSnapshotStore) Backup(_ context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // nothing persisted yet
		}
		return fmt.Errorf("failed to read catalog %s: %w", s.path, err)
	}

	if err := writeFile(s.backupPath, data); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", s.backupPath, err)
	}
	log.Debugf("Backed up %s to %s", s.path, s.backupPath)
	return nil
}

func (s *fileSnapshotStore) Save(ctx context.Context, catalog domain.Catalog) error {
	data, err := encode(catalog)
	if err != nil {
		return err
	}

	if err := s.Backup(ctx); err != nil {
		return err
	}

	if err := writeFile(s.path, data); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", s.path, err)
	}

	log.Infof("💾 Saved catalog with %d months, %d days to %s", len(catalog), catalog.TotalDays(), s.path)
	return nil
}

// writeFile replaces path through a temporary sibling so a crash never
// leaves a half-written file behind.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
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
	return os.Rename(tmp.Name(), path)
}
