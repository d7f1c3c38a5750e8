// Package storage abstracts where receipt files live. The ledger only
// keeps metadata; content goes through this interface.
package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// StoredFile is the metadata returned after a successful store.
type StoredFile struct {
	Path         string
	OriginalName string
	MimeType     string
	Size         int64
}

type FileStore interface {
	Store(ownerID int64, name, mimeType string, content io.Reader) (StoredFile, error)
	// Release removes a stored file. Idempotent: returns false when the
	// path was already gone.
	Release(path string) (bool, error)
}

// LocalFileStore keeps files on the local filesystem under a base
// directory, one subdirectory per owner.
type LocalFileStore struct {
	baseDir string
	logger  *slog.Logger
}

func NewLocalFileStore(baseDir string, logger *slog.Logger) (*LocalFileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalFileStore{baseDir: baseDir, logger: logger}, nil
}

func (s *LocalFileStore) Store(ownerID int64, name, mimeType string, content io.Reader) (StoredFile, error) {
	dir := filepath.Join(s.baseDir, fmt.Sprintf("%d", ownerID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create owner dir: %w", err)
	}

	filename := fmt.Sprintf("%d-%s%s", time.Now().Unix(), uuid.New().String(), filepath.Ext(name))
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, content)
	if err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("write file: %w", err)
	}

	s.logger.Debug("file stored", "path", path, "size", size)
	return StoredFile{
		Path:         path,
		OriginalName: name,
		MimeType:     mimeType,
		Size:         size,
	}, nil
}

func (s *LocalFileStore) Release(path string) (bool, error) {
	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	s.logger.Debug("file released", "path", path)
	return true, nil
}
