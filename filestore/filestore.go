// Package filestore keeps uploaded attachments on local disk. It is a thin
// byte wrapper: the chat relay addresses files only by their stored name.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid file name")
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create file store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// StoredName derives a collision-resistant on-disk name from the original
// display name: time prefix, random component, sanitized base name.
func StoredName(original string) string {
	base := filepath.Base(original)
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), uuid.NewString()[:8], base)
}

func (s *Store) Save(storedName string, data []byte) error {
	if !validName(storedName) {
		return ErrInvalidName
	}
	return os.WriteFile(filepath.Join(s.dir, storedName), data, 0o644)
}

func (s *Store) Load(storedName string) ([]byte, error) {
	if !validName(storedName) {
		return nil, ErrInvalidName
	}
	data, err := os.ReadFile(filepath.Join(s.dir, storedName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// validName rejects anything that could escape the store directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
