package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/comigor/chatstore/internal/logger"
	"github.com/comigor/chatstore/internal/session"
)

// FileStore persists the session set as a JSON array in a single file.
// Writes go through a temp file and an atomic rename.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store. A corrupted file is moved aside to
// <path>.backup and an empty set is returned.
func (s *FileStore) Load(ctx context.Context) ([]*session.Session, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return []*session.Session{}, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		logger.L.Warn("session file unreadable; starting empty", "path", s.path, "error", err)
		return []*session.Session{}, nil
	}

	var sessions []*session.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		backup := s.path + ".backup"
		if rerr := os.Rename(s.path, backup); rerr == nil {
			logger.L.Warn("corrupted session file backed up; starting empty", "backup", backup, "error", err)
		} else {
			logger.L.Warn("corrupted session file; starting empty", "path", s.path, "error", err)
		}
		return []*session.Session{}, nil
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	return sessions, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, sessions []*session.Session) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
