package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/chatstore/internal/logger"
	"github.com/comigor/chatstore/internal/session"
)

// SQLiteStore persists sessions one row each, with the full session
// serialized into a JSON document column. The database is opened
// lazily and created on first use.
type SQLiteStore struct {
	path string

	once    sync.Once
	db      *sql.DB
	initErr error
}

// NewSQLiteStore creates a SQLite-backed store at the given path.
func NewSQLiteStore(path string) *SQLiteStore {
	if path == "" {
		path = "sessions.db"
	}
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) init() {
	var err error
	s.db, err = sql.Open("sqlite", "file:"+s.path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed", "path", s.path, "error", err)
		return
	}
	if _, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME
	);`); err != nil {
		s.initErr = err
		logger.L.Warn("sqlite table creation failed", "error", err)
		return
	}
	logger.L.Info("sqlite session DB initialized", "path", s.path)
}

// Load implements Store. Rows that fail to decode are skipped, not
// fatal: a partially corrupted database still yields the good rows.
func (s *SQLiteStore) Load(ctx context.Context) ([]*session.Session, error) {
	s.once.Do(s.init)
	if s.initErr != nil {
		return []*session.Session{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM sessions ORDER BY updated_at DESC;`)
	if err != nil {
		logger.L.Warn("sqlite load failed; starting empty", "error", err)
		return []*session.Session{}, nil
	}
	defer rows.Close()

	sessions := []*session.Session{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			continue
		}
		var sess session.Session
		if err := json.Unmarshal([]byte(doc), &sess); err != nil {
			logger.L.Warn("skipping corrupted session row", "error", err)
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

// Save implements Store. The table is replaced wholesale inside one
// transaction so a crash never leaves a mixed generation behind.
func (s *SQLiteStore) Save(ctx context.Context, sessions []*session.Session) error {
	s.once.Do(s.init)
	if s.initErr != nil {
		return s.initErr
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions;`); err != nil {
		tx.Rollback()
		return err
	}
	for _, sess := range sessions {
		doc, err := json.Marshal(sess)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, data, updated_at) VALUES (?,?,?);`,
			sess.ID, string(doc), sess.UpdatedAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
