package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/comigor/chatstore/internal/session"
	"github.com/google/uuid"
)

// ExportFormat selects the shape of an exported session.
type ExportFormat string

const (
	// FormatJSON is the structured, round-trippable form.
	FormatJSON ExportFormat = "json"
	// FormatText is a human-readable transcript, one block per message.
	FormatText ExportFormat = "text"
)

// ExportSession produces a full textual snapshot of a session. Unknown
// ids and unknown formats yield an empty string.
func (s *Store) ExportSession(id string, format ExportFormat) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.find(id)
	if sess == nil {
		return ""
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(sess, "", "  ")
		if err != nil {
			return ""
		}
		return string(data)
	case FormatText:
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", sess.Title)
		for _, m := range sess.Messages {
			fmt.Fprintf(&b, "[%s] %s\n%s\n\n",
				m.CreatedAt.Format("2006-01-02 15:04:05"),
				strings.ToUpper(m.Role),
				m.Content)
		}
		return b.String()
	default:
		return ""
	}
}

// ImportSession reconstructs a session from its JSON export and inserts
// it at the front of the set. A colliding or missing id gets a fresh
// one; the message list is taken as-is, order preserved.
func (s *Store) ImportSession(data []byte) (*session.Session, error) {
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.Messages == nil {
		sess.Messages = []session.Message{}
	}

	s.mu.Lock()
	if sess.ID == "" || s.find(sess.ID) != nil {
		sess.ID = uuid.NewString()
	}
	s.sessions = append([]*session.Session{&sess}, s.sessions...)
	s.mu.Unlock()
	s.schedulePersist()
	return &sess, nil
}
