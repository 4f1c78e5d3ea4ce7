package session

import (
	"time"

	"github.com/google/uuid"
)

// Roles attached to messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single conversation turn. Messages are immutable
// once appended to a session.
type Message struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	TokenCount int       `json:"token_count,omitempty"` // 0 = unknown
}

// Session represents an ordered conversation. A session owns its
// messages; they are never shared across sessions.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty session with a fresh id and both timestamps set
// to now.
func New(title string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessage creates a message with a fresh id and a current timestamp.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Append adds a message to the session and bumps UpdatedAt.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// Clear empties the message list in place and bumps UpdatedAt. The
// session stays in whatever set holds it.
func (s *Session) Clear() {
	s.Messages = s.Messages[:0]
	s.UpdatedAt = time.Now()
}
