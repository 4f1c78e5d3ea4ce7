package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s := New("my chat")
	require.NotEmpty(t, s.ID)
	require.Equal(t, "my chat", s.Title)
	require.Empty(t, s.Messages)
	require.False(t, s.CreatedAt.IsZero())
	require.Equal(t, s.CreatedAt, s.UpdatedAt)
}

func TestAppendBumpsUpdatedAt(t *testing.T) {
	s := New("chat")
	before := s.UpdatedAt
	time.Sleep(time.Millisecond)
	s.Append(NewMessage(RoleUser, "hello"))
	require.Len(t, s.Messages, 1)
	require.True(t, s.UpdatedAt.After(before))
}

func TestClearKeepsSession(t *testing.T) {
	s := New("chat")
	s.Append(NewMessage(RoleUser, "a"))
	s.Append(NewMessage(RoleAssistant, "b"))
	s.Clear()
	require.Empty(t, s.Messages)
	require.Equal(t, "chat", s.Title)
}

func TestTimestampsSurviveJSON(t *testing.T) {
	s := New("chat")
	s.Append(NewMessage(RoleUser, "hello"))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.Contains(t, string(data), s.CreatedAt.Format("2006-01-02T15:04:05"))

	var back Session
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, s.CreatedAt.Equal(back.CreatedAt))
	require.True(t, s.Messages[0].CreatedAt.Equal(back.Messages[0].CreatedAt))
}

func TestEstimateTokens(t *testing.T) {
	require.Zero(t, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 2, EstimateTokens("abcdefgh"))
	require.Equal(t, 1, EstimateTokens("ab"), "rounds up to a full token")
	require.Equal(t, 2, EstimateTokens("你好"), "non-ASCII weighs heavier")
}
