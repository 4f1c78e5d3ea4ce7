package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/chatstore/internal/session"
)

func TestSQLiteStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ss := NewSQLiteStore(path)
	defer ss.Close()

	a := session.New("older")
	a.Append(session.NewMessage(session.RoleUser, "first"))
	b := session.New("newer")
	b.Append(session.NewMessage(session.RoleUser, "second"))

	require.NoError(t, ss.Save(context.Background(), []*session.Session{a, b}))

	loaded, err := ss.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	ids := map[string]bool{}
	for _, sess := range loaded {
		ids[sess.ID] = true
	}
	require.True(t, ids[a.ID])
	require.True(t, ids[b.ID])
}

func TestSQLiteStore_SaveReplacesWholeSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ss := NewSQLiteStore(path)
	defer ss.Close()

	a := session.New("a")
	b := session.New("b")
	require.NoError(t, ss.Save(context.Background(), []*session.Session{a, b}))
	require.NoError(t, ss.Save(context.Background(), []*session.Session{b}))

	loaded, err := ss.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, b.ID, loaded[0].ID)
}
