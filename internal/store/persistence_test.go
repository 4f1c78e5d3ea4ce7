package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/chatstore/internal/config"
	"github.com/comigor/chatstore/internal/persist"
	"github.com/comigor/chatstore/internal/session"
)

// flakyPersister fails the first n saves, recording what each attempt
// tried to write.
type flakyPersister struct {
	failures int
	saves    [][]*session.Session
}

func (f *flakyPersister) Load(ctx context.Context) ([]*session.Session, error) {
	return []*session.Session{}, nil
}

func (f *flakyPersister) Save(ctx context.Context, sessions []*session.Session) error {
	f.saves = append(f.saves, sessions)
	if len(f.saves) <= f.failures {
		return errors.New("disk full")
	}
	return nil
}

func (f *flakyPersister) Close() error { return nil }

func TestNew_CorruptedStoredDataStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("not even close to json"), 0600))

	cfg := config.Config{}
	cfg.Storage.Path = path
	st := New(cfg, nil, persist.NewFileStore(path))

	require.Empty(t, st.Sessions())
	require.Nil(t, st.Active())
}

func TestNew_LoadsPersistedSessionsMostRecentFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	fs := persist.NewFileStore(path)

	older := session.New("older")
	newer := session.New("newer")
	newer.Append(session.NewMessage(session.RoleUser, "bump")) // later UpdatedAt
	require.NoError(t, fs.Save(context.Background(), []*session.Session{older, newer}))

	cfg := config.Config{}
	st := New(cfg, nil, persist.NewFileStore(path))

	sessions := st.Sessions()
	require.Len(t, sessions, 2)
	require.Equal(t, newer.ID, sessions[0].ID)
	require.Equal(t, newer.ID, st.Active().ID, "most recent session becomes active")
}

func TestPersist_QuotaTruncateAndRetry(t *testing.T) {
	fp := &flakyPersister{failures: 1}
	cfg := config.Config{}
	cfg.Storage.MaxSessions = 2
	cfg.Storage.DebounceMs = 0
	st := New(cfg, nil, fp)

	for i := 0; i < 5; i++ {
		st.CreateSession("chat")
	}
	// CreateSession persists synchronously at debounce 0; the first
	// attempt failed, the retry wrote a truncated set.
	require.GreaterOrEqual(t, len(fp.saves), 2)
	require.Len(t, fp.saves[1], 1, "retry after the first failure stays within the cap")

	last := fp.saves[len(fp.saves)-1]
	require.LessOrEqual(t, len(last), 5)
	require.Len(t, st.Sessions(), 5, "in-memory state untouched by persistence trouble")
}

func TestPersist_SecondFailureSwallowed(t *testing.T) {
	fp := &flakyPersister{failures: 100}
	cfg := config.Config{}
	cfg.Storage.DebounceMs = 0
	st := New(cfg, nil, fp)

	st.CreateSession("chat") // must not panic or surface an error
	require.Len(t, st.Sessions(), 1)
}
