package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_MessagesKeepInsertionOrder(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// past 255 so a little-endian key would sort differently
	for i := 0; i < 300; i++ {
		_, err := store.AddMessage("m", "10.0.0.1", at)
		req.NoError(err)
	}
	last, err := store.AddMessage("last", "10.0.0.2", at)
	req.NoError(err)
	req.Equal(uint64(301), last.ID)

	records, err := store.Messages()
	req.NoError(err)
	req.Len(records, 301)
	for i, rec := range records {
		req.Equal(uint64(i+1), rec.ID)
	}
	req.Equal("last", records[300].Content)
	req.True(records[300].Date.Equal(at))
}

func TestStore_MessageAndDelete(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	rec, err := store.AddMessage("hello", "10.0.0.1", time.Now())
	req.NoError(err)

	got, err := store.Message(rec.ID)
	req.NoError(err)
	req.Equal("hello", got.Content)
	req.Equal("10.0.0.1", got.UserIP)

	req.NoError(store.DeleteMessage(rec.ID))
	_, err = store.Message(rec.ID)
	req.ErrorIs(err, ErrNotFound)
	req.ErrorIs(store.DeleteMessage(rec.ID), ErrNotFound)

	records, err := store.Messages()
	req.NoError(err)
	req.Empty(records)
}

func TestStore_Users(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	_, err := store.User("10.0.0.1")
	req.ErrorIs(err, ErrNotFound)

	req.NoError(store.SetUser("10.0.0.1", "alice"))
	req.NoError(store.SetUser("10.0.0.1", "alice2"))
	req.NoError(store.SetUser("10.0.0.10", "bob"))

	name, err := store.User("10.0.0.1")
	req.NoError(err)
	req.Equal("alice2", name)

	// user keys never show up as messages
	records, err := store.Messages()
	req.NoError(err)
	req.Empty(records)
}
