package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	MeetingID string `json:"meetingId"`
	Status    string `json:"status"`
}

func TestSaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	in := doc{MeetingID: "meeting-1", Status: "ready"}
	require.NoError(t, store.Save("meeting-1", in))

	var out doc
	require.NoError(t, store.Load("meeting-1", &out))
	assert.Equal(t, in, out)
}

func TestSaveOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("m", doc{Status: "failed"}))
	require.NoError(t, store.Save("m", doc{Status: "ready"}))

	var out doc
	require.NoError(t, store.Load("m", &out))
	assert.Equal(t, "ready", out.Status)
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	var out doc
	err = store.Load("absent", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "plans")
	_, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSanitizedFilenames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("../../etc/passwd", doc{Status: "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "_.._etc_passwd.json", entries[0].Name())
}

func TestEmptyMeetingIDRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, store.Save("", doc{}))
}
