package catalog

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jfplayer/internal/domain/playlist"
)

func TestFindPlaylistsFolder(t *testing.T) {
	tests := []struct {
		name     string
		folders  []playlist.Folder
		expected string
		found    bool
	}{
		{name: "by name", folders: []playlist.Folder{{ID: "a", Name: "Music"}, {ID: "b", Name: "Playlists"}}, expected: "b", found: true},
		{name: "case insensitive", folders: []playlist.Folder{{ID: "c", Name: "PLAYLISTS"}}, expected: "c", found: true},
		{name: "by well-known id", folders: []playlist.Folder{{ID: playlist.WellKnownLibraryID, Name: "Listas"}}, expected: playlist.WellKnownLibraryID, found: true},
		{name: "first match wins", folders: []playlist.Folder{{ID: "x", Name: "playlists"}, {ID: "y", Name: "Playlists"}}, expected: "x", found: true},
		{name: "none", folders: []playlist.Folder{{ID: "a", Name: "Music"}}, found: false},
		{name: "empty", folders: nil, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := findPlaylistsFolder(tt.folders)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestLibraryResolver_FailureNotCached(t *testing.T) {
	up := newFake()
	up.folderErr = errors.New("unreachable")
	r := NewLibraryResolver(up, "")

	_, err := r.Resolve(context.Background(), "u1")
	require.Error(t, err)
	assert.Empty(t, r.Cached())

	up.folderErr = nil
	id, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "lib-pl", id)
	assert.Equal(t, 2, up.folderCalls)
}

func TestParsePageQuery(t *testing.T) {
	q := ParsePageQuery(url.Values{"startIndex": {"40"}, "limit": {"25"}})
	assert.Equal(t, PageQuery{StartIndex: 40, Limit: 25}, q)

	q = ParsePageQuery(url.Values{"limit": {"lots"}})
	assert.Equal(t, PageQuery{}, q)

	q = ParsePageQuery(nil)
	assert.Equal(t, 100, q.normalize(100, 200).Limit)
}

func TestParseImageQuery(t *testing.T) {
	q := ParseImageQuery(url.Values{"tag": {"abc"}, "fillWidth": {"300"}})
	v := q.Values()
	assert.Equal(t, "abc", v.Get("tag"))
	assert.Equal(t, "300", v.Get("fillWidth"))
	assert.Equal(t, "85", v.Get("quality"))
	assert.False(t, v.Has("format"))

	q = ParseImageQuery(url.Values{"quality": {"60"}, "format": {"webp"}})
	assert.Equal(t, "60", q.Values().Get("quality"))
	assert.Equal(t, "webp", q.Values().Get("format"))
}
