package catalog

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jfplayer/internal/domain/playlist"
	"github.com/osa030/jfplayer/internal/domain/track"
)

type fakeUpstream struct {
	mu          sync.Mutex
	configured  bool
	folders     []playlist.Folder
	folderErr   error
	folderCalls int
	items       []track.Track
	itemsErr    error
	itemQueries []url.Values
	playlists   []playlist.Playlist
	userQueries []url.Values
}

func (f *fakeUpstream) Configured() bool { return f.configured }

func (f *fakeUpstream) CollectionFolders(ctx context.Context, userID string) ([]playlist.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folderCalls++
	return f.folders, f.folderErr
}

func (f *fakeUpstream) PlaylistItems(ctx context.Context, playlistID string, query url.Values) (*track.ItemsResponse[track.Track], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemQueries = append(f.itemQueries, query)
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	items := append([]track.Track(nil), f.items...)
	return &track.ItemsResponse[track.Track]{Items: items}, nil
}

func (f *fakeUpstream) UserItems(ctx context.Context, userID string, query url.Values) (*track.ItemsResponse[playlist.Playlist], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userQueries = append(f.userQueries, query)
	items := append([]playlist.Playlist(nil), f.playlists...)
	return &track.ItemsResponse[playlist.Playlist]{Items: items}, nil
}

func newFake() *fakeUpstream {
	return &fakeUpstream{
		configured: true,
		folders: []playlist.Folder{
			{ID: "music", Name: "Music"},
			{ID: "lib-pl", Name: "Playlists"},
		},
		items: []track.Track{
			{ID: "t1", Name: "One"},
			{ID: "t2", Name: "Two"},
		},
		playlists: []playlist.Playlist{
			{ID: "p1", Name: "Chill"},
			{ID: "p2", Name: "Focus"},
		},
	}
}

func TestPlaylistTracks_DefaultSortOmitted(t *testing.T) {
	up := newFake()
	svc := NewService(up, Config{UserID: "u1"})

	resp, err := svc.PlaylistTracks(context.Background(), "pl", "")
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)

	require.Len(t, up.itemQueries, 1)
	assert.Equal(t, "u1", up.itemQueries[0].Get("UserId"))
	assert.False(t, up.itemQueries[0].Has("SortBy"))

	_, err = svc.PlaylistTracks(context.Background(), "pl", "SortName")
	require.NoError(t, err)
	assert.False(t, up.itemQueries[1].Has("SortBy"))
}

func TestPlaylistTracks_CustomSortForwarded(t *testing.T) {
	up := newFake()
	svc := NewService(up, Config{UserID: "u1"})

	_, err := svc.PlaylistTracks(context.Background(), "pl", "DateCreated")
	require.NoError(t, err)
	assert.Equal(t, "DateCreated", up.itemQueries[0].Get("SortBy"))
}

func TestPlaylistTracks_Errors(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		svc := NewService(newFake(), Config{UserID: "u1"})
		_, err := svc.PlaylistTracks(context.Background(), "", "")
		assert.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("not configured", func(t *testing.T) {
		up := newFake()
		up.configured = false
		svc := NewService(up, Config{UserID: "u1"})
		_, err := svc.PlaylistTracks(context.Background(), "pl", "")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("missing user", func(t *testing.T) {
		svc := NewService(newFake(), Config{})
		_, err := svc.PlaylistTracks(context.Background(), "pl", "")
		assert.ErrorIs(t, err, ErrMissingUser)
	})

	t.Run("upstream failure propagates", func(t *testing.T) {
		up := newFake()
		boom := errors.New("boom")
		up.itemsErr = boom
		svc := NewService(up, Config{UserID: "u1"})
		_, err := svc.PlaylistTracks(context.Background(), "pl", "")
		assert.ErrorIs(t, err, boom)
	})
}

func TestPlaylistTracks_DropsMalformed(t *testing.T) {
	up := newFake()
	up.items = append(up.items, track.Track{ID: "", Name: "no id"}, track.Track{ID: "t3"})
	svc := NewService(up, Config{UserID: "u1"})

	resp, err := svc.PlaylistTracks(context.Background(), "pl", "")
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
}

func TestPlaylistTracks_Cached(t *testing.T) {
	up := newFake()
	svc := NewService(up, Config{UserID: "u1", CacheSize: 8, PlaylistTTL: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := svc.PlaylistTracks(context.Background(), "pl", "")
		require.NoError(t, err)
	}
	assert.Len(t, up.itemQueries, 1)

	_, err := svc.PlaylistTracks(context.Background(), "pl", "Random")
	require.NoError(t, err)
	assert.Len(t, up.itemQueries, 2)
}

func TestPlaylists_QueryShape(t *testing.T) {
	up := newFake()
	svc := NewService(up, Config{UserID: "u1"})

	resp, err := svc.Playlists(context.Background(), PageQuery{StartIndex: 20, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)

	require.Len(t, up.userQueries, 1)
	q := up.userQueries[0]
	assert.Equal(t, "Playlist", q.Get("IncludeItemTypes"))
	assert.Equal(t, "true", q.Get("Recursive"))
	assert.Equal(t, "SortName", q.Get("SortBy"))
	assert.Equal(t, "lib-pl", q.Get("ParentId"))
	assert.Equal(t, "20", q.Get("StartIndex"))
	assert.Equal(t, "200", q.Get("Limit"))
}

func TestPlaylists_DefaultPage(t *testing.T) {
	up := newFake()
	svc := NewService(up, Config{UserID: "u1"})

	_, err := svc.Playlists(context.Background(), PageQuery{StartIndex: -3})
	require.NoError(t, err)
	assert.Equal(t, "0", up.userQueries[0].Get("StartIndex"))
	assert.Equal(t, "100", up.userQueries[0].Get("Limit"))
}

func TestPlaylists_LibraryResolvedOnce(t *testing.T) {
	up := newFake()
	svc := NewService(up, Config{UserID: "u1"})

	for i := 0; i < 3; i++ {
		_, err := svc.Playlists(context.Background(), PageQuery{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, up.folderCalls)
	assert.Equal(t, "lib-pl", svc.Library().Cached())
}

func TestPlaylists_OverrideSkipsLookup(t *testing.T) {
	up := newFake()
	svc := NewService(up, Config{UserID: "u1", LibraryOverride: " custom "})

	_, err := svc.Playlists(context.Background(), PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, up.folderCalls)
	assert.Equal(t, "custom", up.userQueries[0].Get("ParentId"))
}

func TestPlaylists_LibraryNotFound(t *testing.T) {
	up := newFake()
	up.folders = []playlist.Folder{{ID: "music", Name: "Music"}}
	svc := NewService(up, Config{UserID: "u1"})

	_, err := svc.Playlists(context.Background(), PageQuery{})
	assert.ErrorIs(t, err, ErrLibraryNotFound)
	assert.Empty(t, up.userQueries)
}

func TestPlaylists_NotConfigured(t *testing.T) {
	up := newFake()
	up.configured = false
	svc := NewService(up, Config{UserID: "u1"})

	_, err := svc.Playlists(context.Background(), PageQuery{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
