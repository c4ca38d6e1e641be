package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jfplayer/internal/app/catalog"
	"github.com/osa030/jfplayer/internal/app/playback"
	"github.com/osa030/jfplayer/internal/domain/track"
	"github.com/osa030/jfplayer/internal/infra/jellyfin"
)

type nopDevice struct{}

func (nopDevice) Load(string)  {}
func (nopDevice) Play()        {}
func (nopDevice) Pause()       {}
func (nopDevice) Seek(float64) {}

type fakeTracks struct {
	mu    sync.Mutex
	items []track.Track
	err   error
	calls int
}

func (f *fakeTracks) PlaylistTracks(ctx context.Context, playlistID, sortBy string) (*track.ItemsResponse[track.Track], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &track.ItemsResponse[track.Track]{Items: f.items}, nil
}

func newTestService(t *testing.T, token string, tracks *fakeTracks) (*playback.Engine, *Client, *Client) {
	t.Helper()
	engine := playback.New(func(playback.DeviceEvents) playback.Device { return nopDevice{} }, playback.Config{})

	path, handler := NewPlayerServiceHandler(
		NewPlayerService(engine, tracks),
		connect.WithInterceptors(NewControlAuthInterceptor(token)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return engine, NewClient(server.Client(), server.URL, token), NewClient(server.Client(), server.URL, "")
}

func sampleTracks() []track.Track {
	return []track.Track{
		{ID: "a", Name: "Alpha"},
		{ID: "b", Name: "Beta"},
		{ID: "c", Name: "Gamma"},
	}
}

func TestPlayerService_PlayPlaylistAndControls(t *testing.T) {
	engine, client, _ := newTestService(t, "", &fakeTracks{items: sampleTracks()})
	ctx := context.Background()

	st, err := client.Call(ctx, PlayPlaylist, map[string]any{"playlistId": "p1"})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", st.GetFields()["currentTitle"].GetStringValue())
	assert.True(t, st.GetFields()["playing"].GetBoolValue())

	st, err = client.Call(ctx, Next, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), st.GetFields()["index"].GetNumberValue())

	st, err = client.Call(ctx, Toggle, nil)
	require.NoError(t, err)
	assert.Equal(t, "paused", st.GetFields()["status"].GetStringValue())

	_, err = client.Call(ctx, Seek, map[string]any{"seconds": 12.5})
	require.NoError(t, err)
	assert.Equal(t, 12.5, engine.Snapshot().Progress)

	st, err = client.Call(ctx, Clear, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(-1), st.GetFields()["index"].GetNumberValue())
	assert.False(t, st.GetFields()["hasTrack"].GetBoolValue())
}

func TestPlayerService_PlayTrack(t *testing.T) {
	engine, client, _ := newTestService(t, "", &fakeTracks{items: sampleTracks()})
	ctx := context.Background()

	_, err := client.Call(ctx, PlayTrack, map[string]any{"playlistId": "p1", "trackId": "c"})
	require.NoError(t, err)
	s := engine.Snapshot()
	assert.Equal(t, 2, s.Index)
	assert.Len(t, s.Queue, 3)

	_, err = client.Call(ctx, PlayTrack, map[string]any{"playlistId": "p1", "trackId": "zzz"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestPlayerService_InvalidArguments(t *testing.T) {
	_, client, _ := newTestService(t, "", &fakeTracks{items: sampleTracks()})
	ctx := context.Background()

	_, err := client.Call(ctx, PlayPlaylist, map[string]any{})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.Call(ctx, Seek, map[string]any{"seconds": "soon"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.Call(ctx, PlayTrack, map[string]any{"playlistId": "p1"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.Call(ctx, "Rewind", nil)
	assert.Error(t, err)
}

func TestPlayerService_CatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code connect.Code
	}{
		{name: "not configured", err: catalog.ErrNotConfigured, code: connect.CodeFailedPrecondition},
		{name: "upstream not found", err: &jellyfin.StatusError{Code: 404, Message: "gone"}, code: connect.CodeNotFound},
		{name: "upstream forbidden", err: &jellyfin.StatusError{Code: 403}, code: connect.CodePermissionDenied},
		{name: "upstream down", err: &jellyfin.StatusError{Code: 503}, code: connect.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client, _ := newTestService(t, "", &fakeTracks{err: tt.err})
			_, err := client.Call(context.Background(), PlayPlaylist, map[string]any{"playlistId": "p1"})
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestControlAuthInterceptor(t *testing.T) {
	_, authed, anonymous := newTestService(t, "s3cret", &fakeTracks{})
	ctx := context.Background()

	_, err := anonymous.Call(ctx, GetState, nil)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	st, err := authed.Call(ctx, GetState, nil)
	require.NoError(t, err)
	assert.Equal(t, "idle", st.GetFields()["status"].GetStringValue())
}
