package rest

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/osa030/jfplayer/internal/app/catalog"
	"github.com/osa030/jfplayer/internal/app/notification"
	"github.com/osa030/jfplayer/internal/domain/playlist"
	"github.com/osa030/jfplayer/internal/domain/track"
)

//go:embed static
var staticFiles embed.FS

// Media opens raw audio and image bodies upstream.
type Media interface {
	Configured() bool
	Stream(ctx context.Context, trackID, rangeHeader string) (*http.Response, error)
	Image(ctx context.Context, itemID string, query url.Values) (*http.Response, error)
}

// Catalog answers playlist queries.
type Catalog interface {
	PlaylistTracks(ctx context.Context, playlistID, sortBy string) (*track.ItemsResponse[track.Track], error)
	Playlists(ctx context.Context, page catalog.PageQuery) (*track.ItemsResponse[playlist.Playlist], error)
}

// Device is the browser attachment point of the audio device.
type Device interface {
	Attach(conn *websocket.Conn) error
	Attached() bool
}

// Notifier fans out player state to subscribers.
type Notifier interface {
	Subscribe(stream notification.Stream) string
	Unsubscribe(subscriptionID string)
}

// Config holds the advertised cache lifetimes in seconds and the control
// token guarding the player sockets. An empty token leaves them open.
type Config struct {
	PlaylistMaxAge  int
	PlaylistsMaxAge int
	ControlToken    string
}

// Server holds the HTTP handlers.
type Server struct {
	media    Media
	catalog  Catalog
	device   Device
	notifier Notifier
	cfg      Config
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP handlers.
func NewServer(media Media, cat Catalog, device Device, notifier Notifier, cfg Config) *Server {
	return &Server{
		media:    media,
		catalog:  cat,
		device:   device,
		notifier: notifier,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Mux registers every route on a new ServeMux.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/stream/{id}", s.handleStream)
	mux.HandleFunc("GET /api/stream/{$}", s.handleStream)
	mux.HandleFunc("GET /api/image/{id}", s.handleImage)
	mux.HandleFunc("GET /api/image/{$}", s.handleImage)
	mux.HandleFunc("GET /api/playlists", s.handlePlaylists)
	mux.HandleFunc("GET /api/playlist/{id}", s.handlePlaylist)
	mux.HandleFunc("GET /api/playlist/{$}", s.handlePlaylist)

	mux.HandleFunc("GET /ws/device", s.handleDevice)
	mux.HandleFunc("GET /ws/state", s.handleState)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServerFS(static))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"jellyfinConfigured": s.media.Configured(),
		"deviceAttached":     s.device.Attached(),
	})
}
