// Package catalog serves playlist listings and playlist contents from Jellyfin.
package catalog

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/jfplayer/internal/domain/playlist"
	"github.com/osa030/jfplayer/internal/domain/track"
)

// DefaultSortBy is the server's natural playlist order; it is never sent explicitly.
const DefaultSortBy = "SortName"

var (
	// ErrMissingID is returned when a request names no playlist.
	ErrMissingID = errors.New("missing playlist id")
	// ErrNotConfigured is returned when the server URL or credential is missing.
	ErrNotConfigured = errors.New("jellyfin not configured")
	// ErrMissingUser is returned when no user id is configured.
	ErrMissingUser = errors.New("missing jellyfin user id")
	// ErrLibraryNotFound is returned when no playlists collection folder exists.
	ErrLibraryNotFound = errors.New("playlists library not found")
)

// Upstream is the subset of the Jellyfin client the catalog needs.
type Upstream interface {
	FolderLister
	Configured() bool
	PlaylistItems(ctx context.Context, playlistID string, query url.Values) (*track.ItemsResponse[track.Track], error)
	UserItems(ctx context.Context, userID string, query url.Values) (*track.ItemsResponse[playlist.Playlist], error)
}

// Config represents catalog configuration.
type Config struct {
	UserID          string
	LibraryOverride string
	DefaultLimit    int
	MaxLimit        int
	CacheSize       int
	PlaylistTTL     time.Duration
	PlaylistsTTL    time.Duration
}

// Service answers playlist queries.
type Service struct {
	upstream Upstream
	library  *LibraryResolver
	cfg      Config

	tracks    *expirable.LRU[string, *track.ItemsResponse[track.Track]]
	playlists *expirable.LRU[string, *track.ItemsResponse[playlist.Playlist]]
}

// NewService creates a catalog service.
// A zero CacheSize or TTL disables the corresponding cache.
func NewService(upstream Upstream, cfg Config) *Service {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = min(100, cfg.MaxLimit)
	}

	s := &Service{
		upstream: upstream,
		library:  NewLibraryResolver(upstream, cfg.LibraryOverride),
		cfg:      cfg,
	}
	if cfg.CacheSize > 0 && cfg.PlaylistTTL > 0 {
		s.tracks = expirable.NewLRU[string, *track.ItemsResponse[track.Track]](cfg.CacheSize, nil, cfg.PlaylistTTL)
	}
	if cfg.CacheSize > 0 && cfg.PlaylistsTTL > 0 {
		s.playlists = expirable.NewLRU[string, *track.ItemsResponse[playlist.Playlist]](cfg.CacheSize, nil, cfg.PlaylistsTTL)
	}
	return s
}

// Library exposes the playlists library resolver.
func (s *Service) Library() *LibraryResolver {
	return s.library
}

// PlaylistTracks returns the tracks of a playlist in the given order.
// An empty sortBy means DefaultSortBy. Items failing validation are dropped.
// The returned value may be shared with the cache and must not be modified.
func (s *Service) PlaylistTracks(ctx context.Context, playlistID, sortBy string) (*track.ItemsResponse[track.Track], error) {
	if playlistID == "" {
		return nil, ErrMissingID
	}
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}
	if sortBy == "" {
		sortBy = DefaultSortBy
	}

	key := playlistID + "|" + sortBy
	if s.tracks != nil {
		if cached, ok := s.tracks.Get(key); ok {
			return cached, nil
		}
	}

	query := url.Values{}
	query.Set("UserId", s.cfg.UserID)
	if sortBy != DefaultSortBy {
		query.Set("SortBy", sortBy)
	}

	resp, err := s.upstream.PlaylistItems(ctx, playlistID, query)
	if err != nil {
		return nil, err
	}

	resp.Items = lo.Filter(resp.Items, func(t track.Track, _ int) bool {
		if err := t.Validate(); err != nil {
			zlog.Warn().Msgf("catalog: dropping malformed track in playlist %s: %v", playlistID, err)
			return false
		}
		return true
	})

	if s.tracks != nil {
		s.tracks.Add(key, resp)
	}
	return resp, nil
}

// Playlists returns one page of the playlists in the playlists library, sorted by name.
func (s *Service) Playlists(ctx context.Context, page PageQuery) (*track.ItemsResponse[playlist.Playlist], error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}
	page = page.normalize(s.cfg.DefaultLimit, s.cfg.MaxLimit)

	libraryID, err := s.library.Resolve(ctx, s.cfg.UserID)
	if err != nil {
		return nil, err
	}

	key := libraryID + "|" + strconv.Itoa(page.StartIndex) + "|" + strconv.Itoa(page.Limit)
	if s.playlists != nil {
		if cached, ok := s.playlists.Get(key); ok {
			return cached, nil
		}
	}

	query := url.Values{}
	query.Set("IncludeItemTypes", "Playlist")
	query.Set("Recursive", "true")
	query.Set("SortBy", DefaultSortBy)
	query.Set("ParentId", libraryID)
	query.Set("StartIndex", strconv.Itoa(page.StartIndex))
	query.Set("Limit", strconv.Itoa(page.Limit))

	resp, err := s.upstream.UserItems(ctx, s.cfg.UserID, query)
	if err != nil {
		return nil, err
	}

	resp.Items = lo.Filter(resp.Items, func(p playlist.Playlist, _ int) bool {
		return p.ID != ""
	})

	if s.playlists != nil {
		s.playlists.Add(key, resp)
	}
	return resp, nil
}

func (s *Service) checkConfigured() error {
	if !s.upstream.Configured() {
		return ErrNotConfigured
	}
	if s.cfg.UserID == "" {
		return ErrMissingUser
	}
	return nil
}
