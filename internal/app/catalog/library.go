package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jfplayer/internal/domain/playlist"
)

// FolderLister lists the collection folders of a user.
type FolderLister interface {
	CollectionFolders(ctx context.Context, userID string) ([]playlist.Folder, error)
}

// LibraryResolver finds the id of the playlists collection folder.
// A configured override always wins. Otherwise the first successful lookup is
// kept for the life of the process.
type LibraryResolver struct {
	mu       sync.RWMutex
	override string
	cached   string
	folders  FolderLister
}

// NewLibraryResolver creates a resolver. override may be empty.
func NewLibraryResolver(folders FolderLister, override string) *LibraryResolver {
	return &LibraryResolver{
		override: strings.TrimSpace(override),
		folders:  folders,
	}
}

// Resolve returns the playlists library id, querying the server on a cache miss.
// Concurrent first calls may each query; they store the same id.
func (r *LibraryResolver) Resolve(ctx context.Context, userID string) (string, error) {
	if r.override != "" {
		return r.override, nil
	}

	if id := r.Cached(); id != "" {
		return id, nil
	}

	folders, err := r.folders.CollectionFolders(ctx, userID)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve playlists library")
	}

	id, ok := findPlaylistsFolder(folders)
	if !ok {
		return "", ErrLibraryNotFound
	}

	r.mu.Lock()
	r.cached = id
	r.mu.Unlock()

	zlog.Info().Msgf("catalog: resolved playlists library: id=%s", id)
	return id, nil
}

// Cached returns the cached id, or "" before the first resolution.
func (r *LibraryResolver) Cached() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached
}

func findPlaylistsFolder(folders []playlist.Folder) (string, bool) {
	for _, f := range folders {
		if strings.ToLower(f.Name) == playlist.LibraryName || f.ID == playlist.WellKnownLibraryID {
			return f.ID, true
		}
	}
	return "", false
}
