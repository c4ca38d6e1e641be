package rest

import (
	"fmt"
	"net/http"

	"github.com/osa030/jfplayer/internal/app/catalog"
)

// handlePlaylist returns the tracks of one playlist.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		Fail(w, r, catalog.ErrMissingID, "")
		return
	}

	resp, err := s.catalog.PlaylistTracks(r.Context(), id, r.URL.Query().Get("sortBy"))
	if err != nil {
		Fail(w, r, err, "Failed to load playlist items")
		return
	}

	w.Header().Set("Cache-Control", cacheControl(s.cfg.PlaylistMaxAge))
	writeJSON(w, http.StatusOK, resp)
}

// handlePlaylists returns a page of the playlists library.
func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	page := catalog.ParsePageQuery(r.URL.Query())

	resp, err := s.catalog.Playlists(r.Context(), page)
	if err != nil {
		Fail(w, r, err, "Failed to load playlists")
		return
	}

	w.Header().Set("Cache-Control", cacheControl(s.cfg.PlaylistsMaxAge))
	writeJSON(w, http.StatusOK, resp)
}

func cacheControl(maxAge int) string {
	return fmt.Sprintf("public, max-age=%d", maxAge)
}
