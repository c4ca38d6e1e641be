package rest

import (
	"io"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jfplayer/internal/app/catalog"
)

const (
	defaultImageType  = "image/jpeg"
	defaultImageCache = "public, max-age=86400"
)

// handleImage relays the primary image of an item.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		Fail(w, r, BadRequest("Missing item id"), "")
		return
	}

	query := catalog.ParseImageQuery(r.URL.Query())
	resp, err := s.media.Image(r.Context(), id, query.Values())
	if err != nil {
		Fail(w, r, err, "Failed to load image")
		return
	}
	defer resp.Body.Close()

	h := w.Header()
	h.Set("Content-Type", headerOr(resp.Header, "Content-Type", defaultImageType))
	h.Set("Cache-Control", headerOr(resp.Header, "Cache-Control", defaultImageCache))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		zlog.Debug().Msgf("rest: image %s interrupted: %v", id, err)
	}
}
