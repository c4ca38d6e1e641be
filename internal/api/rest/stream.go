package rest

import (
	"io"
	"net/http"
	"strconv"

	zlog "github.com/rs/zerolog/log"
)

const defaultAudioType = "audio/mpeg"

// handleStream relays the audio of one track, mirroring range answers.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		Fail(w, r, BadRequest("Missing track id"), "")
		return
	}

	resp, err := s.media.Stream(r.Context(), id, r.Header.Get("Range"))
	if err != nil {
		Fail(w, r, err, "Failed to stream track")
		return
	}
	defer resp.Body.Close()

	h := w.Header()
	h.Set("Content-Type", headerOr(resp.Header, "Content-Type", defaultAudioType))
	copyHeaders(h, resp.Header, "Accept-Ranges", "Content-Range")
	if n, ok := contentLength(resp); ok {
		h.Set("Content-Length", strconv.FormatInt(n, 10))
	}

	status := http.StatusOK
	if resp.StatusCode == http.StatusPartialContent {
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		zlog.Debug().Msgf("rest: stream %s interrupted after %d bytes: %v", id, n, err)
	}
}

// contentLength returns the upstream length as an integer, if it is one.
func contentLength(resp *http.Response) (int64, bool) {
	if resp.ContentLength >= 0 {
		return resp.ContentLength, true
	}
	v := resp.Header.Get("Content-Length")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func headerOr(h http.Header, key, fallback string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return fallback
}

func copyHeaders(dst, src http.Header, keys ...string) {
	for _, k := range keys {
		if v := src.Get(k); v != "" {
			dst.Set(k, v)
		}
	}
}
