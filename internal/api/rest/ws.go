package rest

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jfplayer/internal/app/notification"
)

const stateWriteWait = 2 * time.Second

// Browsers cannot set headers on a websocket handshake, so the control token
// is also accepted as a query parameter.
const (
	ControlTokenHeader = "X-Control-Token"
	ControlTokenParam  = "token"
)

// authorize checks the control token of a socket handshake, writing a 401
// when it is missing or wrong.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.ControlToken == "" {
		return true
	}
	token := r.Header.Get(ControlTokenHeader)
	if token == "" {
		token = r.URL.Query().Get(ControlTokenParam)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.ControlToken)) == 1 {
		return true
	}
	Fail(w, r, &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: "Invalid control token"}, "")
	return false
}

// handleDevice attaches the player page's audio element.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Msgf("rest: device upgrade failed: %v", err)
		return
	}
	if err := s.device.Attach(conn); err != nil {
		zlog.Warn().Msgf("rest: %v", err)
	}
}

// handleState pushes player state to a UI until it disconnects.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Msgf("rest: state upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id := s.notifier.Subscribe(&stateStream{conn: conn})
	defer s.notifier.Unsubscribe(id)
	zlog.Debug().Msgf("rest: state subscriber connected: id=%s", id)

	// Incoming messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			zlog.Debug().Msgf("rest: state subscriber gone: id=%s", id)
			return
		}
	}
}

// stateStream adapts a websocket to notification.Stream.
type stateStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *stateStream) Send(n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(stateWriteWait))
	return s.conn.WriteJSON(n)
}
