package handlers

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wordcraft/internal/middleware"
)

// EventSessionEnded tells a client its session was revoked elsewhere.
const EventSessionEnded = "session_ended"

// SessionEvent is pushed on /v1/auth/events.
type SessionEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

const writeWait = 5 * time.Second

type subscriber struct {
	sessionID string
	mu        sync.Mutex
	conn      *websocket.Conn
}

func (s *subscriber) send(ev SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteJSON(ev)
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ev.Type))
	_ = s.conn.Close()
}

// Hub tracks the event streams of signed-in clients by user.
type Hub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub builds a hub accepting upgrades from allowedOrigins ("*" for any).
func NewHub(logger zerolog.Logger, allowedOrigins []string) *Hub {
	allow := map[string]struct{}{}
	for _, o := range allowedOrigins {
		allow[o] = struct{}{}
	}
	_, anyOrigin := allow["*"]
	return &Hub{
		logger: logger.With().Str("component", "events").Logger(),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || anyOrigin {
					return true
				}
				if _, ok := allow[origin]; ok {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
		subs: map[string]map[*subscriber]struct{}{},
	}
}

func (h *Hub) add(userID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[*subscriber]struct{}{}
	}
	h.subs[userID][s] = struct{}{}
}

func (h *Hub) remove(userID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[userID], s)
	if len(h.subs[userID]) == 0 {
		delete(h.subs, userID)
	}
}

// take detaches the user's subscribers matching sessionID ("" for all).
func (h *Hub) take(userID, sessionID string) []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*subscriber
	for s := range h.subs[userID] {
		if sessionID == "" || s.sessionID == sessionID {
			out = append(out, s)
			delete(h.subs[userID], s)
		}
	}
	if len(h.subs[userID]) == 0 {
		delete(h.subs, userID)
	}
	return out
}

// EndSession notifies and disconnects the streams of one session.
func (h *Hub) EndSession(userID, sessionID string) {
	h.end(h.take(userID, sessionID))
}

// EndUser notifies and disconnects every stream of the user.
func (h *Hub) EndUser(userID string) {
	h.end(h.take(userID, ""))
}

func (h *Hub) end(subs []*subscriber) {
	now := time.Now().UTC()
	for _, s := range subs {
		s.send(SessionEvent{Type: EventSessionEnded, SessionID: s.sessionID, At: now})
	}
	if len(subs) > 0 {
		h.logger.Debug().Int("streams", len(subs)).Msg("session ended pushed")
	}
}

// Close drops every stream without an event, for server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*subscriber
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.subs = map[string]map[*subscriber]struct{}{}
	h.mu.Unlock()
	for _, s := range all {
		s.mu.Lock()
		_ = s.conn.Close()
		s.mu.Unlock()
	}
}

// Streams returns the number of open streams of a user.
func (h *Hub) Streams(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Events upgrades to a websocket that stays open until the session ends or
// the client leaves. Clients send nothing; the read loop only drains control
// frames.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	sid := middleware.SessionIDFromContext(r.Context())
	conn, err := a.Hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	sub := &subscriber{sessionID: sid, conn: conn}
	a.Hub.add(userID, sub)
	defer func() {
		a.Hub.remove(userID, sub)
		sub.mu.Lock()
		_ = conn.Close()
		sub.mu.Unlock()
	}()
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
