package handler

import (
	"log/slog"
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"league-console/internal/middleware"
	"league-console/internal/websocket"
	"league-console/pkg/apierror"
)

// SessionStreamHandler upgrades a signed-in tab to a websocket that follows
// its session's events.
type SessionStreamHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewSessionStreamHandler(hub *websocket.Hub, allowedOrigins []string) *SessionStreamHandler {
	return &SessionStreamHandler{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *SessionStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok || !store.Snapshot().Authenticated() {
		writeError(w, apierror.New(apierror.CodeUnauthorized, "not signed in", "", http.StatusUnauthorized))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "session_id", store.ID(), "error", err)
		return
	}

	websocket.NewClient(h.hub, conn, store.ID()).Serve()
}

// originChecker accepts same-origin requests and any configured origin. A
// wildcard list accepts everything.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
