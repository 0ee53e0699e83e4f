package handlers

import (
	"net/http"

	"zipchat/internal/identity"
	"zipchat/internal/ws"
	"zipchat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	identityService *identity.Service
	deps            *ws.Deps
	upgrader        websocket.Upgrader
}

func NewWebSocketHandlers(identityService *identity.Service, deps *ws.Deps) *WebSocketHandlers {
	return &WebSocketHandlers{
		identityService: identityService,
		deps:            deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket authenticates via the identity collaborator, upgrades and
// starts the connection's pumps. The room itself is announced by the client's
// join frame, not here.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.identityService.GetUserFromToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.deps, conn, user.ID, user.Username)
	go client.WritePump()
	go client.ReadPump()
}
