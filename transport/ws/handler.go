package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatorbit/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests into event-channel connections.
type Handler struct {
	log        *slog.Logger
	services   *services.Services
	sinkBuffer int
}

func NewHandler(log *slog.Logger, svc *services.Services, sinkBuffer int) *Handler {
	return &Handler{log: log, services: svc, sinkBuffer: sinkBuffer}
}

// ServeWS starts one connection with its two pumps. Identity is not known
// yet: the client binds through an explicit bind-identity event.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrading connection", "error", err)
		return
	}

	connID := uuid.NewString()
	client := NewClient(h.log, conn, connID, h.services, h.sinkBuffer)

	// The request context dies with the handler; the connection outlives it.
	ctx := context.Background()
	go client.WritePump(ctx)
	go client.ReadPump(ctx)
}
