package handlers

import (
	"log"
	"net/http"

	"github.com/floppyflax/beer-pong-league-sub000/live"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origin once it is deployed.
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeLeague subscribes a client to the live feed for one league. Match
// recordings and ranking updates for that league are pushed to the socket.
func (h *WebSocketHandler) ServeLeague(w http.ResponseWriter, r *http.Request) {
	leagueIDStr := chi.URLParam(r, "leagueID")
	if leagueIDStr == "" {
		http.Error(w, "missing leagueID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection for league %s: %v", leagueIDStr, err)
		return
	}

	roomID := "league:" + leagueIDStr

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: roomID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
