package http

import (
	"log"
	"net/http"

	"trivia-pool-bot/internal/app"
	"trivia-pool-bot/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams live leaderboard snapshots over a websocket.
type WSHandler struct {
	quiz     *app.QuizService
	hub      *app.LeaderboardHub
	upgrader websocket.Upgrader
}

func NewWSHandler(quiz *app.QuizService, hub *app.LeaderboardHub) *WSHandler {
	return &WSHandler{
		quiz: quiz,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string                    `json:"type"`
	Payload []domain.LeaderboardEntry `json:"payload"`
}

// ServeWS upgrades the request and pushes an initial snapshot followed by
// every subsequent leaderboard change until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	entries, err := h.quiz.Leaderboard(r.Context())
	if err != nil {
		log.Printf("ws initial snapshot failed: %v", err)
		return
	}
	if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: entries}); err != nil {
		return
	}

	updates, cancel := h.hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain reads so close frames are processed; inbound data is ignored.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
