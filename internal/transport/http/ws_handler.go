package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler drives one quiz session per websocket connection. The client
// issues intents (start, answer, next, prev, reset); every state transition,
// countdown ticks included, comes back as a snapshot push.
type WSHandler struct {
	service  *app.QuizService
	auth     *auth.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, authSvc *auth.Service) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
	User      string `json:"user"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the connection into the quiz use
// cases. Browsers cannot set headers on websocket dials, so the token rides
// in the query string.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.service.Attach(r.Context(), sessionID)
	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{SessionID: sessionID, User: claims.Name}}

	// Intents run to completion one at a time; the read loop is the only
	// place session-mutating calls originate for this connection.
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid start payload")
				continue
			}
			if _, err := h.service.Start(r.Context(), sessionID, payload.Topic, payload.Difficulty); err != nil {
				send <- errorMessage(err.Error())
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			if _, err := h.service.Select(r.Context(), sessionID, payload.Option); err != nil {
				send <- errorMessage(err.Error())
			}
		case "next":
			if _, err := h.service.Advance(r.Context(), sessionID, true); err != nil {
				send <- errorMessage(err.Error())
			}
		case "prev":
			if _, err := h.service.Advance(r.Context(), sessionID, false); err != nil {
				send <- errorMessage(err.Error())
			}
		case "reset":
			if _, err := h.service.Reset(r.Context(), sessionID); err != nil {
				send <- errorMessage(err.Error())
			}
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
