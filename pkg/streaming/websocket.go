// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package streaming exposes partition-state change events over a
// WebSocket connection, for diagnostic consumers (cmd/selectd) that
// want to watch repacks happen rather than poll a snapshot endpoint.
package streaming

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hpcsched/cons-res-select/pkg/watch"
)

// WebSocketServer broadcasts watch.Event values from a single
// watch.Poller to every connected client.
type WebSocketServer struct {
	poller   *watch.Poller
	upgrader websocket.Upgrader
}

// NewWebSocketServer creates a WebSocketServer fed by poller.
func NewWebSocketServer(poller *watch.Poller) *WebSocketServer {
	return &WebSocketServer{
		poller: poller,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// StreamMessage is one message sent over the WebSocket connection.
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Error     string      `json:"error,omitempty"`
}

// HandleWebSocket upgrades the connection and streams partition
// change events to the client until it disconnects or the request
// context is cancelled.
func (ws *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("websocket close error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go ws.drainIncoming(conn, cancel)

	events, err := ws.poller.Watch(ctx)
	if err != nil {
		ws.sendError(conn, "failed to start partition stream: "+err.Error())
		return
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				ws.sendMessage(conn, StreamMessage{Type: "stream_closed", Timestamp: time.Now()})
				return
			}
			ws.sendMessage(conn, StreamMessage{Type: "event", Data: event, Timestamp: time.Now()})
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("websocket ping error: %v", err)
				return
			}
		}
	}
}

// drainIncoming reads (and discards) client frames so the connection
// notices a client-initiated close or error promptly; this endpoint
// is broadcast-only and accepts no client requests.
func (ws *WebSocketServer) drainIncoming(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			return
		}
	}
}

func (ws *WebSocketServer) sendMessage(conn *websocket.Conn, msg StreamMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}

func (ws *WebSocketServer) sendError(conn *websocket.Conn, message string) {
	ws.sendMessage(conn, StreamMessage{Type: "error", Error: message, Timestamp: time.Now()})
}
