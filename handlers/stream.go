// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/middleware"
	"github.com/danielhkuo/lumen/models"
)

// streamChunkWords is how many words each delta frame carries.
const streamChunkWords = 8

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type StreamHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	model    grok.Client
	personas grok.Personas
}

func NewStreamHandler(db *sql.DB, cfg cliparse.Config, model grok.Client, personas grok.Personas) *StreamHandler {
	return &StreamHandler{db: db, cfg: cfg, model: model, personas: personas}
}

// wsRequest is a frame from the client.
type wsRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsSendPayload struct {
	Content string `json:"content"`
}

// wsFrame is a frame to the client.
type wsFrame struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

// Stream handles GET /conversations/{id}/stream
// Upgrades to a websocket; each "send" frame runs a chat turn and the
// reply is delivered as delta frames followed by a done frame carrying
// the persisted assistant message. Auth rides the token query parameter
// because browsers cannot set headers on a websocket dial.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conv, err := loadConversation(h.db, user.ID, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		slog.Error("failed to query conversation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("stream opened", "conversation_id", conv.ID, "user_id", user.ID)

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("stream closed unexpectedly", "error", err, "conversation_id", conv.ID)
			}
			return
		}

		switch req.Type {
		case "send":
			var payload wsSendPayload
			if err := json.Unmarshal(req.Payload, &payload); err != nil {
				conn.WriteJSON(wsFrame{Type: "error", Error: "invalid payload"})
				continue
			}
			h.handleSend(conn, r, &conv, payload.Content)

		case "ping":
			conn.WriteJSON(wsFrame{Type: "pong"})

		default:
			conn.WriteJSON(wsFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

// handleSend runs one chat turn over the socket. Errors are reported as
// error frames; the socket stays usable afterwards.
func (h *StreamHandler) handleSend(conn *websocket.Conn, r *http.Request, conv *models.Conversation, content string) {
	if strings.TrimSpace(content) == "" {
		conn.WriteJSON(wsFrame{Type: "error", Error: "content is required"})
		return
	}

	if _, err := appendMessage(h.db, conv.ID, models.RoleUser, content, nil); err != nil {
		slog.Error("failed to insert user message", "error", err)
		conn.WriteJSON(wsFrame{Type: "error", Error: "failed to store message"})
		return
	}

	maybeSetTitle(h.db, conv, content)

	history, err := chatHistory(h.db, conv.ID)
	if err != nil {
		slog.Error("failed to load history", "error", err)
		conn.WriteJSON(wsFrame{Type: "error", Error: "failed to load history"})
		return
	}

	reply, err := h.model.Chat(r.Context(), h.personas.ForKind(conv.Kind), history)
	if err != nil {
		slog.Error("model request failed", "error", err, "conversation_id", conv.ID)
		conn.WriteJSON(wsFrame{Type: "error", Error: "model request failed"})
		return
	}

	// Deliver the reply in word chunks so the UI can render it
	// progressively, then persist and send the final message.
	words := strings.Fields(reply)
	for i := 0; i < len(words); i += streamChunkWords {
		end := i + streamChunkWords
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if i+streamChunkWords < len(words) {
			chunk += " "
		}
		if err := conn.WriteJSON(wsFrame{Type: "delta", Content: chunk}); err != nil {
			slog.Warn("failed to write delta frame", "error", err)
			return
		}
	}

	msg, err := appendMessage(h.db, conv.ID, models.RoleAssistant, reply, nil)
	if err != nil {
		slog.Error("failed to insert assistant message", "error", err)
		conn.WriteJSON(wsFrame{Type: "error", Error: "failed to store reply"})
		return
	}

	conn.WriteJSON(wsFrame{Type: "done", Message: &msg})
}
