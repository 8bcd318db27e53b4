// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/middleware"
	"github.com/danielhkuo/lumen/models"
)

type ChatHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	model    grok.Client
	personas grok.Personas
}

func NewChatHandler(db *sql.DB, cfg cliparse.Config, model grok.Client, personas grok.Personas) *ChatHandler {
	return &ChatHandler{db: db, cfg: cfg, model: model, personas: personas}
}

// SendMessage handles POST /conversations/{id}/messages
// Stores the user message, forwards the accumulated history to the
// model, stores and returns the assistant reply. On model failure the
// user message stays persisted and the response is 502.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
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

	if conv.Kind == models.KindImagine {
		middleware.ErrorResponse(w, http.StatusConflict, "Imagine conversations accept prompts via /imagine")
		return
	}

	var req models.SendMessageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "content is required")
		return
	}

	userMsg, err := appendMessage(h.db, conv.ID, models.RoleUser, req.Content, nil)
	if err != nil {
		slog.Error("failed to insert user message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	maybeSetTitle(h.db, &conv, req.Content)

	history, err := chatHistory(h.db, conv.ID)
	if err != nil {
		slog.Error("failed to load history", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	reply, err := h.model.Chat(r.Context(), h.personas.ForKind(conv.Kind), history)
	if err != nil {
		slog.Error("model request failed", "error", err, "conversation_id", conv.ID)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Model request failed")
		return
	}

	assistantMsg, err := appendMessage(h.db, conv.ID, models.RoleAssistant, reply, nil)
	if err != nil {
		slog.Error("failed to insert assistant message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store reply")
		return
	}

	slog.Info("chat turn completed",
		"conversation_id", conv.ID,
		"user_id", user.ID,
		"prompt_len", len(req.Content),
		"reply_len", len(reply),
	)

	middleware.JSONResponse(w, http.StatusOK, models.SendMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Title:            conv.Title,
	})
}

// chatHistory maps a conversation's stored messages into model turns.
// Messages that only carry an image are represented by their prompt text.
func chatHistory(db *sql.DB, convID string) ([]grok.ChatMessage, error) {
	messages, err := conversationMessages(db, convID)
	if err != nil {
		return nil, err
	}

	history := make([]grok.ChatMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, grok.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return history, nil
}
