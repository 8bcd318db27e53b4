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

type GrokpediaHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	model    grok.Client
	personas grok.Personas
}

func NewGrokpediaHandler(db *sql.DB, cfg cliparse.Config, model grok.Client, personas grok.Personas) *GrokpediaHandler {
	return &GrokpediaHandler{db: db, cfg: cfg, model: model, personas: personas}
}

// Ask handles POST /grokpedia
// One-shot encyclopedia lookup: the query goes to the model under the
// grokpedia persona and the exchange is stored as a conversation so it
// shows up in history.
func (h *GrokpediaHandler) Ask(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req models.GrokpediaRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	article, err := h.model.Chat(r.Context(), h.personas.Grokpedia, []grok.ChatMessage{
		{Role: models.RoleUser, Content: req.Query},
	})
	if err != nil {
		slog.Error("model request failed", "error", err, "query", req.Query)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Model request failed")
		return
	}

	title := titleFromPrompt(req.Query)
	conv, err := createConversation(h.db, user.ID, title, models.KindGrokpedia)
	if err != nil {
		slog.Error("failed to insert conversation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store article")
		return
	}

	if _, err := appendMessage(h.db, conv.ID, models.RoleUser, req.Query, nil); err != nil {
		slog.Error("failed to insert user message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store article")
		return
	}
	if _, err := appendMessage(h.db, conv.ID, models.RoleAssistant, article, nil); err != nil {
		slog.Error("failed to insert assistant message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store article")
		return
	}

	slog.Info("grokpedia article served", "conversation_id", conv.ID, "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusOK, models.GrokpediaResponse{
		ConversationID: conv.ID,
		Title:          title,
		Article:        article,
	})
}
