// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/lumen/auth"
	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/middleware"
	"github.com/danielhkuo/lumen/models"
)

type ImagineHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	model grok.Client
}

func NewImagineHandler(db *sql.DB, cfg cliparse.Config, model grok.Client) *ImagineHandler {
	return &ImagineHandler{db: db, cfg: cfg, model: model}
}

// Imagine handles POST /imagine
// Generates an image for the prompt and persists it as an assistant
// message in an imagine conversation (a new one unless conversation_id
// continues an existing thread).
func (h *ImagineHandler) Imagine(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req models.ImagineRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "prompt is required")
		return
	}

	var conv models.Conversation
	if req.ConversationID != nil {
		conv, err = loadConversation(h.db, user.ID, *req.ConversationID)
		if err == sql.ErrNoRows {
			middleware.ErrorResponse(w, http.StatusNotFound, "Conversation not found")
			return
		}
		if err != nil {
			slog.Error("failed to query conversation", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if conv.Kind != models.KindImagine {
			middleware.ErrorResponse(w, http.StatusConflict, "Conversation is not an imagine thread")
			return
		}
	} else {
		conv, err = createConversation(h.db, user.ID, titleFromPrompt(req.Prompt), models.KindImagine)
		if err != nil {
			slog.Error("failed to insert conversation", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create conversation")
			return
		}
	}

	if _, err := appendMessage(h.db, conv.ID, models.RoleUser, req.Prompt, nil); err != nil {
		slog.Error("failed to insert user message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	img, err := h.model.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("image generation failed", "error", err, "conversation_id", conv.ID)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Image generation failed")
		return
	}

	imageID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate image ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store image")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO image (id, user_id, prompt, mime_type, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, imageID, user.ID, req.Prompt, img.MimeType, base64.StdEncoding.EncodeToString(img.Data), time.Now())
	if err != nil {
		slog.Error("failed to insert image", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store image")
		return
	}

	msg, err := appendMessage(h.db, conv.ID, models.RoleAssistant, req.Prompt, &imageID)
	if err != nil {
		slog.Error("failed to insert assistant message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	slog.Info("image generated", "conversation_id", conv.ID, "image_id", imageID, "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.ImagineResponse{
		ConversationID: conv.ID,
		Message:        msg,
		ImageID:        imageID,
	})
}

// GetImage handles GET /images/{id}
// Serves the raw image bytes with their stored content type.
func (h *ImagineHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	imageID := r.PathValue("id")
	if imageID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "image id is required")
		return
	}

	var mimeType, encoded string
	err = h.db.QueryRow(`
		SELECT mime_type, data FROM image WHERE id = $1 AND user_id = $2
	`, imageID, user.ID).Scan(&mimeType, &encoded)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		slog.Error("failed to query image", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		slog.Error("failed to decode stored image", "error", err, "image_id", imageID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Corrupt image record")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
