// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/middleware"
	"github.com/danielhkuo/lumen/models"
)

type ConversationHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewConversationHandler(db *sql.DB, cfg cliparse.Config) *ConversationHandler {
	return &ConversationHandler{db: db, cfg: cfg}
}

// List handles GET /conversations
// Most recently updated first - this backs the history view.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	rows, err := h.db.Query(`
		SELECT
			c.id, c.title, c.kind, c.project_id, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM message m WHERE m.conversation_id = c.id) as message_count
		FROM conversation c
		WHERE c.user_id = $1
		ORDER BY c.updated_at DESC
	`, user.ID)
	if err != nil {
		slog.Error("failed to query conversations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	conversations := []models.ConversationSummary{}
	for rows.Next() {
		var c models.ConversationSummary
		var projectID sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &c.Kind, &projectID, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			slog.Error("failed to scan conversation", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if projectID.Valid {
			c.ProjectID = &projectID.String
		}
		c.UserID = user.ID
		conversations = append(conversations, c)
	}

	middleware.JSONResponse(w, http.StatusOK, models.ConversationListResponse{
		Conversations: conversations,
	})
}

// Create handles POST /conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req models.CreateConversationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Kind == "" {
		req.Kind = models.KindChat
	}
	if !isValidKind(req.Kind) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "kind must be one of: chat, voice, imagine, grokpedia")
		return
	}

	conv, err := createConversation(h.db, user.ID, req.Title, req.Kind)
	if err != nil {
		slog.Error("failed to insert conversation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	slog.Info("conversation created", "conversation_id", conv.ID, "kind", conv.Kind, "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, conv)
}

// Get handles GET /conversations/{id}
// Returns the conversation and its full ordered message history.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	messages, err := conversationMessages(h.db, conv.ID)
	if err != nil {
		slog.Error("failed to query messages", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ConversationWithMessages{
		Conversation: conv,
		Messages:     messages,
	})
}

// Rename handles POST /conversations/{id}/rename
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
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

	var req models.RenameConversationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	_, err = h.db.Exec(`
		UPDATE conversation SET title = $1, updated_at = $2 WHERE id = $3
	`, req.Title, time.Now(), conv.ID)
	if err != nil {
		slog.Error("failed to rename conversation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to rename conversation")
		return
	}

	conv.Title = req.Title
	middleware.JSONResponse(w, http.StatusOK, conv)
}

// SetProject handles POST /conversations/{id}/project
// A null project_id clears the link.
func (h *ConversationHandler) SetProject(w http.ResponseWriter, r *http.Request) {
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

	var req models.SetProjectRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var projectID sql.NullString
	if req.ProjectID != nil {
		// Linked project must belong to the same user
		var owner string
		err := h.db.QueryRow(`SELECT user_id FROM project WHERE id = $1`, *req.ProjectID).Scan(&owner)
		if err == sql.ErrNoRows || (err == nil && owner != user.ID) {
			middleware.ErrorResponse(w, http.StatusNotFound, "Project not found")
			return
		}
		if err != nil {
			slog.Error("failed to query project", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		projectID = sql.NullString{String: *req.ProjectID, Valid: true}
	}

	_, err = h.db.Exec(`
		UPDATE conversation SET project_id = $1, updated_at = $2 WHERE id = $3
	`, projectID, time.Now(), conv.ID)
	if err != nil {
		slog.Error("failed to set conversation project", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update conversation")
		return
	}

	conv.ProjectID = req.ProjectID
	middleware.JSONResponse(w, http.StatusOK, conv)
}

// Delete handles DELETE /conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	// Delete messages explicitly rather than relying on cascade,
	// which sqlite only honors with foreign_keys pragma enabled
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM message WHERE conversation_id = $1`, conv.ID); err != nil {
		slog.Error("failed to delete messages", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	if _, err := tx.Exec(`DELETE FROM conversation WHERE id = $1`, conv.ID); err != nil {
		slog.Error("failed to delete conversation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}

	slog.Info("conversation deleted", "conversation_id", conv.ID, "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- shared conversation helpers ---

func isValidKind(kind string) bool {
	switch kind {
	case models.KindChat, models.KindVoice, models.KindImagine, models.KindGrokpedia:
		return true
	}
	return false
}

// createConversation inserts a new conversation for the user.
func createConversation(db *sql.DB, userID, title, kind string) (models.Conversation, error) {
	id := uuid.NewString()
	now := time.Now()

	_, err := db.Exec(`
		INSERT INTO conversation (id, user_id, title, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, title, kind, now, now)
	if err != nil {
		return models.Conversation{}, err
	}

	return models.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// loadConversation fetches a conversation scoped to its owner.
// Someone else's ID gets sql.ErrNoRows, so handlers answer 404 and
// conversation IDs cannot be probed.
func loadConversation(db *sql.DB, userID, convID string) (models.Conversation, error) {
	if convID == "" {
		return models.Conversation{}, sql.ErrNoRows
	}

	var conv models.Conversation
	var projectID sql.NullString
	err := db.QueryRow(`
		SELECT id, user_id, title, kind, project_id, created_at, updated_at
		FROM conversation
		WHERE id = $1 AND user_id = $2
	`, convID, userID).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Kind, &projectID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return models.Conversation{}, err
	}
	if projectID.Valid {
		conv.ProjectID = &projectID.String
	}
	return conv, nil
}

// conversationMessages returns all messages, oldest first.
func conversationMessages(db *sql.DB, convID string) ([]models.Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, seq, role, content, image_id, created_at
		FROM message
		WHERE conversation_id = $1
		ORDER BY seq
	`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var imageID sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Seq, &m.Role, &m.Content, &imageID, &m.CreatedAt); err != nil {
			return nil, err
		}
		if imageID.Valid {
			m.ImageID = &imageID.String
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// appendMessage stores the next message in a conversation and bumps
// its updated_at. Seq assignment is a MAX+1 on the conversation; the
// UNIQUE (conversation_id, seq) constraint catches racing writers.
func appendMessage(db *sql.DB, convID, role, content string, imageID *string) (models.Message, error) {
	var seq int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(seq), 0) + 1 FROM message WHERE conversation_id = $1
	`, convID).Scan(&seq)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		Seq:            seq,
		Role:           role,
		Content:        content,
		ImageID:        imageID,
		CreatedAt:      time.Now(),
	}

	var imgID sql.NullString
	if imageID != nil {
		imgID = sql.NullString{String: *imageID, Valid: true}
	}

	_, err = db.Exec(`
		INSERT INTO message (id, conversation_id, seq, role, content, image_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.ConversationID, msg.Seq, msg.Role, msg.Content, imgID, msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}

	_, err = db.Exec(`
		UPDATE conversation SET updated_at = $1 WHERE id = $2
	`, msg.CreatedAt, convID)
	if err != nil {
		slog.Error("failed to touch conversation", "error", err, "conversation_id", convID)
	}

	return msg, nil
}

// titleFromPrompt derives a conversation title from its first prompt.
func titleFromPrompt(prompt string) string {
	title := strings.Join(strings.Fields(prompt), " ")
	if utf8.RuneCountInString(title) > 48 {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:48]))
	}
	return title
}

// maybeSetTitle fills in an empty conversation title from the first prompt.
func maybeSetTitle(db *sql.DB, conv *models.Conversation, prompt string) {
	if conv.Title != "" {
		return
	}

	title := titleFromPrompt(prompt)
	if title == "" {
		return
	}

	_, err := db.Exec(`UPDATE conversation SET title = $1 WHERE id = $2`, title, conv.ID)
	if err != nil {
		slog.Error("failed to set conversation title", "error", err, "conversation_id", conv.ID)
		return
	}
	conv.Title = title
}
