// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Conversation kind constants
const (
	KindChat      = "chat"
	KindVoice     = "voice"
	KindImagine   = "imagine"
	KindGrokpedia = "grokpedia"
)

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Task status constants
const (
	TaskOpen = "open"
	TaskDone = "done"
)

// Request types

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateConversationRequest struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

type RenameConversationRequest struct {
	Title string `json:"title"`
}

// ProjectID nil clears the link
type SetProjectRequest struct {
	ProjectID *string `json:"project_id"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type ImagineRequest struct {
	Prompt         string  `json:"prompt"`
	ConversationID *string `json:"conversation_id,omitempty"`
}

type GrokpediaRequest struct {
	Query string `json:"query"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateTaskRequest struct {
	Title string `json:"title"`
}

// Response types

type AuthResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SendMessageResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
	Title            string  `json:"title"`
}

type ImagineResponse struct {
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
	ImageID        string  `json:"image_id"`
}

type GrokpediaResponse struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Article        string `json:"article"`
}

type ConversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

type ProjectListResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

// Domain types

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	TokenHash  string    `json:"-"`
	UserID     string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	ProjectID *string   `json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationSummary struct {
	Conversation
	MessageCount int `json:"message_count"`
}

type ConversationWithMessages struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int       `json:"seq"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ImageID        *string   `json:"image_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Image struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Prompt    string    `json:"prompt"`
	MimeType  string    `json:"mime_type"`
	Data      []byte    `json:"-"` // Served raw via GET /images/{id}
	CreatedAt time.Time `json:"created_at"`
}

type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProjectSummary struct {
	Project
	TaskCount int `json:"task_count"`
	DoneCount int `json:"done_count"`
}

type ProjectDetail struct {
	Project       Project        `json:"project"`
	Tasks         []Task         `json:"tasks"`
	Conversations []Conversation `json:"conversations"`
}

type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
