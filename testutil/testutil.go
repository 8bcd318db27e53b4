// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/lumen/auth"
	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/db"
	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/models"
)

var dbSeq int64

// SetupTestDB creates a fresh in-memory SQLite database with the full schema.
// Each call gets its own named memory database so tests stay isolated.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := fmt.Sprintf("lumen_test_%d", atomic.AddInt64(&dbSeq, 1))
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One connection keeps the shared memory database alive and
	// sidesteps SQLite write contention in tests
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3646,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
		TokenSalt:    "test-token-salt",
		XAIAPIKey:    "test-api-key",
		XAIBaseURL:   "http://localhost:0",
		ChatModel:    "grok-2-latest",
		ImageModel:   "grok-2-image",
	}
}

// CreateTestUser registers a user directly in the database and returns
// the user plus a live bearer token.
func CreateTestUser(t *testing.T, conn *sql.DB, cfg cliparse.Config, username string) (models.User, string) {
	t.Helper()

	userID, _ := auth.GenerateID(16)
	hash, err := auth.HashPassword("test-password-1")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now()
	_, err = conn.Exec(`
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, userID, username, hash, now)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	token, _ := auth.GenerateSessionToken()
	_, err = conn.Exec(`
		INSERT INTO session (token_hash, user_id, created_at, expires_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
	`, auth.HashToken(token, cfg.TokenSalt), userID, now, now.Add(24*time.Hour), now)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return models.User{ID: userID, Username: username, CreatedAt: now}, token
}

// CreateTestConversation inserts a conversation for the user.
func CreateTestConversation(t *testing.T, conn *sql.DB, userID, title, kind string) string {
	t.Helper()

	id := uuid.NewString()
	now := time.Now()
	_, err := conn.Exec(`
		INSERT INTO conversation (id, user_id, title, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, title, kind, now, now)
	if err != nil {
		t.Fatalf("Failed to create test conversation: %v", err)
	}

	return id
}

// AddTestMessage appends a message with the next seq.
func AddTestMessage(t *testing.T, conn *sql.DB, convID, role, content string) string {
	t.Helper()

	var seq int
	if err := conn.QueryRow(`
		SELECT COALESCE(MAX(seq), 0) + 1 FROM message WHERE conversation_id = $1
	`, convID).Scan(&seq); err != nil {
		t.Fatalf("Failed to compute seq: %v", err)
	}

	id := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO message (id, conversation_id, seq, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, convID, seq, role, content, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test message: %v", err)
	}

	return id
}

// CreateTestProject inserts a project for the user.
func CreateTestProject(t *testing.T, conn *sql.DB, userID, name string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO project (id, user_id, name, description, created_at)
		VALUES ($1, $2, $3, '', $4)
	`, id, userID, name, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}

	return id
}

// AddTestTask inserts an open task under a project.
func AddTestTask(t *testing.T, conn *sql.DB, projectID, title string) string {
	t.Helper()

	id, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO task (id, project_id, title, status, created_at)
		VALUES ($1, $2, $3, 'open', $4)
	`, id, projectID, title, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}

	return id
}

// FakeModel is a grok.Client that replies from canned values without
// touching the network.
type FakeModel struct {
	Reply      string
	ImageBytes []byte
	Err        error

	// Captured from the last call
	LastSystem  string
	LastHistory []grok.ChatMessage
	LastPrompt  string
	ChatCalls   int
	ImageCalls  int
}

func (f *FakeModel) Chat(ctx context.Context, system string, history []grok.ChatMessage) (string, error) {
	f.ChatCalls++
	f.LastSystem = system
	f.LastHistory = history
	if f.Err != nil {
		return "", f.Err
	}
	if f.Reply == "" {
		return "fake reply", nil
	}
	return f.Reply, nil
}

func (f *FakeModel) GenerateImage(ctx context.Context, prompt string) (*grok.GeneratedImage, error) {
	f.ImageCalls++
	f.LastPrompt = prompt
	if f.Err != nil {
		return nil, f.Err
	}
	data := f.ImageBytes
	if data == nil {
		data = []byte{0x89, 0x50, 0x4e, 0x47}
	}
	return &grok.GeneratedImage{MimeType: "image/png", Data: data}, nil
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AuthHeader builds the bearer header map for a token.
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
