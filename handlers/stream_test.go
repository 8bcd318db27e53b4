// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/models"
	"github.com/danielhkuo/lumen/testutil"
)

// dialStream spins up a test server around the stream handler and dials
// the conversation's websocket with the token query parameter.
func dialStream(t *testing.T, handler *StreamHandler, convID, token string) *websocket.Conn {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/{id}/stream", handler.Stream)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/conversations/" + convID + "/stream?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frameType, content string) {
	t.Helper()
	err := conn.WriteJSON(map[string]interface{}{
		"type":    frameType,
		"payload": map[string]string{"content": content},
	})
	if err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	return frame
}

func TestStreamChatTurn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	// Twelve words forces at least two delta frames
	model := &testutil.FakeModel{Reply: "one two three four five six seven eight nine ten eleven twelve"}
	handler := NewStreamHandler(db, cfg, model, grok.DefaultPersonas())

	user, token := testutil.CreateTestUser(t, db, cfg, "alice")
	convID := testutil.CreateTestConversation(t, db, user.ID, "", models.KindChat)

	conn := dialStream(t, handler, convID, token)
	sendFrame(t, conn, "send", "count to twelve")

	var assembled string
	var deltas int
reading:
	for {
		frame := readFrame(t, conn)
		switch frame.Type {
		case "delta":
			deltas++
			assembled += frame.Content
		case "done":
			if frame.Message == nil {
				t.Fatal("Expected done frame to carry the assistant message")
			}
			if frame.Message.Content != model.Reply {
				t.Errorf("Unexpected persisted reply: '%s'", frame.Message.Content)
			}
			if frame.Message.Role != models.RoleAssistant {
				t.Errorf("Expected assistant role, got '%s'", frame.Message.Role)
			}
			break reading
		case "error":
			t.Fatalf("Unexpected error frame: %s", frame.Error)
		}
	}

	if deltas < 2 {
		t.Errorf("Expected at least 2 delta frames, got %d", deltas)
	}
	if assembled != model.Reply {
		t.Errorf("Deltas do not reassemble the reply: '%s'", assembled)
	}

	// Both turns were persisted
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM message WHERE conversation_id = $1`, convID).Scan(&count); err != nil {
		t.Fatalf("Failed to count messages: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 messages, got %d", count)
	}

	// First prompt titled the conversation
	var title string
	if err := db.QueryRow(`SELECT title FROM conversation WHERE id = $1`, convID).Scan(&title); err != nil {
		t.Fatalf("Failed to query title: %v", err)
	}
	if title != "count to twelve" {
		t.Errorf("Expected title from prompt, got '%s'", title)
	}
}

func TestStreamPingPong(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewStreamHandler(db, cfg, &testutil.FakeModel{}, grok.DefaultPersonas())

	user, token := testutil.CreateTestUser(t, db, cfg, "bob")
	convID := testutil.CreateTestConversation(t, db, user.ID, "Idle", models.KindChat)

	conn := dialStream(t, handler, convID, token)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("Failed to write ping: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Type != "pong" {
		t.Errorf("Expected pong, got '%s'", frame.Type)
	}
}

func TestStreamErrorFramesKeepSocketOpen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	model := &testutil.FakeModel{Err: errors.New("model down")}
	handler := NewStreamHandler(db, cfg, model, grok.DefaultPersonas())

	user, token := testutil.CreateTestUser(t, db, cfg, "carol")
	convID := testutil.CreateTestConversation(t, db, user.ID, "Flaky", models.KindChat)

	conn := dialStream(t, handler, convID, token)

	// Blank content is rejected without closing the socket
	sendFrame(t, conn, "send", "  ")
	frame := readFrame(t, conn)
	if frame.Type != "error" {
		t.Errorf("Expected error frame, got '%s'", frame.Type)
	}

	// Model failure also comes back as an error frame
	sendFrame(t, conn, "send", "hello")
	frame = readFrame(t, conn)
	if frame.Type != "error" {
		t.Errorf("Expected error frame, got '%s'", frame.Type)
	}

	// An unknown frame type is reported, and the socket still answers
	if err := conn.WriteJSON(map[string]string{"type": "bogus"}); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
	frame = readFrame(t, conn)
	if frame.Type != "error" {
		t.Errorf("Expected error frame, got '%s'", frame.Type)
	}
}

func TestStreamRejectsBadAuth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewStreamHandler(db, cfg, &testutil.FakeModel{}, grok.DefaultPersonas())

	user, _ := testutil.CreateTestUser(t, db, cfg, "dave")
	_, otherToken := testutil.CreateTestUser(t, db, cfg, "mallory")
	convID := testutil.CreateTestConversation(t, db, user.ID, "Private", models.KindChat)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/{id}/stream", handler.Stream)
	server := httptest.NewServer(mux)
	defer server.Close()

	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/conversations/" + convID + "/stream"

	// No token: rejected before the upgrade
	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	if err == nil {
		t.Fatal("Expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 handshake response, got %+v", resp)
	}

	// Someone else's token: the conversation reads as missing
	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+otherToken, nil)
	if err == nil {
		t.Fatal("Expected dial to fail for another user")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 handshake response, got %+v", resp)
	}
}
