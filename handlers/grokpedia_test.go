// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/models"
	"github.com/danielhkuo/lumen/testutil"
)

func TestGrokpediaAsk(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	model := &testutil.FakeModel{Reply: "The Baltic Sea is a marginal sea of the Atlantic Ocean."}
	personas := grok.DefaultPersonas()
	handler := NewGrokpediaHandler(db, cfg, model, personas)

	_, token := testutil.CreateTestUser(t, db, cfg, "alice")

	w := httptest.NewRecorder()
	handler.Ask(w, testutil.MakeRequest("POST", "/grokpedia",
		models.GrokpediaRequest{Query: "Baltic Sea"}, testutil.AuthHeader(token)))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.GrokpediaResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Article != model.Reply {
		t.Errorf("Unexpected article: '%s'", resp.Article)
	}
	if resp.Title != "Baltic Sea" {
		t.Errorf("Expected title 'Baltic Sea', got '%s'", resp.Title)
	}
	if model.LastSystem != personas.Grokpedia {
		t.Error("Expected grokpedia persona as system prompt")
	}

	// The lookup is stored as a grokpedia conversation with both turns
	var kind string
	if err := db.QueryRow(`SELECT kind FROM conversation WHERE id = $1`, resp.ConversationID).Scan(&kind); err != nil {
		t.Fatalf("Failed to query conversation: %v", err)
	}
	if kind != models.KindGrokpedia {
		t.Errorf("Expected kind 'grokpedia', got '%s'", kind)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM message WHERE conversation_id = $1`, resp.ConversationID).Scan(&count); err != nil {
		t.Fatalf("Failed to count messages: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 messages, got %d", count)
	}
}

func TestGrokpediaAskFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	personas := grok.DefaultPersonas()

	_, token := testutil.CreateTestUser(t, db, cfg, "bob")

	tests := []struct {
		name           string
		model          *testutil.FakeModel
		requestBody    interface{}
		headers        map[string]string
		expectedStatus int
	}{
		{
			name:           "blank query",
			model:          &testutil.FakeModel{},
			requestBody:    models.GrokpediaRequest{Query: "   "},
			headers:        testutil.AuthHeader(token),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "model failure",
			model:          &testutil.FakeModel{Err: errors.New("timeout")},
			requestBody:    models.GrokpediaRequest{Query: "anything"},
			headers:        testutil.AuthHeader(token),
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "missing token",
			model:          &testutil.FakeModel{},
			requestBody:    models.GrokpediaRequest{Query: "anything"},
			headers:        nil,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewGrokpediaHandler(db, cfg, tt.model, personas)
			w := httptest.NewRecorder()
			handler.Ask(w, testutil.MakeRequest("POST", "/grokpedia", tt.requestBody, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	// Nothing was stored for any of the failed lookups
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM conversation`).Scan(&count); err != nil {
		t.Fatalf("Failed to count conversations: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no conversations after failures, got %d", count)
	}
}
