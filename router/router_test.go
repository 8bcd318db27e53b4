// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/models"
	"github.com/danielhkuo/lumen/testutil"
)

func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	return NewRouter(db, cfg, &testutil.FakeModel{}, grok.DefaultPersonas())
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "lumen API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	mux := newTestRouter(t)

	// Every data route answers 401 without a token, proving the route
	// is registered and guarded
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/auth/me"},
		{"POST", "/auth/logout"},
		{"GET", "/conversations"},
		{"POST", "/conversations"},
		{"GET", "/conversations/test-id"},
		{"POST", "/conversations/test-id/rename"},
		{"POST", "/conversations/test-id/project"},
		{"DELETE", "/conversations/test-id"},
		{"POST", "/conversations/test-id/messages"},
		{"GET", "/conversations/test-id/stream"},
		{"POST", "/imagine"},
		{"GET", "/images/test-id"},
		{"POST", "/grokpedia"},
		{"GET", "/projects"},
		{"POST", "/projects"},
		{"GET", "/projects/test-id"},
		{"DELETE", "/projects/test-id"},
		{"POST", "/projects/test-id/tasks"},
		{"POST", "/tasks/test-id/complete"},
		{"POST", "/tasks/test-id/reopen"},
		{"DELETE", "/tasks/test-id"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("DELETE", "/auth/register", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestFullRequestCycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	model := &testutil.FakeModel{Reply: "routed reply"}
	mux := NewRouter(db, cfg, model, grok.DefaultPersonas())

	// Register through the mux
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "router-user",
		Password: "long-enough-password",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var authResp models.AuthResponse
	testutil.AssertJSON(t, w, &authResp)
	headers := testutil.AuthHeader(authResp.Token)

	// Create a conversation
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/conversations",
		models.CreateConversationRequest{Kind: models.KindChat}, headers))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var conv models.Conversation
	testutil.AssertJSON(t, w, &conv)

	// Send a message; the mux resolves the {id} path value
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/conversations/"+conv.ID+"/messages",
		models.SendMessageRequest{Content: "hello"}, headers))
	testutil.AssertStatus(t, w, http.StatusOK)

	var sendResp models.SendMessageResponse
	testutil.AssertJSON(t, w, &sendResp)
	if sendResp.AssistantMessage.Content != "routed reply" {
		t.Errorf("Unexpected reply: '%s'", sendResp.AssistantMessage.Content)
	}

	// It shows up in the history listing
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("GET", "/conversations", nil, headers))
	testutil.AssertStatus(t, w, http.StatusOK)

	var list models.ConversationListResponse
	testutil.AssertJSON(t, w, &list)
	if len(list.Conversations) != 1 || list.Conversations[0].MessageCount != 2 {
		t.Errorf("Unexpected listing: %+v", list.Conversations)
	}
}
