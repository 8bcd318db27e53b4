// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/lumen/auth"
	"github.com/danielhkuo/lumen/models"
	"github.com/danielhkuo/lumen/testutil"
)

func TestRegister(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.AuthResponse)
	}{
		{
			name: "valid registration",
			requestBody: models.RegisterRequest{
				Username: "alice",
				Password: "long-enough-password",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.AuthResponse) {
				if resp.Token == "" {
					t.Error("Expected non-empty token")
				}
				if resp.User.Username != "alice" {
					t.Errorf("Expected username 'alice', got '%s'", resp.User.Username)
				}
				if resp.ExpiresAt.Before(time.Now()) {
					t.Error("Expected expires_at in the future")
				}

				// Session row must exist under the hashed token
				var count int
				err := db.QueryRow(`SELECT COUNT(*) FROM session WHERE token_hash = $1`,
					auth.HashToken(resp.Token, cfg.TokenSalt)).Scan(&count)
				if err != nil {
					t.Fatalf("Failed to query session: %v", err)
				}
				if count != 1 {
					t.Errorf("Expected 1 session row, got %d", count)
				}
			},
		},
		{
			name: "username too short",
			requestBody: models.RegisterRequest{
				Username: "a",
				Password: "long-enough-password",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "password too short",
			requestBody: models.RegisterRequest{
				Username: "bob",
				Password: "short",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/auth/register", tt.requestBody, nil)
			w := httptest.NewRecorder()

			handler.Register(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.checkResponse != nil && w.Code == tt.expectedStatus {
				var resp models.AuthResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg)

	body := models.RegisterRequest{Username: "carol", Password: "long-enough-password"}

	w := httptest.NewRecorder()
	handler.Register(w, testutil.MakeRequest("POST", "/auth/register", body, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	handler.Register(w, testutil.MakeRequest("POST", "/auth/register", body, nil))
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg)

	// Register a user to log in as
	w := httptest.NewRecorder()
	handler.Register(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "dave",
		Password: "correct-password",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	tests := []struct {
		name           string
		requestBody    models.LoginRequest
		expectedStatus int
	}{
		{
			name:           "valid login",
			requestBody:    models.LoginRequest{Username: "dave", Password: "correct-password"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			requestBody:    models.LoginRequest{Username: "dave", Password: "wrong-password"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown user",
			requestBody:    models.LoginRequest{Username: "nobody", Password: "correct-password"},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Login(w, testutil.MakeRequest("POST", "/auth/login", tt.requestBody, nil))
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var resp models.AuthResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Token == "" {
					t.Error("Expected non-empty token")
				}
			}
		})
	}
}

// Unknown user and wrong password must be indistinguishable so usernames
// cannot be enumerated through the login endpoint.
func TestLoginErrorsAreUniform(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg)

	w := httptest.NewRecorder()
	handler.Register(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "erin",
		Password: "correct-password",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	wrongPass := httptest.NewRecorder()
	handler.Login(wrongPass, testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{
		Username: "erin", Password: "wrong",
	}, nil))

	unknownUser := httptest.NewRecorder()
	handler.Login(unknownUser, testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{
		Username: "ghost", Password: "wrong",
	}, nil))

	if wrongPass.Code != unknownUser.Code {
		t.Errorf("Expected matching status codes, got %d and %d", wrongPass.Code, unknownUser.Code)
	}
	if wrongPass.Body.String() != unknownUser.Body.String() {
		t.Errorf("Expected identical bodies, got '%s' and '%s'",
			wrongPass.Body.String(), unknownUser.Body.String())
	}
}

func TestLogout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg)

	_, token := testutil.CreateTestUser(t, db, cfg, "frank")

	// Logout tears down the session
	w := httptest.NewRecorder()
	handler.Logout(w, testutil.MakeRequest("POST", "/auth/logout", nil, testutil.AuthHeader(token)))
	testutil.AssertStatus(t, w, http.StatusOK)

	// The token no longer resolves
	w = httptest.NewRecorder()
	handler.Me(w, testutil.MakeRequest("GET", "/auth/me", nil, testutil.AuthHeader(token)))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	// A second logout with the same token fails
	w = httptest.NewRecorder()
	handler.Logout(w, testutil.MakeRequest("POST", "/auth/logout", nil, testutil.AuthHeader(token)))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg)

	user, token := testutil.CreateTestUser(t, db, cfg, "grace")

	tests := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
	}{
		{"valid token", testutil.AuthHeader(token), http.StatusOK},
		{"missing token", nil, http.StatusUnauthorized},
		{"garbage token", testutil.AuthHeader("not-a-real-token"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Me(w, testutil.MakeRequest("GET", "/auth/me", nil, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var got models.User
				testutil.AssertJSON(t, w, &got)
				if got.ID != user.ID {
					t.Errorf("Expected user ID '%s', got '%s'", user.ID, got.ID)
				}
				if got.Username != "grace" {
					t.Errorf("Expected username 'grace', got '%s'", got.Username)
				}
			}
		})
	}
}

func TestRequireUserExpiredSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()

	_, token := testutil.CreateTestUser(t, db, cfg, "heidi")

	// Force the session into the past
	_, err := db.Exec(`UPDATE session SET expires_at = $1`, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to expire session: %v", err)
	}

	req := testutil.MakeRequest("GET", "/auth/me", nil, testutil.AuthHeader(token))
	if _, err := RequireUser(db, cfg, req); err != auth.ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}

	// Expired sessions are deleted, not just rejected
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM session`).Scan(&count); err != nil {
		t.Fatalf("Failed to count sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected expired session to be deleted, found %d rows", count)
	}
}

func TestRequireUserTokenQueryFallback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()

	user, token := testutil.CreateTestUser(t, db, cfg, "ivan")

	req := testutil.MakeRequest("GET", "/conversations/abc/stream?token="+token, nil, nil)
	got, err := RequireUser(db, cfg, req)
	if err != nil {
		t.Fatalf("Expected token query parameter to authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Expected user ID '%s', got '%s'", user.ID, got.ID)
	}
}
