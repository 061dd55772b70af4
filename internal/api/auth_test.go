package api

import (
	"net/http"
	"testing"

	"github.com/oakmount/circuithub/internal/auth"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[tokenResponse](t, rec)
	if body.AccessToken == "" {
		t.Error("expected access token in response")
	}
	if body.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", body.TokenType)
	}
	if body.User == nil || body.User.Username != "alice" {
		t.Fatalf("unexpected user in response: %+v", body.User)
	}
	if body.User.PasswordHash != "" {
		t.Error("password hash leaked into response")
	}

	claims, err := auth.ParseToken(body.AccessToken, testJWTSecret)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Subject != body.User.ID {
		t.Errorf("token subject = %q, want %q", claims.Subject, body.User.ID)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  registerRequest
	}{
		{"short username", registerRequest{Username: "ab", Email: "a@b.com", Password: "longenough"}},
		{"bad email", registerRequest{Username: "alice", Email: "not-an-email", Password: "longenough"}},
		{"short password", registerRequest{Username: "alice", Email: "a@b.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)

	req := registerRequest{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}
	if rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", req); rec.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d, want 201", rec.Code)
	}
	if rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", req); rec.Code != http.StatusConflict {
		t.Errorf("second register: status = %d, want 409", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	register := registerRequest{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}
	if rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", register); rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want 201", rec.Code)
	}

	tests := []struct {
		name       string
		req        loginRequest
		wantStatus int
	}{
		{"valid credentials", loginRequest{Username: "alice", Password: "correct-horse"}, http.StatusOK},
		{"wrong password", loginRequest{Username: "alice", Password: "wrong-horse"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Username: "mallory", Password: "correct-horse"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", tt.req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				body := decodeBody[Error](t, rec)
				// Unknown user and bad password must read the same.
				if body.Message != "invalid credentials" {
					t.Errorf("message = %q, want %q", body.Message, "invalid credentials")
				}
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "u1", "alice")

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"valid token", token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodGet, "/api/v1/auth/me", tt.token, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "u1", "alice")

	rec := env.doJSON(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	user := decodeBody[auth.User](t, rec)
	if user.ID != "u1" || user.Username != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}
}
