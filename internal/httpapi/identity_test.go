package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
)

func TestLoginSuccess(t *testing.T) {
	h := newTestHandler()
	h.Identity = fakeIdentity{
		loginFn: func(ctx context.Context, input identity.LoginInput, ttl time.Duration) (identity.LoginResult, error) {
			if input.Email != "agent@mwolo.cd" {
				t.Fatalf("unexpected email %q", input.Email)
			}
			if ttl != 8*time.Hour {
				t.Fatalf("unexpected ttl %v", ttl)
			}
			return identity.LoginResult{
				User:    identity.User{UserID: "user-1", Email: input.Email, Role: identity.RoleEmployee},
				Session: identity.Session{SessionID: "sess-1", UserID: "user-1", ExpiresAt: testNow.Add(ttl)},
			}, nil
		},
	}

	body, _ := json.Marshal(map[string]string{
		"email":    "agent@mwolo.cd",
		"password": "hunter2",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result identity.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Session.SessionID != "sess-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLoginBadPassword(t *testing.T) {
	h := newTestHandler()

	body, _ := json.Marshal(map[string]string{
		"email":    "agent@mwolo.cd",
		"password": "wrong",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %s", errResp.Error.Code)
	}
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(`{"email":"a@b.cd","password":"x","remember_me":true}`)))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCreateUserUnknownRole(t *testing.T) {
	h := newTestHandler()

	body, _ := json.Marshal(map[string]string{
		"email":    "new@mwolo.cd",
		"password": "hunter2",
		"role":     "manager",
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCreateUserNeedsPermission(t *testing.T) {
	h := newTestHandler()
	h.Identity = fakeIdentity{
		canFn: func(ctx context.Context, role, module, action string) (bool, error) {
			return false, nil
		},
	}

	body, _ := json.Marshal(map[string]string{
		"email":    "new@mwolo.cd",
		"password": "hunter2",
		"role":     identity.RoleClient,
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestGetUserSelfOnly(t *testing.T) {
	h := newTestHandler()

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/users/other-user", nil), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}
