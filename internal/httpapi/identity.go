package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	AgencyID  string `json:"agency_id"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	result, err := h.Identity.Login(r.Context(), identity.LoginInput{Email: req.Email, Password: req.Password}, h.SessionTTL)
	if err != nil {
		status, code, msg := mapIdentityError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session")
		return
	}
	if err := h.Identity.Logout(r.Context(), sessionID); err != nil {
		status, code, msg := mapIdentityError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	user, err := h.Identity.GetUser(r.Context(), principal.UserID)
	if err != nil {
		status, code, msg := mapIdentityError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	if !h.can(w, r, principal, "identity", "manage") {
		return
	}
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || req.Password == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email, password, and role are required")
		return
	}
	switch req.Role {
	case identity.RoleSuperAdmin, identity.RoleEmployee, identity.RoleClient:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}

	user, err := h.Identity.CreateUser(r.Context(), identity.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
		AgencyID:  req.AgencyID,
	})
	if err != nil {
		status, code, msg := mapIdentityError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, action, ok := pathAction(r.URL.Path, "/api/users/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if principal.UserID != userID && !principal.IsSuperAdmin() {
		writeError(w, http.StatusForbidden, "access_denied", "access denied")
		return
	}
	user, err := h.Identity.GetUser(r.Context(), userID)
	if err != nil {
		status, code, msg := mapIdentityError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func mapIdentityError(err error) (int, string, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	case errors.Is(err, identity.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	case errors.Is(err, identity.ErrSessionExpired):
		return http.StatusUnauthorized, "session_expired", "session expired"
	case errors.Is(err, identity.ErrDuplicateEmail):
		return http.StatusConflict, "duplicate_email", "email already registered"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
