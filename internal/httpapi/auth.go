package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
)

type principalContextKey struct{}

// AuthMiddleware resolves the session token into a Principal and stores it on
// the request context. Public endpoints pass through without a session.
func AuthMiddleware(store identity.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		_, user, err := store.GetSession(r.Context(), sessionID)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrSessionNotFound):
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
			case errors.Is(err, identity.ErrSessionExpired):
				writeError(w, http.StatusUnauthorized, "session_expired", "session expired")
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
			return
		}
		principal := identity.Principal{UserID: user.UserID, Role: user.Role}
		if user.AgencyID != nil {
			principal.AgencyID = *user.AgencyID
		}
		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromContext(ctx context.Context) (identity.Principal, bool) {
	value := ctx.Value(principalContextKey{})
	if value == nil {
		return identity.Principal{}, false
	}
	principal, ok := value.(identity.Principal)
	return principal, ok
}

func requirePrincipal(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return identity.Principal{}, false
	}
	return principal, true
}

func requireStaff(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return identity.Principal{}, false
	}
	if !principal.IsEmployee() && !principal.IsSuperAdmin() {
		writeError(w, http.StatusForbidden, "access_denied", "staff access required")
		return identity.Principal{}, false
	}
	return principal, true
}

// requireAgency rejects cross-agency access for agency-bound staff. Staff
// without an agency binding and super admins see everything.
func requireAgency(w http.ResponseWriter, r *http.Request, principal identity.Principal, agencyID string) bool {
	if agencyID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "agency_id is required")
		return false
	}
	if principal.IsSuperAdmin() || principal.AgencyID == "" {
		return true
	}
	if principal.AgencyID != agencyID {
		writeError(w, http.StatusForbidden, "access_denied", "agency access denied")
		return false
	}
	return true
}

func (h *Handler) can(w http.ResponseWriter, r *http.Request, principal identity.Principal, module, action string) bool {
	allowed, err := h.Identity.Can(r.Context(), principal.Role, module, action)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "permission lookup failed")
		return false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "access_denied", "permission denied")
		return false
	}
	return true
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// isPublicEndpoint lists the surfaces reachable without a session: kiosk
// ticket creation, the agency display, ticket and appointment checks, badge
// scan devices, and login itself.
func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/debug/vars":
		return true
	case "/api/auth/login":
		return r.Method == http.MethodPost
	case "/api/tickets":
		return r.Method == http.MethodPost
	case "/api/display", "/api/ticket-check", "/api/appointments/check", "/api/timeslots/available":
		return r.Method == http.MethodGet
	case "/api/appointments":
		return r.Method == http.MethodPost
	case "/api/services":
		return r.Method == http.MethodGet
	case "/api/badge-scan":
		return r.Method == http.MethodPost
	default:
		return r.Method == http.MethodOptions
	}
}
