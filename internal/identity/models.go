package identity

import "time"

const (
	RoleSuperAdmin = "super_admin"
	RoleEmployee   = "employe"
	RoleClient     = "client"
)

type User struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	AgencyID  *string   `json:"agency_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Principal is the authenticated caller the rest of the system trusts.
type Principal struct {
	UserID   string
	Role     string
	AgencyID string
}

func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin }
func (p Principal) IsEmployee() bool   { return p.Role == RoleEmployee }
func (p Principal) IsClient() bool     { return p.Role == RoleClient }

type Permission struct {
	Role   string `json:"role"`
	Module string `json:"module"`
	Action string `json:"action"`
}
