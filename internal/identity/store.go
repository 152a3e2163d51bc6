package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrDuplicateEmail     = errors.New("duplicate email")
)

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	User    User
	Session Session
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	AgencyID  string
}

type Store interface {
	Login(ctx context.Context, input LoginInput, ttl time.Duration) (LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (Session, User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	// Can reports whether the role is granted the (module, action) pair.
	// Super admins bypass the permission table entirely.
	Can(ctx context.Context, role, module, action string) (bool, error)
}
