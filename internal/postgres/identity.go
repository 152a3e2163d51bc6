package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
)

type IdentityStore struct {
	pool *pgxpool.Pool
}

func NewIdentityStore(pool *pgxpool.Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

func (s *IdentityStore) Login(ctx context.Context, input identity.LoginInput, ttl time.Duration) (identity.LoginResult, error) {
	var user identity.User
	var passwordHash string
	var agencyID sql.NullString
	var phone sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, email, first_name, last_name, phone, role, agency_id, password_hash, active, created_at
		FROM users
		WHERE lower(email) = lower($1) AND active = TRUE
	`, input.Email)
	if err := row.Scan(&user.UserID, &user.Email, &user.FirstName, &user.LastName, &phone, &user.Role, &agencyID, &passwordHash, &user.Active, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.LoginResult{}, identity.ErrInvalidCredentials
		}
		return identity.LoginResult{}, err
	}
	user.Phone = nullString(phone)
	user.AgencyID = nullStringPtr(agencyID)

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(input.Password)); err != nil {
		return identity.LoginResult{}, identity.ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user.UserID, time.Now().UTC().Add(ttl))
	if err != nil {
		return identity.LoginResult{}, err
	}
	return identity.LoginResult{User: user, Session: session}, nil
}

func (s *IdentityStore) Logout(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrSessionNotFound
	}
	return nil
}

func (s *IdentityStore) GetSession(ctx context.Context, sessionID string) (identity.Session, identity.User, error) {
	var session identity.Session
	var user identity.User
	var agencyID sql.NullString
	var phone sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT s.session_id, s.user_id, s.expires_at,
		       u.user_id, u.email, u.first_name, u.last_name, u.phone, u.role, u.agency_id, u.active, u.created_at
		FROM sessions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.session_id = $1
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.UserID, &session.ExpiresAt,
		&user.UserID, &user.Email, &user.FirstName, &user.LastName, &phone, &user.Role, &agencyID, &user.Active, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Session{}, identity.User{}, identity.ErrSessionNotFound
		}
		return identity.Session{}, identity.User{}, err
	}
	if session.ExpiresAt.Before(time.Now().UTC()) {
		return identity.Session{}, identity.User{}, identity.ErrSessionExpired
	}
	user.Phone = nullString(phone)
	user.AgencyID = nullStringPtr(agencyID)
	return session, user, nil
}

func (s *IdentityStore) CreateUser(ctx context.Context, input identity.CreateUserInput) (identity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return identity.User{}, err
	}

	userID := uuid.NewString()
	var user identity.User
	var agencyID sql.NullString
	var phone sql.NullString
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, email, first_name, last_name, phone, role, agency_id, password_hash, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,NOW())
		RETURNING user_id, email, first_name, last_name, phone, role, agency_id, active, created_at
	`, userID, input.Email, input.FirstName, input.LastName, nullIfEmpty(input.Phone), input.Role, nullIfEmpty(input.AgencyID), string(hash))
	if err := row.Scan(&user.UserID, &user.Email, &user.FirstName, &user.LastName, &phone, &user.Role, &agencyID, &user.Active, &user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return identity.User{}, identity.ErrDuplicateEmail
		}
		return identity.User{}, err
	}
	user.Phone = nullString(phone)
	user.AgencyID = nullStringPtr(agencyID)
	return user, nil
}

func (s *IdentityStore) GetUser(ctx context.Context, userID string) (identity.User, error) {
	var user identity.User
	var agencyID sql.NullString
	var phone sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, email, first_name, last_name, phone, role, agency_id, active, created_at
		FROM users
		WHERE user_id = $1
	`, userID)
	if err := row.Scan(&user.UserID, &user.Email, &user.FirstName, &user.LastName, &phone, &user.Role, &agencyID, &user.Active, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.User{}, identity.ErrUserNotFound
		}
		return identity.User{}, err
	}
	user.Phone = nullString(phone)
	user.AgencyID = nullStringPtr(agencyID)
	return user, nil
}

func (s *IdentityStore) Can(ctx context.Context, role, module, action string) (bool, error) {
	if role == identity.RoleSuperAdmin {
		return true, nil
	}
	var exists bool
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM permissions
			WHERE role = $1 AND module = $2 AND action = $3
		)
	`, role, module, action)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *IdentityStore) createSession(ctx context.Context, userID string, expiresAt time.Time) (identity.Session, error) {
	sessionID := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, sessionID, userID, expiresAt)
	if err != nil {
		return identity.Session{}, err
	}
	return identity.Session{SessionID: sessionID, UserID: userID, ExpiresAt: expiresAt}, nil
}
