// Package services – IdentityService
//
// This file implements IdentityService, which owns registration, login, and
// token authentication. Passwords are stored as salted bcrypt hashes; sessions
// are stateless JWTs with a server-side deny-list consulted on every
// Authenticate so that Logout takes effect immediately.
//
// Input is validated before the store is touched, so a rejected Register
// never changes the user count.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/auth"
	"github.com/tbourn/go-estate-backend/internal/domain"
	"github.com/tbourn/go-estate-backend/internal/repo"
	"github.com/tbourn/go-estate-backend/internal/validation"
)

const (
	maxNameRunes     = 100
	minPasswordRunes = 8
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	UserID   string
	Token    string
	Username string
}

// IdentityService registers users and issues and verifies session tokens.
type IdentityService struct {
	DB     *gorm.DB
	Tokens *auth.TokenManager
	Hasher auth.Hasher
	Log    zerolog.Logger
}

// NewIdentityService wires an IdentityService with the global logger.
func NewIdentityService(db *gorm.DB, tokens *auth.TokenManager, hasher auth.Hasher) *IdentityService {
	return &IdentityService{DB: db, Tokens: tokens, Hasher: hasher, Log: log.Logger}
}

type registerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates an identity and returns a fresh session for it.
//
// Errors: *ValidationError (blank name, bad email, short or overlong
// password), ErrEmailTaken, or ErrPersistence.
func (s *IdentityService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	ctx, span := otel.Tracer("services/IdentityService").Start(ctx, "Register")
	defer span.End()

	in := registerInput{
		Name:     strings.TrimSpace(name),
		Email:    repo.NormalizeEmail(email),
		Password: password,
	}
	if err := checkRegister(in); err != nil {
		return nil, err
	}

	taken, err := repo.EmailExists(ctx, s.DB, in.Email)
	if err != nil {
		return nil, persistence("email lookup", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.Hasher.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, invalid("password", "must be at most 72 bytes")
		}
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, in.Name, in.Email, hash)
	if err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, persistence("create user", err)
	}
	span.SetAttributes(attribute.String("user.id", u.ID))

	return s.session(u)
}

func checkRegister(in registerInput) error {
	if fe := validation.Struct(in); fe != nil {
		switch fe.Field {
		case "name":
			if fe.Tag == "max" {
				return invalid("name", "must be at most 100 characters")
			}
			return invalid("name", "is required")
		case "email":
			return invalid("email", "must be a valid email address")
		default:
			return invalid("password", "must be at least 8 characters")
		}
	}
	if utf8.RuneCountInString(in.Name) > maxNameRunes {
		return invalid("name", "must be at most 100 characters")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordRunes {
		return invalid("password", "must be at least 8 characters")
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return invalid("password", "must be at most 72 bytes")
	}
	return nil
}

// Login verifies credentials and returns a fresh session. Earlier sessions
// of the same identity stay valid.
//
// Errors: *ValidationError for empty input, ErrUserNotFound,
// ErrInvalidCredentials, or ErrPersistence.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := otel.Tracer("services/IdentityService").Start(ctx, "Login")
	defer span.End()

	email = repo.NormalizeEmail(email)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if password == "" {
		return nil, invalid("password", "is required")
	}

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("user lookup", err)
	}
	if err := s.Hasher.CheckPassword(u.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.Log.Error().Err(err).Str("user_id", u.ID).Msg("stored password hash unreadable")
		}
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(attribute.String("user.id", u.ID))

	return s.session(u)
}

func (s *IdentityService) session(u *domain.User) (*AuthResult, error) {
	tok, _, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{UserID: u.ID, Token: tok, Username: u.Name}, nil
}

// Authenticate resolves a bearer token to its identity. The user record is
// re-read on every call, so a deleted user's tokens stop working at once.
//
// Errors: ErrInvalidToken, ErrTokenRevoked, ErrIdentityGone, or
// ErrPersistence.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error) {
	ctx, span := otel.Tracer("services/IdentityService").Start(ctx, "Authenticate")
	defer span.End()

	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	revoked, err := repo.IsTokenRevoked(ctx, s.DB, claims.ID)
	if err != nil {
		return nil, nil, persistence("revocation lookup", err)
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	u, err := repo.GetUserByID(ctx, s.DB, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrIdentityGone
		}
		return nil, nil, persistence("user lookup", err)
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, claims, nil
}

// Logout revokes the token described by claims until its natural expiry.
// Revoking twice is not an error. Expired deny-list entries are purged on
// the way out; a failed purge is logged and ignored.
func (s *IdentityService) Logout(ctx context.Context, claims *auth.Claims) error {
	ctx, span := otel.Tracer("services/IdentityService").Start(ctx, "Logout",
		trace.WithAttributes(attribute.String("user.id", claims.UserID)),
	)
	defer span.End()

	exp := time.Now().UTC().Add(s.Tokens.TTL())
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := repo.RevokeToken(ctx, s.DB, claims.ID, claims.UserID, exp); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		return persistence("revoke token", err)
	}

	if n, err := repo.PurgeExpiredRevocations(ctx, s.DB, time.Now().UTC()); err != nil {
		s.Log.Warn().Err(err).Msg("purge expired revocations failed")
	} else if n > 0 {
		s.Log.Debug().Int64("purged", n).Msg("expired revocations purged")
	}
	return nil
}

// Profile returns the identity for userID.
func (s *IdentityService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("user lookup", err)
	}
	return u, nil
}
