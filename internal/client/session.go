package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Session keeps the bearer token in the durable tier so it survives
// restarts, and in the APIClient so every call carries it.
type Session struct {
	api   *APIClient
	cache *Cache
	log   zerolog.Logger

	username string
}

// NewSession restores stored credentials into api.
func NewSession(api *APIClient, cache *Cache, logger zerolog.Logger) (*Session, error) {
	token, username, err := cache.Credentials()
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	api.SetToken(token)
	return &Session{api: api, cache: cache, log: logger, username: username}, nil
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool { return s.api.Token() != "" }

// Username is the display name of the signed-in user.
func (s *Session) Username() string { return s.username }

func (s *Session) Register(ctx context.Context, name, email, password string) error {
	info, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	return s.adopt(info)
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	info, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.adopt(info)
}

func (s *Session) adopt(info *SessionInfo) error {
	if err := s.cache.SetCredentials(info.Token, info.Username); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	s.api.SetToken(info.Token)
	s.username = info.Username
	return nil
}

// Logout revokes the token on the server, then discards it locally. The
// local discard happens even when the server call fails; an already
// rejected token is not an error.
func (s *Session) Logout(ctx context.Context) error {
	if !s.Authenticated() {
		return nil
	}
	remoteErr := s.api.Logout(ctx)
	if errors.Is(remoteErr, ErrUnauthorized) {
		remoteErr = nil
	}
	if remoteErr != nil {
		s.log.Warn().Err(remoteErr).Msg("server-side logout failed; discarding token locally")
	}

	s.api.SetToken("")
	s.username = ""
	if err := s.cache.ClearCredentials(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return remoteErr
}
