package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/demomiru/minicrm/internal/client/remote"
	"github.com/demomiru/minicrm/internal/client/repositories/session"
	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create a new account on the server.
//   - Login: authenticate and cache the user id, token and login locally,
//     which is what makes the sync coordinator consider the user known.
//   - Logout: wipe the cached session.
//   - CurrentLogin: the cached login name, or common.ErrNotFound.
//   - Ping: check server liveness.
type AuthService interface {
	Register(ctx context.Context, login, password string) error
	Login(ctx context.Context, login, password string) error
	Logout(ctx context.Context) error
	CurrentLogin(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	store    remote.Store
	sessions session.Repository
	logger   logging.Logger
}

// NewAuthService constructs an AuthService bound to the given remote store
// and local session cache.
func NewAuthService(store remote.Store, sessions session.Repository, logger logging.Logger) AuthService {
	return &authService{
		store:    store,
		sessions: sessions,
		logger:   logger.With("service", "auth"),
	}
}

func (a *authService) Register(ctx context.Context, login, password string) error {
	if err := a.store.Register(ctx, login, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	a.logger.Info(ctx, "registered", "login", login)
	return nil
}

// Login authenticates against the server and persists the session. A stale
// session from a previous user is cleared first so a failed login never
// leaves mixed identity data behind.
func (a *authService) Login(ctx context.Context, login, password string) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	userID, token, err := a.store.Login(ctx, login, password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return common.ErrInvalidCredentials
		}
		return fmt.Errorf("login failed: %w", err)
	}

	if err := a.sessions.Set(ctx, session.KeyUserID, userID); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := a.sessions.Set(ctx, session.KeyToken, token); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := a.sessions.Set(ctx, session.KeyLogin, login); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	a.logger.Info(ctx, "logged in", "login", login)
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

func (a *authService) CurrentLogin(ctx context.Context) (string, error) {
	return a.sessions.Get(ctx, session.KeyLogin)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.store.Close()
}
