// Package identity abstracts the source of the current user identity.
// The sync layer only needs a stable opaque user id, or "none" when the
// client has never authenticated.
package identity

import (
	"context"
	"errors"

	"github.com/demomiru/minicrm/internal/client/repositories/session"
	"github.com/demomiru/minicrm/internal/common"
)

// Provider yields the current user identity.
type Provider interface {
	// UserID returns the stable user id and true, or "" and false when no
	// identity is known. Lookup failures count as "no identity": the sync
	// layer treats both the same way.
	UserID(ctx context.Context) (string, bool)

	// Token returns the current bearer token, or common.ErrNotFound.
	Token(ctx context.Context) (string, error)
}

// SessionProvider reads identity from the locally cached session.
type SessionProvider struct {
	sessions session.Repository
}

// NewSessionProvider returns a Provider backed by the given session store.
func NewSessionProvider(sessions session.Repository) *SessionProvider {
	return &SessionProvider{sessions: sessions}
}

func (p *SessionProvider) UserID(ctx context.Context) (string, bool) {
	uid, err := p.sessions.Get(ctx, session.KeyUserID)
	if err != nil || uid == "" {
		return "", false
	}
	return uid, true
}

func (p *SessionProvider) Token(ctx context.Context) (string, error) {
	token, err := p.sessions.Get(ctx, session.KeyToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrNotFound
		}
		return "", err
	}
	return token, nil
}
