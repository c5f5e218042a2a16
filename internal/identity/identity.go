// Package identity resolves which cart a request operates on.
package identity

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/session-cart/internal/domain"
)

var ErrSessionMissing = errors.New("Cart session not found")

// SessionSource supplies the anonymous session token of the current request.
type SessionSource interface {
	SessionToken(ctx context.Context) (string, bool)
}

// AuthSource reports the authenticated user, if any.
type AuthSource interface {
	UserID(ctx context.Context) (string, bool)
}

type Resolver struct {
	sessions SessionSource
	auth     AuthSource
}

func NewResolver(sessions SessionSource, auth AuthSource) *Resolver {
	return &Resolver{sessions: sessions, auth: auth}
}

func (r *Resolver) Resolve(ctx context.Context) (domain.SessionIdentity, error) {
	token, ok := r.sessions.SessionToken(ctx)
	if !ok || token == "" {
		return domain.SessionIdentity{}, ErrSessionMissing
	}

	id := domain.SessionIdentity{SessionToken: token}
	if r.auth != nil {
		if userID, ok := r.auth.UserID(ctx); ok {
			id.UserID = userID
		}
	}
	return id, nil
}

// LookupKeyFor prefers the user id over the session token.
func LookupKeyFor(id domain.SessionIdentity) domain.LookupKey {
	if id.UserID != "" {
		return domain.LookupKey{Kind: domain.LookupByUser, Value: id.UserID}
	}
	return domain.LookupKey{Kind: domain.LookupBySession, Value: id.SessionToken}
}
