package chat

import (
	"context"

	"github.com/iyunix/go-chatsync/internal/auth"
	"github.com/iyunix/go-chatsync/internal/domain"
)

// IdentitySource resolves the caller's verified identity from session state.
type IdentitySource interface {
	Current(ctx context.Context) (string, bool)
}

// ContextIdentity reads the identity placed on the request context by the session middleware.
type ContextIdentity struct{}

func (ContextIdentity) Current(ctx context.Context) (string, bool) {
	return auth.IdentityFromContext(ctx)
}

// Gate is the single place identity is resolved and ownership is compared.
type Gate struct {
	identities IdentitySource
}

func NewGate(identities IdentitySource) *Gate {
	if identities == nil {
		identities = ContextIdentity{}
	}
	return &Gate{identities: identities}
}

func (g *Gate) RequireIdentity(ctx context.Context, operation string) (string, error) {
	identity, ok := g.identities.Current(ctx)
	if !ok {
		return "", NewUnauthorizedError(operation)
	}
	return identity, nil
}

// Owns reports whether identity may see chat. A nil chat is never owned.
func (g *Gate) Owns(identity string, chat *domain.Chat) bool {
	return chat != nil && chat.Owner == identity
}
