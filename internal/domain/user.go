package domain

import (
	"context"
	"strings"
)

// Identity is a durable account identity proven by a bearer token. Connections
// without one are guests.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func NewIdentity(userID, username string) (*Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewValidationError("user id is required")
	}

	return &Identity{
		UserID:   userID,
		Username: strings.TrimSpace(username),
	}, nil
}

type identityKey struct{}

func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}
