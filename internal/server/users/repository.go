package users

import (
	"context"
)

type Repository interface {
	// Create persists a new identity. A username collision yields
	// common.ErrUsernameTaken without mutating stored state.
	Create(ctx context.Context, identity *Identity) (*Identity, error)
	GetByUsername(ctx context.Context, username string) (*Identity, error)
	List(ctx context.Context) ([]Identity, error)
}
