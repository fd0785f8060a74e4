// Package storage wires repository implementations to a backend: Postgres
// when a DSN is configured, in-memory otherwise.
package storage

import (
	"context"

	"github.com/svoychat/svoychat/internal/server/chat"
	"github.com/svoychat/svoychat/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Users() users.Repository
	Messages() chat.Store
}
