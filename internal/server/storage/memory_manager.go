package storage

import (
	"context"

	"github.com/svoychat/svoychat/internal/server/chat"
	"github.com/svoychat/svoychat/internal/server/users"
)

type InMemoryRepositoryManager struct {
	users    *users.MemoryRepository
	messages *chat.MemoryStore
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) Messages() chat.Store {
	return m.messages
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		messages: chat.NewMemoryStore(),
	}
}
