package users

import (
	"context"
	"sort"
	"sync"

	"github.com/svoychat/svoychat/internal/common"
)

type MemoryRepository struct {
	mu         sync.RWMutex
	byUsername map[string]Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byUsername: make(map[string]Identity)}
}

func (r *MemoryRepository) Create(ctx context.Context, identity *Identity) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[identity.Username]; exists {
		return nil, common.ErrUsernameTaken
	}

	r.byUsername[identity.Username] = *identity
	return identity, nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byUsername[username]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return &identity, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Identity, 0, len(r.byUsername))
	for _, identity := range r.byUsername {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
