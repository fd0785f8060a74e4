package chat

import (
	"context"
	"sync"
)

// MemoryStore keeps conversation logs in process memory, keyed by the
// canonical conversation key.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Message)}
}

func (s *MemoryStore) Append(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ConversationKey] = append(s.messages[msg.ConversationKey], *msg)
	return nil
}

func (s *MemoryStore) History(ctx context.Context, a, b string) ([]Message, error) {
	key := Key(a, b)

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[key]
	out := make([]Message, len(log))
	copy(out, log)
	return out, nil
}
