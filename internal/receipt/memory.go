package receipt

import (
	"context"
	"sync"

	"github.com/Domenick1991/parcelbooking/internal/domain"
)

// MemoryStore is a process-local receipt store used when no redis address is configured.
type MemoryStore struct {
	mu       sync.Mutex
	receipts map[string]domain.Receipt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{receipts: make(map[string]domain.Receipt)}
}

func (s *MemoryStore) Load(_ context.Context, scope string) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[scope]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryStore) Save(_ context.Context, scope string, r domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[scope] = r
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.receipts, scope)
	return nil
}
