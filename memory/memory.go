// Package memory keeps lightweight per-user facts that personas can recall
// across conversations. It is deliberately separate from conversation
// history, which lives in the store package.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one remembered fact about a user.
type Entry struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the per-user memory surface.
type Store interface {
	// Add remembers a fact for a user.
	Add(ctx context.Context, userID uint, content string) (Entry, error)
	// List returns a user's facts in insertion order.
	List(ctx context.Context, userID uint) ([]Entry, error)
	// Clear forgets everything stored for a user.
	Clear(ctx context.Context, userID uint) error
}

// InMemoryStore is the default Store, suitable for a single process.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[uint][]Entry
}

// NewInMemoryStore creates an empty memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[uint][]Entry)}
}

// Add implements Store.
func (s *InMemoryStore) Add(ctx context.Context, userID uint, content string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = append(s.entries[userID], e)
	return e, nil
}

// List implements Store.
func (s *InMemoryStore) List(ctx context.Context, userID uint) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries[userID]))
	copy(out, s.entries[userID])
	return out, nil
}

// Clear implements Store.
func (s *InMemoryStore) Clear(ctx context.Context, userID uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
