// Package mailbox provides the message-store and send collaborators. Both are
// mocks standing in for a Graph-style provider: the inbox is generated sample
// data held in memory, and sending succeeds after a simulated delay.
package mailbox

import (
	"context"
	"sync"
	"time"

	"mailtriage/internal/models"
)

// Store is the read side of the message store.
type Store struct {
	mu     sync.RWMutex
	emails []*models.Email
	byID   map[string]*models.Email
}

// NewStore builds a store over the provided inbox snapshot.
func NewStore(emails []*models.Email) *Store {
	byID := make(map[string]*models.Email, len(emails))
	for _, e := range emails {
		byID[e.ID] = e
	}
	return &Store{emails: emails, byID: byID}
}

// ListInbox returns the inbox, newest first.
func (s *Store) ListInbox() []*models.Email {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Email, len(s.emails))
	copy(out, s.emails)
	return out
}

// Get returns the email with the given id, or nil.
func (s *Store) Get(id string) *models.Email {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// MarkRead flags the email as read. Returns false for an unknown id.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	e.IsRead = true
	return true
}

// Counts returns per-category inbox totals.
func (s *Store) Counts() map[models.Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Category]int)
	for _, e := range s.emails {
		counts[e.Category]++
	}
	return counts
}

// Sender is the send-service collaborator.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (bool, error)
}

// MockSender simulates the provider's send call: a short delay, then success.
type MockSender struct {
	Latency time.Duration
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) (bool, error) {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return true, nil
}
