package inapp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Inbox persists in-app messages per recipient.
// Implementations must be safe for concurrent use.
type Inbox interface {
	// Append stores a new message in the recipient's inbox.
	Append(ctx context.Context, msg Message) error

	// Get returns a message by ID.
	Get(ctx context.Context, id uuid.UUID) (Message, error)

	// List returns the recipient's messages, newest first.
	List(ctx context.Context, recipient string, limit int) ([]Message, error)

	// MarkRead stamps the message read time. Marking an already read
	// message is a no-op that keeps the original timestamp.
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (Message, error)

	// UnreadCount returns the number of unread messages for a recipient.
	UnreadCount(ctx context.Context, recipient string) (int, error)
}

// MemoryInbox is an in-memory Inbox for tests and single-process
// deployments.
type MemoryInbox struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]Message
	byUser map[string][]uuid.UUID
}

// NewMemoryInbox creates an empty in-memory inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{
		byID:   make(map[uuid.UUID]Message),
		byUser: make(map[string][]uuid.UUID),
	}
}

func (s *MemoryInbox) Append(ctx context.Context, msg Message) error {
	if msg.ID == uuid.Nil {
		return ErrMissingMessageID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[msg.ID]; exists {
		return ErrDuplicateMessage
	}
	s.byID[msg.ID] = msg
	s.byUser[msg.Recipient] = append(s.byUser[msg.Recipient], msg.ID)
	return nil
}

func (s *MemoryInbox) Get(ctx context.Context, id uuid.UUID) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.byID[id]
	if !ok {
		return Message{}, ErrMessageNotFound
	}
	return msg, nil
}

func (s *MemoryInbox) List(ctx context.Context, recipient string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[recipient]
	out := make([]Message, 0, min(len(ids), max(limit, 0)))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.byID[ids[i]])
	}
	return out, nil
}

func (s *MemoryInbox) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok {
		return Message{}, ErrMessageNotFound
	}
	if msg.ReadAt == nil {
		msg.ReadAt = &at
		s.byID[id] = msg
	}
	return msg, nil
}

func (s *MemoryInbox) UnreadCount(ctx context.Context, recipient string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byUser[recipient] {
		if !s.byID[id].Read() {
			count++
		}
	}
	return count, nil
}
