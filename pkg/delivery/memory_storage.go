package delivery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// MemoryAttemptStore is an in-memory implementation of AttemptStore.
// Suitable for development and testing.
type MemoryAttemptStore struct {
	attempts map[uuid.UUID]Attempt
	byPMID   map[string]uuid.UUID
	mu       sync.RWMutex
}

// NewMemoryAttemptStore creates a new in-memory attempt store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[uuid.UUID]Attempt),
		byPMID:   make(map[string]uuid.UUID),
	}
}

func (s *MemoryAttemptStore) SaveAttempt(ctx context.Context, a Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.attempts[a.ID]; exists {
		return ErrDuplicateAttempt
	}

	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	s.attempts[a.ID] = cloneAttempt(a)
	if a.ProviderMessageID != "" {
		s.byPMID[a.ProviderMessageID] = a.ID
	}
	return nil
}

func (s *MemoryAttemptStore) GetAttempt(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := cloneAttempt(a)
	return &cp, nil
}

func (s *MemoryAttemptStore) ByProviderMessageID(ctx context.Context, providerMessageID string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPMID[providerMessageID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	a := s.attempts[id]
	cp := cloneAttempt(a)
	return &cp, nil
}

func (s *MemoryAttemptStore) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Attempt
	for _, a := range s.attempts {
		if a.NotificationID == notificationID {
			result = append(result, cloneAttempt(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].AttemptNumber < result[j].AttemptNumber
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryAttemptStore) ListUnresolved(ctx context.Context, limit int) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Attempt
	for _, a := range s.attempts {
		switch a.Status {
		case StatusPending, StatusSent, StatusUnknown:
			result = append(result, cloneAttempt(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryAttemptStore) NextAttemptNumber(ctx context.Context, notificationID uuid.UUID, channel notification.Channel) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, a := range s.attempts {
		if a.NotificationID == notificationID && a.Channel == channel && a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	}
	return max + 1, nil
}

func (s *MemoryAttemptStore) AppendEvent(ctx context.Context, attemptID uuid.UUID, ev Event, newStatus Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[attemptID]
	if !ok {
		return ErrAttemptNotFound
	}

	// Idempotence: the identical provider signal is recorded once.
	if a.HasEvent(ev) {
		return nil
	}

	a.Events = append(a.Events, ev)
	if a.Status.Advances(newStatus) {
		a.Status = newStatus
	}
	a.UpdatedAt = time.Now()

	s.attempts[attemptID] = a
	return nil
}

func cloneAttempt(a Attempt) Attempt {
	cp := a
	if len(a.Events) > 0 {
		cp.Events = make([]Event, len(a.Events))
		copy(cp.Events, a.Events)
	}
	return cp
}
