package inapp

import (
	"context"
	"sync"
)

// Subscriber receives a recipient's live in-app messages.
type Subscriber interface {
	// Receive returns the message channel. The channel is closed when
	// the subscription ends.
	Receive() <-chan Message

	// Close ends the subscription. Idempotent.
	Close() error
}

type subscriber struct {
	ch     chan Message
	closed bool
	mu     sync.RWMutex
}

func newSubscriberChan(bufferSize int) *subscriber {
	return &subscriber{ch: make(chan Message, bufferSize)}
}

func (s *subscriber) Receive() <-chan Message { return s.ch }

func (s *subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send delivers non-blocking. A full buffer drops the message; the
// subscriber catches up from the inbox on reconnect.
func (s *subscriber) send(msg Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// hub fans live messages out to per-recipient subscribers. Slow
// consumers never block publishing.
type hub struct {
	mu         sync.RWMutex
	byUser     map[string]map[*subscriber]struct{}
	bufferSize int
	closed     bool
	cleanupWg  sync.WaitGroup
}

func newHub(bufferSize int) *hub {
	return &hub{
		byUser:     make(map[string]map[*subscriber]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

func (h *hub) subscribe(ctx context.Context, recipient string) Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := newSubscriberChan(h.bufferSize)
	if h.closed {
		_ = sub.Close()
		return sub
	}

	subs, ok := h.byUser[recipient]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.byUser[recipient] = subs
	}
	subs[sub] = struct{}{}

	if ctx.Done() != nil {
		h.cleanupWg.Add(1)
		go func() {
			defer h.cleanupWg.Done()
			<-ctx.Done()
			h.unsubscribe(recipient, sub)
		}()
	}

	return sub
}

func (h *hub) publish(recipient string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for sub := range h.byUser[recipient] {
		if !sub.send(msg) {
			// Remove dead subscribers off the read path.
			go h.unsubscribe(recipient, sub)
		}
	}
}

func (h *hub) unsubscribe(recipient string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.byUser[recipient]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.byUser, recipient)
		}
	}
	_ = sub.Close()
}

func (h *hub) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, subs := range h.byUser {
		for sub := range subs {
			_ = sub.Close()
		}
	}
	clear(h.byUser)
	h.mu.Unlock()

	h.cleanupWg.Wait()
}
