package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
)

// Notification is a toast shown to the user and kept in the history log.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

const (
	historyLimit = 20
	toastTTL     = 5 * time.Second
)

// Service is the in-memory toast feed plus a capped history, fed by the sync
// engine's derived events.
type Service struct {
	mu      sync.Mutex
	active  []Notification
	history []Notification
	subs    map[chan Notification]struct{}
	ttl     time.Duration
}

// NewService creates a notification service.
func NewService() *Service {
	return &Service{
		subs: make(map[chan Notification]struct{}),
		ttl:  toastTTL,
	}
}

// Add records a notification, fans it out to subscribers and schedules the
// toast's auto-dismiss.
func (s *Service) Add(message string, typ Type) Notification {
	n := Notification{
		ID:        "notif-" + uuid.NewString(),
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.active = append(s.active, n)
	s.history = append([]Notification{n}, s.history...)
	if len(s.history) > historyLimit {
		s.history = s.history[:historyLimit]
	}
	for ch := range s.subs {
		select {
		case ch <- n:
		default: // slow subscriber, drop
		}
	}
	s.mu.Unlock()

	time.AfterFunc(s.ttl, func() { s.Dismiss(n.ID) })
	return n
}

// Dismiss removes a toast from the active set. History keeps it.
func (s *Service) Dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.active {
		if n.ID == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return
		}
	}
}

// Active returns the currently visible toasts.
func (s *Service) Active() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.active))
	copy(out, s.active)
	return out
}

// History returns the most recent notifications, newest first.
func (s *Service) History() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.history))
	copy(out, s.history)
	return out
}

// MarkAllRead flags every history entry as read.
func (s *Service) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		s.history[i].Read = true
	}
}

// Subscribe returns a feed of new notifications. Call the returned cancel
// function to detach.
func (s *Service) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}
