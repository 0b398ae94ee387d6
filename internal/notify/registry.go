package notify

import (
	"sync"

	"github.com/google/uuid"

	"beastfood/pkg/metrics"
	"beastfood/pkg/models"
)

const (
	EventNotification = "notification"
	EventUnreadCount  = "unread_count"

	defaultBuffer = 16
)

// Event is one message for a single user's live connections. It is also the
// payload carried by the cross-instance bus.
type Event struct {
	Type         string               `json:"type"`
	UserID       string               `json:"user_id"`
	Notification *models.Notification `json:"notification,omitempty"`
	UnreadCount  *int                 `json:"unread_count,omitempty"`
}

// Data is what a transport writes for the event.
func (e Event) Data() any {
	if e.Type == EventUnreadCount {
		n := 0
		if e.UnreadCount != nil {
			n = *e.UnreadCount
		}
		return map[string]int{"count": n}
	}
	return e.Notification
}

// Subscriber is one open stream. Outbound is bounded; Registry.Deliver drops
// events for a subscriber whose buffer is full.
type Subscriber struct {
	ID       string
	UserID   string
	Outbound chan Event

	once sync.Once
	done chan struct{}
}

// Done is closed once the subscriber has been removed from the registry.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Registry maps user ids to their open streams.
type Registry struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	buffer int
}

func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Registry{subs: make(map[string]map[*Subscriber]struct{}), buffer: buffer}
}

func (r *Registry) Subscribe(userID string) *Subscriber {
	s := &Subscriber{
		ID:       uuid.NewString(),
		UserID:   userID,
		Outbound: make(chan Event, r.buffer),
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	set, ok := r.subs[userID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		r.subs[userID] = set
	}
	set[s] = struct{}{}
	r.mu.Unlock()

	metrics.LiveConnections.Inc()
	return s
}

func (r *Registry) Unsubscribe(s *Subscriber) {
	r.mu.Lock()
	removed := false
	if set, ok := r.subs[s.UserID]; ok {
		if _, ok := set[s]; ok {
			delete(set, s)
			removed = true
		}
		if len(set) == 0 {
			delete(r.subs, s.UserID)
		}
	}
	r.mu.Unlock()

	s.once.Do(func() { close(s.done) })
	if removed {
		metrics.LiveConnections.Dec()
	}
}

// CloseAll unsubscribes every open stream so SSE and websocket handlers
// return. It reports how many streams were closed.
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	var all []*Subscriber
	for _, set := range r.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range all {
		r.Unsubscribe(s)
	}
	return len(all)
}

// Deliver queues ev on every stream of ev.UserID and reports how many
// accepted it.
func (r *Registry) Deliver(ev Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for s := range r.subs[ev.UserID] {
		select {
		case s.Outbound <- ev:
			n++
		default:
		}
	}
	return n
}

func (r *Registry) Connected(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[userID])
}

type Stats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{Users: len(r.subs)}
	for _, set := range r.subs {
		st.Connections += len(set)
	}
	return st
}
