package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventKind names a change that subscribers can react to.
type EventKind string

const (
	EventSignedIn       EventKind = "auth.signed_in"
	EventSignedOut      EventKind = "auth.signed_out"
	EventTokenRefreshed EventKind = "auth.token_refreshed"
	EventUserUpdated    EventKind = "auth.user_updated"
	EventMeetingCreated EventKind = "meeting.created"
)

// Event is a notification published after a state change has been persisted.
type Event struct {
	Kind      EventKind `json:"kind"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	MeetingID string    `json:"meeting_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	At        time.Time `json:"at"`
}

// EventFilter selects the events delivered to one subscriber. Empty fields match anything.
type EventFilter struct {
	UserID string
	Kinds  []EventKind
}

func (f EventFilter) matches(event Event) bool {
	if f.UserID != "" && f.UserID != event.UserID {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, kind := range f.Kinds {
		if kind == event.Kind {
			return true
		}
	}
	return false
}

type subscription struct {
	filter EventFilter
	ch     chan Event
}

// EventBroker fans events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type EventBroker struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscription
	nextID      uint64
	buffer      int
	logger      *slog.Logger
}

// NewEventBroker creates a broker whose subscriber channels hold buffer events.
func NewEventBroker(buffer int, logger *slog.Logger) *EventBroker {
	if buffer <= 0 {
		buffer = 16
	}
	return &EventBroker{
		subscribers: make(map[uint64]*subscription),
		buffer:      buffer,
		logger:      defaultLogger(logger),
	}
}

// Subscribe registers a subscriber and returns its channel together with a
// cancel function that unregisters it and closes the channel. Cancel is idempotent.
func (b *EventBroker) Subscribe(filter EventFilter) (<-chan Event, func()) {
	sub := &subscription{filter: filter, ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers event to every matching subscriber.
func (b *EventBroker) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.WarnContext(ctx, "event dropped (subscriber buffer full)",
				"kind", event.Kind, "subscriber", id)
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (b *EventBroker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
