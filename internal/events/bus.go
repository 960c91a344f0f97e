// Package events buffers the progress events of one run and fans them out to
// live subscribers.
package events

import (
	"sync"
	"time"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

// Type classifies messages emitted during a run.
type Type string

const (
	TypeStatus   Type = "status"
	TypeProgress Type = "progress"
	TypeResult   Type = "result"
	TypeError    Type = "error"
)

// Event is a sequenced payload consumed by API clients.
type Event struct {
	Seq       int64            `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	RunID     string           `json:"run_id"`
	Type      Type             `json:"type"`
	Status    domain.RunStatus `json:"status,omitempty"`
	Progress  int              `json:"progress"`
	Message   string           `json:"message,omitempty"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
	Result    *domain.Result   `json:"result,omitempty"`
}

// Bus stores recent events and provides incremental reads plus live
// subscriptions.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	nextSub   int
	subs      map[int]chan Event
	closed    bool
}

// NewBus creates a bounded in-memory event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, 16),
		subs:      make(map[int]chan Event),
	}
}

// Publish appends one event, assigns sequence and timestamp and delivers it to
// subscribers. A subscriber whose buffer is full misses the event; it can
// catch up with Since.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if b.closed {
		return event
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe registers a live listener. The returned cancel func must be
// called once the listener is done; the channel is closed afterwards or when
// the bus closes.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Close ends every subscription. Later publishes are sequenced but dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
