// Package broadcast fans out post-commit change notifications to subscribed
// stream clients. It is process-local: clients on other servers catch up via
// the pull cursor.
package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event notifies subscribers that an entity changed. It carries no payload:
// clients re-pull from their cursor for authoritative data.
type Event struct {
	Event      string `json:"event"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	SyncID     int64  `json:"sync_id"`
}

// EntityChanged builds the standard change notification.
func EntityChanged(entityType, entityID string, syncID int64) Event {
	return Event{
		Event:      "entity_changed",
		EntityType: entityType,
		EntityID:   entityID,
		SyncID:     syncID,
	}
}

// defaultBuffer is the per-subscriber queue depth. A subscriber that falls
// this far behind is dropped; it will reconnect and resume via pull.
const defaultBuffer = 64

// Broadcaster multicasts events to subscriber queues. The subscriber table
// is guarded by a mutex; delivery is a non-blocking channel send, so slow
// subscribers never block publishers.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]chan Event
	buffer int
}

func New() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]chan Event),
		buffer: defaultBuffer,
	}
}

// Connect registers a new subscriber and returns its server-generated id
// and event queue. The queue is closed on Disconnect or overflow.
func (b *Broadcaster) Connect() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	log.Debug().Str("subscriber", id).Msg("stream subscriber connected")
	return id, ch
}

// Disconnect removes the subscriber and closes its queue. Unknown ids are
// ignored, so overflow-dropped subscribers can still call Disconnect.
func (b *Broadcaster) Disconnect(id string) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
		log.Debug().Str("subscriber", id).Msg("stream subscriber disconnected")
	}
}

// Broadcast enqueues the event for every subscriber except exclude (pass ""
// to reach everyone). Subscribers whose queue is full are dropped.
func (b *Broadcaster) Broadcast(ev Event, exclude string) {
	b.mu.Lock()
	var dropped []string
	for id, ch := range b.subs {
		if id == exclude {
			continue
		}
		select {
		case ch <- ev:
		default:
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		ch := b.subs[id]
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()

	for _, id := range dropped {
		log.Warn().Str("subscriber", id).Msg("stream subscriber too slow, dropped")
	}
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
