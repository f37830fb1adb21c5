package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/inkline-labs/inkline/internal/blame"
)

// Message wraps a note event with the time it entered the dispatcher.
type Message struct {
	Event     blame.NoteUpdatedEvent
	Timestamp time.Time
}

// Dispatcher fans note events out to in-process subscribers keyed by
// workspace. Slow subscribers are skipped rather than blocking publishers;
// delivery is at-most-once by design.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
}

type subscriber struct {
	id     int64
	stream chan Message
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  16,
		clock:       time.Now,
	}
}

// Subscribe registers a listener for one workspace. The returned cleanup is
// also invoked when the context ends.
func (d *Dispatcher) Subscribe(ctx context.Context, workspaceID string) (<-chan Message, func()) {
	if workspaceID == "" {
		ch := make(chan Message)
		close(ch)
		return ch, func() {}
	}
	sub := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan Message, d.bufferSize),
	}
	d.register(workspaceID, sub)
	cleanup := func() {
		d.unregister(workspaceID, sub.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

// PublishNoteUpdated delivers the event to every subscriber of its workspace.
// It satisfies the blame store's notification port.
func (d *Dispatcher) PublishNoteUpdated(event blame.NoteUpdatedEvent) error {
	if event.WorkspaceID == "" || event.Type == "" {
		return nil
	}
	message := Message{Event: event, Timestamp: d.clock().UTC()}

	d.mu.RLock()
	subscribers := d.subscribers[event.WorkspaceID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return nil
	}
	copies := make([]*subscriber, 0, len(subscribers))
	for _, sub := range subscribers {
		copies = append(copies, sub)
	}
	d.mu.RUnlock()

	for _, sub := range copies {
		select {
		case sub.stream <- message:
		default:
		}
	}
	return nil
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) register(workspaceID string, sub *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[workspaceID]; !ok {
		d.subscribers[workspaceID] = make(map[int64]*subscriber)
	}
	d.subscribers[workspaceID][sub.id] = sub
}

func (d *Dispatcher) unregister(workspaceID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[workspaceID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, workspaceID)
		}
	}
	d.mu.Unlock()
}
