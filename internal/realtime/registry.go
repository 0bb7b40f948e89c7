package realtime

import (
	"sync"

	"github.com/spec-kit/grievance-service/internal/events"
)

// Connection is one live subscriber. Deliver must never block: transports
// queue frames on a buffered channel and drop when the peer is gone or slow.
type Connection interface {
	ID() string
	Deliver(event events.Event)
}

// Publisher is the fan-out surface the notification layer depends on.
type Publisher interface {
	Publish(audienceKey string, event events.Event) int
}

// Registry maps logical audience keys (user:<id>, department:<name>,
// grievance:<id>) to the set of live connections subscribed to them. It is
// runtime-only state, never a source of truth for anything durable.
type Registry struct {
	mu        sync.RWMutex
	audiences map[string]map[string]Connection
	members   map[string]map[string]struct{}
	conns     map[string]Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		audiences: make(map[string]map[string]Connection),
		members:   make(map[string]map[string]struct{}),
		conns:     make(map[string]Connection),
	}
}

// Subscribe adds conn to the audience. Idempotent.
func (r *Registry) Subscribe(conn Connection, audienceKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID()] = conn
	if r.audiences[audienceKey] == nil {
		r.audiences[audienceKey] = make(map[string]Connection)
	}
	r.audiences[audienceKey][conn.ID()] = conn
	if r.members[conn.ID()] == nil {
		r.members[conn.ID()] = make(map[string]struct{})
	}
	r.members[conn.ID()][audienceKey] = struct{}{}
}

// Unsubscribe removes conn from the audience. Idempotent.
func (r *Registry) Unsubscribe(conn Connection, audienceKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(conn.ID(), audienceKey)
}

// Disconnect removes conn from every audience it was subscribed to.
func (r *Registry) Disconnect(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for audienceKey := range r.members[conn.ID()] {
		r.removeLocked(conn.ID(), audienceKey)
	}
	delete(r.members, conn.ID())
	delete(r.conns, conn.ID())
}

func (r *Registry) removeLocked(connID, audienceKey string) {
	if subs, ok := r.audiences[audienceKey]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.audiences, audienceKey)
		}
	}
	if keys, ok := r.members[connID]; ok {
		delete(keys, audienceKey)
	}
}

// Publish delivers event to every connection currently subscribed to the
// audience and reports how many connections it was handed to. Delivery to a
// connection that disconnects mid-flight is silently dropped by the
// transport; the publisher never sees an error.
func (r *Registry) Publish(audienceKey string, event events.Event) int {
	r.mu.RLock()
	targets := make([]Connection, 0, len(r.audiences[audienceKey]))
	for _, conn := range r.audiences[audienceKey] {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		conn.Deliver(event)
	}
	return len(targets)
}

// SubscriberCount reports the current audience size.
func (r *Registry) SubscriberCount(audienceKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.audiences[audienceKey])
}
