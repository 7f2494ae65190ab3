// Package realtime is the event distribution plane: a topic registry of live
// websocket connections, the gateway that feeds it, and the orchestrator that
// turns entity mutations into topic multicasts.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// ConversationTopic names the per-conversation sub-topic
func ConversationTopic(id string) string { return "conversation:" + id }

// CampaignTopic names the per-campaign sub-topic
func CampaignTopic(id string) string { return "campaign:" + id }

// Frame is one event pushed to a client
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Conn is one live client connection. The encoder mutex serializes frame
// writes; interleaved JSON from concurrent multicasts would corrupt the
// stream.
type Conn struct {
	ID    string
	OrgID string

	mu  sync.Mutex
	enc *json.Encoder
}

// NewConn wraps an encoder as a registered connection
func NewConn(orgID string, enc *json.Encoder) *Conn {
	return &Conn{ID: uuid.New().String(), OrgID: orgID, enc: enc}
}

func (c *Conn) send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(f)
}

// Registry maps topics to subscribed connections. The org ID itself is a
// topic; conversation and campaign sub-topics are derived with the helpers
// above. Empty topic sets are reclaimed on removal.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[*Conn]struct{}
	conns  map[*Conn]map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]map[*Conn]struct{}),
		conns:  make(map[*Conn]map[string]struct{}),
	}
}

// Add subscribes a connection to a topic
func (r *Registry) Add(topic string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.topics[topic]
	if !ok {
		set = make(map[*Conn]struct{})
		r.topics[topic] = set
	}
	set[c] = struct{}{}

	topics, ok := r.conns[c]
	if !ok {
		topics = make(map[string]struct{})
		r.conns[c] = topics
	}
	topics[topic] = struct{}{}
}

// Remove unsubscribes a connection from one topic
func (r *Registry) Remove(topic string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(topic, c)
}

func (r *Registry) remove(topic string, c *Conn) {
	if set, ok := r.topics[topic]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
	if topics, ok := r.conns[c]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(r.conns, c)
		}
	}
}

// Drop removes a connection from every topic it is subscribed to
func (r *Registry) Drop(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic := range r.conns[c] {
		if set, ok := r.topics[topic]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(r.topics, topic)
			}
		}
	}
	delete(r.conns, c)
}

// MembersOf snapshots the connections subscribed to a topic. The returned
// slice is safe to iterate without holding the registry lock.
func (r *Registry) MembersOf(topic string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.topics[topic]
	if len(set) == 0 {
		return nil
	}
	members := make([]*Conn, 0, len(set))
	for c := range set {
		members = append(members, c)
	}
	return members
}

// ConnectedClients counts the connections subscribed to a topic
func (r *Registry) ConnectedClients(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// Subscriptions counts live (topic, connection) pairs
func (r *Registry) Subscriptions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, topics := range r.conns {
		n += len(topics)
	}
	return n
}
