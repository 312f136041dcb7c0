// Package broadcast implements the real-time fan-out layer. State-mutating
// operations publish named events after commit; connected clients subscribe
// with an interest set and receive matching events over buffered channels
// (surfaced to browsers as server-sent events by the HTTP layer).
//
// Delivery is fire-and-forget: publishing never blocks the triggering request,
// nothing is retried, and a subscriber whose buffer is full simply loses the
// event. Clients reconcile by re-fetching state on reconnect.
package broadcast

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// subscriberBuffer is the per-subscriber channel depth. Slow consumers drop
// events beyond this, they never apply backpressure to publishers.
const subscriberBuffer = 64

// Scope selects who an event is addressed to.
type Scope int

const (
	// ScopeAll targets every connected client.
	ScopeAll Scope = iota
	// ScopeCommittee targets clients watching one committee.
	ScopeCommittee
	// ScopeGroup targets members of one chat group.
	ScopeGroup
	// ScopeUser targets a single delegate's private room.
	ScopeUser
)

// Audience is the explicit addressing scheme for events. It replaces ad-hoc
// room-name strings so a target can never be mistyped into a dead room.
type Audience struct {
	Scope     Scope
	Committee string
	GroupID   int64
	UserID    int64
}

// Everyone addresses all connected clients.
func Everyone() Audience { return Audience{Scope: ScopeAll} }

// CommitteeRoom addresses clients watching the named committee.
func CommitteeRoom(committee string) Audience {
	return Audience{Scope: ScopeCommittee, Committee: committee}
}

// GroupRoom addresses members of a chat group.
func GroupRoom(groupID int64) Audience {
	return Audience{Scope: ScopeGroup, GroupID: groupID}
}

// UserRoom addresses one delegate's private room.
func UserRoom(userID int64) Audience {
	return Audience{Scope: ScopeUser, UserID: userID}
}

// Event is a published state-change notification. Payload must be
// JSON-serializable; it is encoded once per delivery by the transport.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Audience  Audience  `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Interest describes which rooms a subscriber wants events from. A zero
// Interest receives only ScopeAll events; All short-circuits everything.
type Interest struct {
	All        bool
	Committees map[string]struct{}
	Groups     map[int64]struct{}
	Users      map[int64]struct{}
}

// Wants reports whether an event addressed to aud should reach this interest
// set. Events addressed to everyone always match.
func (i Interest) Wants(aud Audience) bool {
	if i.All || aud.Scope == ScopeAll {
		return true
	}
	switch aud.Scope {
	case ScopeCommittee:
		_, ok := i.Committees[aud.Committee]
		return ok
	case ScopeGroup:
		_, ok := i.Groups[aud.GroupID]
		return ok
	case ScopeUser:
		_, ok := i.Users[aud.UserID]
		return ok
	}
	return false
}

// SubscriberID identifies an active subscription.
type SubscriberID int64

type subscriber struct {
	interest Interest
	ch       chan Event

	mu     sync.Mutex
	closed bool
}

// deliver sends evt unless the subscription has been shut down. The closed
// check and the send share the subscriber lock so a concurrent shutdown can
// never close the channel mid-send. Returns false when the buffer was full.
func (s *subscriber) deliver(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

// shutdown closes the channel exactly once.
func (s *subscriber) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus is the in-process publish/subscribe hub. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[SubscriberID]*subscriber
	lastID SubscriberID
	logger zerolog.Logger
}

// NewBus constructs an empty Bus that logs dropped deliveries to logger.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[SubscriberID]*subscriber),
		logger: logger,
	}
}

// Subscribe registers an interest set and returns the subscription ID and the
// event channel. The channel is closed by Unsubscribe.
func (b *Bus) Subscribe(interest Interest) (SubscriberID, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastID++
	id := b.lastID
	sub := &subscriber{interest: interest, ch: make(chan Event, subscriberBuffer)}
	b.subs[id] = sub
	busSubscribers.Inc()
	return id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call for
// an already-removed ID.
func (b *Bus) Unsubscribe(id SubscriberID) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		sub.shutdown()
		busSubscribers.Dec()
	}
}

// Close drops every subscription and closes all event channels. Used during
// server shutdown so streaming handlers unblock.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[SubscriberID]*subscriber)
	b.mu.Unlock()
	for range subs {
		busSubscribers.Dec()
	}
	for _, sub := range subs {
		sub.shutdown()
	}
}

// Publish delivers an event to every subscriber whose interest matches the
// audience. Delivery is non-blocking; events are dropped per-subscriber when
// their buffer is full.
func (b *Bus) Publish(eventType string, audience Audience, payload any) {
	evt := Event{
		Type:      eventType,
		Payload:   payload,
		Audience:  audience,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.interest.Wants(audience) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.deliver(evt) {
			busDropped.WithLabelValues(eventType).Inc()
			b.logger.Warn().
				Str("event", eventType).
				Msg("subscriber buffer full, dropping event")
		}
	}
	busPublished.WithLabelValues(eventType).Inc()
}

var (
	busPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_total",
			Help: "Total number of events published to the broadcast bus.",
		},
		[]string{"type"},
	)

	busDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		},
		[]string{"type"},
	)

	busSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_subscribers",
			Help: "Current number of broadcast subscribers.",
		},
	)
)

func init() {
	prometheus.MustRegister(busPublished, busDropped, busSubscribers)
}
