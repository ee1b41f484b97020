package kb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventEngagementUpdated EventType = iota
	EventEngagementRemoved
	EventRadarPing
)

// Status is the coarse lifecycle state of a registered engagement.
type Status int

const (
	StatusInFlight Status = iota
	StatusDetonated
	StatusMissed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusInFlight:
		return "in_flight"
	case StatusDetonated:
		return "detonated"
	case StatusMissed:
		return "missed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Engagement is the registry's view of one munition in flight.
type Engagement struct {
	ID         string
	Munition   string
	Targeting  model.TargetingMode
	LauncherID string
	// VesselID is the munition's own vessel; radar pings addressed to it are
	// routed to its controller.
	VesselID string
	Status   Status
}

// RadarPing is a radar emission observed in the world.
type RadarPing struct {
	Origin core.Vec3
	Threat core.ThreatType
	// VesselID is the vessel the emission was detected by.
	VesselID string
}

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type       EventType
	Engagement Engagement
	Ping       RadarPing
}

// KnowledgeBase is an in-memory, thread-safe registry of engagements and the
// radar-ping bus shared between them.
type KnowledgeBase struct {
	mu sync.RWMutex

	engagements map[string]*Engagement

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		engagements: make(map[string]*Engagement),
		subs:        make(map[int]func(Event)),
	}
}

// Register adds a new engagement. It returns an error if the ID already exists.
func (kb *KnowledgeBase) Register(e Engagement) error {
	if e.ID == "" {
		return fmt.Errorf("engagement ID must not be empty")
	}
	kb.mu.Lock()
	if _, exists := kb.engagements[e.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("engagement with ID %q already exists", e.ID)
	}
	stored := e
	kb.engagements[e.ID] = &stored
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventEngagementUpdated, Engagement: e})
	return nil
}

// Get returns a copy of the engagement with the given ID.
func (kb *KnowledgeBase) Get(id string) (Engagement, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	e, ok := kb.engagements[id]
	if !ok {
		return Engagement{}, false
	}
	return *e, true
}

// List returns a snapshot of all engagements ordered by ID.
func (kb *KnowledgeBase) List() []Engagement {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]Engagement, 0, len(kb.engagements))
	for _, e := range kb.engagements {
		res = append(res, *e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// SetStatus updates an engagement's status and notifies subscribers.
func (kb *KnowledgeBase) SetStatus(id string, status Status) error {
	kb.mu.Lock()
	e, ok := kb.engagements[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("engagement with ID %q not found", id)
	}
	e.Status = status
	event := Event{
		Type:       EventEngagementUpdated,
		Engagement: *e, // copy for safety
	}
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, event)
	return nil
}

// Remove drops an engagement from the registry.
func (kb *KnowledgeBase) Remove(id string) error {
	kb.mu.Lock()
	e, ok := kb.engagements[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("engagement with ID %q not found", id)
	}
	delete(kb.engagements, id)
	event := Event{Type: EventEngagementRemoved, Engagement: *e}
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, event)
	return nil
}

// PublishRadarPing delivers a ping synchronously to every subscriber.
func (kb *KnowledgeBase) PublishRadarPing(p RadarPing) {
	kb.mu.RLock()
	subs := kb.snapshotSubsLocked()
	kb.mu.RUnlock()

	notify(subs, Event{Type: EventRadarPing, Ping: p})
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

// snapshotSubsLocked copies subscribers in registration order. Callers hold mu.
func (kb *KnowledgeBase) snapshotSubsLocked() []func(Event) {
	ids := make([]int, 0, len(kb.subs))
	for id := range kb.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, kb.subs[id])
	}
	return subs
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
