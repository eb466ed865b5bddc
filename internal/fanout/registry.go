// internal/fanout/registry.go

// Package fanout routes event broadcasts to the connections currently
// subscribed to the relevant group. Membership state is owned by an
// injectable Registry rather than a process-wide singleton so tests can
// substitute in-memory senders.
package fanout

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/events"
)

// Sender delivers one marshaled frame to a connection without blocking.
// It reports false when the frame was dropped (queue full or closed).
type Sender interface {
	TrySend(payload []byte) bool
}

// Metrics is the observability hook for delivery outcomes. Implementations
// must not block.
type Metrics interface {
	Delivered(group string, kind string)
	Dropped(group string, kind string)
}

type nopMetrics struct{}

func (nopMetrics) Delivered(string, string) {}
func (nopMetrics) Dropped(string, string)   {}

// LogMetrics emits a debug event per delivery outcome.
type LogMetrics struct{}

func (LogMetrics) Delivered(group, kind string) {
	log.Debug().Str("group", group).Str("kind", kind).Msg("Event delivered")
}

func (LogMetrics) Dropped(group, kind string) {
	log.Warn().Str("group", group).Str("kind", kind).Msg("Event dropped")
}

// FacilityGroup names the broadcast group for one facility.
func FacilityGroup(facilityID int64) string {
	return fmt.Sprintf("facility_%d", facilityID)
}

// UserGroup names the broadcast group for one user.
func UserGroup(userID string) string {
	return "user_" + userID
}

// Registry tracks live connections and their group memberships. All
// membership mutations are serialized behind one lock; broadcasts copy the
// member set under the read lock and deliver without holding it, so a
// connection that joins mid-broadcast may or may not receive that broadcast
// but never receives one for a group it fully left beforehand.
type Registry struct {
	metrics Metrics

	mu          sync.RWMutex
	conns       map[string]Sender
	groups      map[string]map[string]struct{}
	memberships map[string]map[string]struct{}
}

func NewRegistry(metrics Metrics) *Registry {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Registry{
		metrics:     metrics,
		conns:       make(map[string]Sender),
		groups:      make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Register adds a live connection with no group memberships.
func (r *Registry) Register(connID string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = sender
}

// Unregister removes the connection and all of its memberships as a unit.
// Safe to call more than once; no group retains a dead connection.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for group := range r.memberships[connID] {
		delete(r.groups[group], connID)
		if len(r.groups[group]) == 0 {
			delete(r.groups, group)
		}
	}
	delete(r.memberships, connID)
	delete(r.conns, connID)
}

// JoinFacilityGroup subscribes the connection to a facility's events.
// Idempotent; joining from an unknown connection is a no-op.
func (r *Registry) JoinFacilityGroup(connID string, facilityID int64) {
	r.join(connID, FacilityGroup(facilityID))
}

// LeaveFacilityGroup is the idempotent inverse of JoinFacilityGroup.
func (r *Registry) LeaveFacilityGroup(connID string, facilityID int64) {
	r.leave(connID, FacilityGroup(facilityID))
}

// JoinUserGroup subscribes the connection to a user's events.
func (r *Registry) JoinUserGroup(connID string, userID string) {
	r.join(connID, UserGroup(userID))
}

// LeaveUserGroup is the idempotent inverse of JoinUserGroup.
func (r *Registry) LeaveUserGroup(connID string, userID string) {
	r.leave(connID, UserGroup(userID))
}

func (r *Registry) join(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; !ok {
		return
	}
	if r.groups[group] == nil {
		r.groups[group] = make(map[string]struct{})
	}
	r.groups[group][connID] = struct{}{}
	if r.memberships[connID] == nil {
		r.memberships[connID] = make(map[string]struct{})
	}
	r.memberships[connID][group] = struct{}{}
}

func (r *Registry) leave(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[group], connID)
	if len(r.groups[group]) == 0 {
		delete(r.groups, group)
	}
	delete(r.memberships[connID], group)
}

// BroadcastBookingEvent delivers the event to the members of the booking's
// facility group and of the booking player's user group; a connection in
// both receives it once. Best-effort: a client not connected at broadcast
// time reconciles via a subsequent read, not via replay.
func (r *Registry) BroadcastBookingEvent(event events.BookingEvent) {
	group := FacilityGroup(event.FacilityID)
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("group", group).Msg("Failed to encode booking event")
		return
	}
	r.deliver(group, event.Kind, payload, r.snapshotGroups(group, UserGroup(event.PlayerUserID)))
}

// BroadcastCommentEvent delivers a comment notification to every live
// connection. The global scope is deliberately looser than the
// facility-scoped booking events; receiving clients filter locally.
func (r *Registry) BroadcastCommentEvent(event events.CommentEvent) {
	event.Kind = events.KindCommentNotification
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode comment event")
		return
	}
	r.deliver("*", event.Kind, payload, r.snapshotAll())
}

// BroadcastRelay forwards an opaque client payload to every live connection.
func (r *Registry) BroadcastRelay(relay events.Relay) {
	payload, err := json.Marshal(relay)
	if err != nil {
		log.Error().Err(err).Str("kind", relay.Kind).Msg("Failed to encode relay payload")
		return
	}
	r.deliver("*", relay.Kind, payload, r.snapshotAll())
}

func (r *Registry) snapshotGroups(groups ...string) []Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var members []Sender
	for _, group := range groups {
		for connID := range r.groups[group] {
			if _, dup := seen[connID]; dup {
				continue
			}
			if sender, ok := r.conns[connID]; ok {
				seen[connID] = struct{}{}
				members = append(members, sender)
			}
		}
	}
	return members
}

func (r *Registry) snapshotAll() []Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]Sender, 0, len(r.conns))
	for _, sender := range r.conns {
		members = append(members, sender)
	}
	return members
}

func (r *Registry) deliver(group, kind string, payload []byte, members []Sender) {
	for _, sender := range members {
		if sender.TrySend(payload) {
			r.metrics.Delivered(group, kind)
		} else {
			r.metrics.Dropped(group, kind)
		}
	}
}
