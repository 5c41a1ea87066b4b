package eventbus

import "github.com/kilianp07/droneops/core/events"

// Hub groups the buses used by the service.
type Hub struct {
	Conflicts     *Bus[events.ConflictsDetectedEvent]
	Reassignments *Bus[events.ReassignmentEvent]
	Changes       *Bus[events.ChangeEvent]
	Flushes       *Bus[events.SyncFlushedEvent]
}

// NewHub creates one bus per event type.
func NewHub(opts ...Option) *Hub {
	return &Hub{
		Conflicts:     New[events.ConflictsDetectedEvent]("conflicts", opts...),
		Reassignments: New[events.ReassignmentEvent]("reassignments", opts...),
		Changes:       New[events.ChangeEvent]("changes", opts...),
		Flushes:       New[events.SyncFlushedEvent]("flushes", opts...),
	}
}

// Close closes every bus.
func (h *Hub) Close() {
	h.Conflicts.Close()
	h.Reassignments.Close()
	h.Changes.Close()
	h.Flushes.Close()
}
