// Package events defines the domain events published on the event bus.
//
// Available event types:
//   - ConflictsDetectedEvent: result summary of a detection pass
//   - ReassignmentEvent: a reassignment was suggested, executed or abandoned
//   - ChangeEvent: change records produced by a mutation
//   - SyncFlushedEvent: outcome of a sync queue flush
package events
