// Package events carries study notifications between components without
// direct dependencies between them.
//
// The study service emits an Event whenever a card is graded or a session
// is completed, and the host emits one when it is short on memory. Handlers
// such as the statistics cache invalidator subscribe through an
// InMemoryEventEmitter.
package events
