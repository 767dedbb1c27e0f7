// Package board keeps the client-side Board State consistent while tasks are
// dragged between columns.
//
// Store holds the ordered lanes, Allocate turns a lane index into the
// position persisted at drop time, and Controller consumes the drag-start,
// drag-over and drag-end events, mutating the Store optimistically and
// issuing exactly one write through a Gateway per drop. After every
// confirmed write the Controller refetches the whole board; nothing is
// merged incrementally.
package board
