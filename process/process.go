// Package process provides the platform neutral types and interfaces used to
// enumerate processes and describe process trees.
package process

import "errors"

// The types and interfaces of this package live in:
// - types.go: ProcessID, ProcessRecord, ProcessTreeNode
// - snapshot.go: SnapshotProvider, Snapshot and the Scan guard
// - static.go: StaticProvider, an in-memory process table
// - process_finder.go: ProcessFinder interface

var (
	// ErrProcessNotFound is returned when no process with the requested PID
	// was observed in the process table.
	ErrProcessNotFound = errors.New("process not found")

	// ErrSnapshotUnavailable is returned when the OS refuses to create or
	// iterate a process table snapshot.
	ErrSnapshotUnavailable = errors.New("process snapshot unavailable")

	// ErrSnapshotClosed is returned when a snapshot is used after Close.
	ErrSnapshotClosed = errors.New("process snapshot closed")
)
