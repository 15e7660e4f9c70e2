// Package comm provides the collective primitives the benchmark coordinates
// with: rank and size discovery, barrier, broadcast, a process-local wall
// clock and group abort. Two implementations exist: an in-process group for
// tests and single-process runs, and an HTTP client of the coordd rendezvous
// daemon for multi-process jobs.
package comm

import (
	"context"
	"errors"
	"time"
)

// ErrAborted is returned by collective operations once any member of the
// group has requested an abort.
var ErrAborted = errors.New("group aborted")

// Communicator is one process's view of its group.
type Communicator interface {
	// Rank is this process's index in [0, Size).
	Rank() int
	// Size is the number of processes in the group.
	Size() int

	// Barrier blocks until every member of the group has called it.
	Barrier(ctx context.Context) error

	// Broadcast replicates root's buf to every member. All members must
	// call with a buffer of the same length; non-roots receive into buf.
	// Entering the broadcast is the synchronization point: root's buffer
	// is fully populated before any receiver observes it.
	Broadcast(ctx context.Context, buf []byte, root int) error

	// WallClock returns the process-local monotonic clock. Comparable
	// across the group for durations only, not absolute instants.
	WallClock() time.Time

	// Abort marks the whole group as failed, unblocking every collective
	// operation in flight. Preferred over local-only termination whenever
	// other members could otherwise block forever.
	Abort(reason string)
}
