package comm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalGroup is an in-process group of n ranks, one goroutine per rank. It
// backs the "no coordinator" single-process mode and every test of the
// collective protocol.
type LocalGroup struct {
	size int

	mu       sync.Mutex
	barriers map[uint64]*localBarrier
	bcasts   map[uint64]*localBcast
	aborted  bool
	reason   string
	abortCh  chan struct{}
}

type localBarrier struct {
	arrived int
	done    chan struct{}
}

type localBcast struct {
	data     []byte
	ready    chan struct{}
	consumed int
}

// NewLocalGroup creates a group of n ranks.
func NewLocalGroup(n int) *LocalGroup {
	return &LocalGroup{
		size:     n,
		barriers: make(map[uint64]*localBarrier),
		bcasts:   make(map[uint64]*localBcast),
		abortCh:  make(chan struct{}),
	}
}

// Comm returns rank's communicator. Each rank must use its own.
func (g *LocalGroup) Comm(rank int) Communicator {
	return &localComm{group: g, rank: rank}
}

type localComm struct {
	group *LocalGroup
	rank  int

	epoch uint64 // barriers entered so far
	seq   uint64 // broadcasts entered so far
}

func (c *localComm) Rank() int            { return c.rank }
func (c *localComm) Size() int            { return c.group.size }
func (c *localComm) WallClock() time.Time { return time.Now() }

func (c *localComm) Barrier(ctx context.Context) error {
	g := c.group
	g.mu.Lock()
	if g.aborted {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAborted, g.reason)
	}
	epoch := c.epoch
	c.epoch++
	b, ok := g.barriers[epoch]
	if !ok {
		b = &localBarrier{done: make(chan struct{})}
		g.barriers[epoch] = b
	}
	b.arrived++
	if b.arrived == g.size {
		close(b.done)
		delete(g.barriers, epoch)
	}
	g.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-g.abortCh:
		return fmt.Errorf("%w: %s", ErrAborted, g.reason)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *localComm) Broadcast(ctx context.Context, buf []byte, root int) error {
	g := c.group
	g.mu.Lock()
	if g.aborted {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAborted, g.reason)
	}
	seq := c.seq
	c.seq++
	slot, ok := g.bcasts[seq]
	if !ok {
		slot = &localBcast{ready: make(chan struct{})}
		g.bcasts[seq] = slot
	}
	if c.rank == root {
		slot.data = append([]byte(nil), buf...)
		close(slot.ready)
	}
	g.mu.Unlock()

	if c.rank == root {
		c.consume(seq, slot)
		return nil
	}

	select {
	case <-slot.ready:
	case <-g.abortCh:
		return fmt.Errorf("%w: %s", ErrAborted, g.reason)
	case <-ctx.Done():
		return ctx.Err()
	}
	if len(slot.data) != len(buf) {
		return fmt.Errorf("broadcast size mismatch: root sent %d bytes, rank %d expects %d",
			len(slot.data), c.rank, len(buf))
	}
	copy(buf, slot.data)
	c.consume(seq, slot)
	return nil
}

func (c *localComm) consume(seq uint64, slot *localBcast) {
	g := c.group
	g.mu.Lock()
	slot.consumed++
	if slot.consumed == g.size {
		delete(g.bcasts, seq)
	}
	g.mu.Unlock()
}

func (c *localComm) Abort(reason string) {
	g := c.group
	g.mu.Lock()
	if !g.aborted {
		g.aborted = true
		g.reason = reason
		close(g.abortCh)
	}
	g.mu.Unlock()
}
