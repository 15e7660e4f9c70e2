// Package coord implements the rendezvous daemon backing the collective
// primitives of a multi-process benchmark group: join, barrier, broadcast
// and abort, served over HTTP with long-polling waits.
package coord

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
)

// JoinRequest registers one rank with a group.
type JoinRequest struct {
	Rank int `json:"rank"`
	Size int `json:"size"`
}

// BarrierRequest announces a rank's arrival at a barrier epoch.
type BarrierRequest struct {
	Rank  int    `json:"rank"`
	Epoch uint64 `json:"epoch"`
}

// AbortRequest marks a group as failed.
type AbortRequest struct {
	Rank   int    `json:"rank"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Coordinator holds every group known to the daemon.
type Coordinator struct {
	mu     sync.Mutex
	groups map[string]*group
	log    *slog.Logger
}

type group struct {
	size int

	mu       sync.Mutex
	members  map[int]bool
	barriers map[uint64]*barrier
	bcasts   map[uint64]*bcast
	aborted  bool
	reason   string
	abortCh  chan struct{}
}

type barrier struct {
	arrived map[int]bool
	done    chan struct{}
}

type bcast struct {
	data  []byte
	ready chan struct{}
}

// New creates an empty coordinator.
func New(log *slog.Logger) *Coordinator {
	return &Coordinator{groups: make(map[string]*group), log: log}
}

// Register binds the coordinator's routes on e.
func (c *Coordinator) Register(e *echo.Echo) {
	e.POST("/v1/groups/:group/join", c.join)
	e.POST("/v1/groups/:group/barrier", c.barrier)
	e.PUT("/v1/groups/:group/bcast/:seq", c.publish)
	e.GET("/v1/groups/:group/bcast/:seq", c.receive)
	e.POST("/v1/groups/:group/abort", c.abort)
}

func (c *Coordinator) group(name string, size int) (*group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[name]
	if !ok {
		g = &group{
			size:     size,
			members:  make(map[int]bool),
			barriers: make(map[uint64]*barrier),
			bcasts:   make(map[uint64]*bcast),
			abortCh:  make(chan struct{}),
		}
		c.groups[name] = g
	}
	if size > 0 && g.size != size {
		return nil, fmt.Errorf("group size mismatch: registered %d, got %d", g.size, size)
	}
	return g, nil
}

// lookup returns an existing group only.
func (c *Coordinator) lookup(name string) (*group, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[name]
	return g, ok
}

func (c *Coordinator) join(ec echo.Context) error {
	var req JoinRequest
	if err := ec.Bind(&req); err != nil {
		return ec.JSON(http.StatusBadRequest, errorResponse{Error: "malformed join request"})
	}
	if req.Size <= 0 || req.Rank < 0 || req.Rank >= req.Size {
		return ec.JSON(http.StatusBadRequest,
			errorResponse{Error: fmt.Sprintf("invalid rank %d for size %d", req.Rank, req.Size)})
	}
	g, err := c.group(ec.Param("group"), req.Size)
	if err != nil {
		return ec.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted {
		return ec.JSON(http.StatusGone, errorResponse{Error: g.reason})
	}
	if g.members[req.Rank] {
		return ec.JSON(http.StatusConflict,
			errorResponse{Error: fmt.Sprintf("rank %d already joined", req.Rank)})
	}
	g.members[req.Rank] = true
	c.log.Info("rank joined", "group", ec.Param("group"), "rank", req.Rank, "size", req.Size)
	return ec.NoContent(http.StatusOK)
}

func (c *Coordinator) barrier(ec echo.Context) error {
	var req BarrierRequest
	if err := ec.Bind(&req); err != nil {
		return ec.JSON(http.StatusBadRequest, errorResponse{Error: "malformed barrier request"})
	}
	g, ok := c.lookup(ec.Param("group"))
	if !ok {
		return ec.JSON(http.StatusNotFound, errorResponse{Error: "unknown group"})
	}

	g.mu.Lock()
	if g.aborted {
		g.mu.Unlock()
		return ec.JSON(http.StatusGone, errorResponse{Error: g.reason})
	}
	b, okB := g.barriers[req.Epoch]
	if !okB {
		b = &barrier{arrived: make(map[int]bool), done: make(chan struct{})}
		g.barriers[req.Epoch] = b
	}
	b.arrived[req.Rank] = true
	if len(b.arrived) == g.size {
		close(b.done)
		delete(g.barriers, req.Epoch)
	}
	g.mu.Unlock()

	select {
	case <-b.done:
		return ec.NoContent(http.StatusOK)
	case <-g.abortCh:
		return ec.JSON(http.StatusGone, errorResponse{Error: g.reason})
	case <-ec.Request().Context().Done():
		return ec.NoContent(http.StatusRequestTimeout)
	}
}

func (c *Coordinator) publish(ec echo.Context) error {
	g, ok := c.lookup(ec.Param("group"))
	if !ok {
		return ec.JSON(http.StatusNotFound, errorResponse{Error: "unknown group"})
	}
	seq, err := strconv.ParseUint(ec.Param("seq"), 10, 64)
	if err != nil {
		return ec.JSON(http.StatusBadRequest, errorResponse{Error: "malformed sequence number"})
	}
	data, err := io.ReadAll(ec.Request().Body)
	if err != nil {
		return ec.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable payload"})
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted {
		return ec.JSON(http.StatusGone, errorResponse{Error: g.reason})
	}
	slot, okS := g.bcasts[seq]
	if !okS {
		slot = &bcast{ready: make(chan struct{})}
		g.bcasts[seq] = slot
	}
	select {
	case <-slot.ready:
		return ec.JSON(http.StatusConflict,
			errorResponse{Error: fmt.Sprintf("broadcast %d already published", seq)})
	default:
	}
	slot.data = data
	close(slot.ready)
	return ec.NoContent(http.StatusOK)
}

func (c *Coordinator) receive(ec echo.Context) error {
	g, ok := c.lookup(ec.Param("group"))
	if !ok {
		return ec.JSON(http.StatusNotFound, errorResponse{Error: "unknown group"})
	}
	seq, err := strconv.ParseUint(ec.Param("seq"), 10, 64)
	if err != nil {
		return ec.JSON(http.StatusBadRequest, errorResponse{Error: "malformed sequence number"})
	}

	g.mu.Lock()
	if g.aborted {
		g.mu.Unlock()
		return ec.JSON(http.StatusGone, errorResponse{Error: g.reason})
	}
	slot, okS := g.bcasts[seq]
	if !okS {
		slot = &bcast{ready: make(chan struct{})}
		g.bcasts[seq] = slot
	}
	g.mu.Unlock()

	select {
	case <-slot.ready:
		return ec.Blob(http.StatusOK, echo.MIMEOctetStream, slot.data)
	case <-g.abortCh:
		return ec.JSON(http.StatusGone, errorResponse{Error: g.reason})
	case <-ec.Request().Context().Done():
		return ec.NoContent(http.StatusRequestTimeout)
	}
}

func (c *Coordinator) abort(ec echo.Context) error {
	var req AbortRequest
	if err := ec.Bind(&req); err != nil {
		return ec.JSON(http.StatusBadRequest, errorResponse{Error: "malformed abort request"})
	}
	g, ok := c.lookup(ec.Param("group"))
	if !ok {
		return ec.JSON(http.StatusNotFound, errorResponse{Error: "unknown group"})
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.aborted {
		g.aborted = true
		g.reason = req.Reason
		close(g.abortCh)
		c.log.Warn("group aborted", "group", ec.Param("group"), "rank", req.Rank, "reason", req.Reason)
	}
	return ec.NoContent(http.StatusOK)
}
