package comm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/perfworks/evbench/internal/coord"
)

// httpComm implements Communicator against a coordd rendezvous daemon.
// Barrier and broadcast waits are long-polled HTTP requests, so the client
// carries no timeout of its own; cancellation comes from the context.
type httpComm struct {
	base   string
	group  string
	rank   int
	size   int
	client *http.Client

	epoch uint64
	seq   uint64
}

// Dial joins the named group on the daemon at baseURL and returns the
// communicator for this rank.
func Dial(ctx context.Context, baseURL, group string, rank, size int) (Communicator, error) {
	c := &httpComm{
		base:   baseURL,
		group:  group,
		rank:   rank,
		size:   size,
		client: &http.Client{},
	}
	body, _ := json.Marshal(coord.JoinRequest{Rank: rank, Size: size})
	resp, err := c.do(ctx, http.MethodPost, c.url("join"), contentTypeJSON, body)
	if err != nil {
		return nil, fmt.Errorf("join group %q: %w", group, err)
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return nil, fmt.Errorf("join group %q: %w", group, err)
	}
	return c, nil
}

const contentTypeJSON = "application/json"

func (c *httpComm) Rank() int            { return c.rank }
func (c *httpComm) Size() int            { return c.size }
func (c *httpComm) WallClock() time.Time { return time.Now() }

func (c *httpComm) url(parts ...string) string {
	u := fmt.Sprintf("%s/v1/groups/%s", c.base, c.group)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

func (c *httpComm) do(ctx context.Context, method, url, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.client.Do(req)
}

// checkStatus folds non-2xx responses into errors, mapping 410 Gone onto
// ErrAborted with the daemon's reason.
func (c *httpComm) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(resp.Body)
	var er struct {
		Error string `json:"error"`
	}
	reason := string(data)
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		reason = er.Error
	}
	if resp.StatusCode == http.StatusGone {
		return fmt.Errorf("%w: %s", ErrAborted, reason)
	}
	return fmt.Errorf("coordinator returned status %d: %s", resp.StatusCode, reason)
}

func (c *httpComm) Barrier(ctx context.Context) error {
	epoch := c.epoch
	c.epoch++
	body, _ := json.Marshal(coord.BarrierRequest{Rank: c.rank, Epoch: epoch})
	resp, err := c.do(ctx, http.MethodPost, c.url("barrier"), contentTypeJSON, body)
	if err != nil {
		return fmt.Errorf("barrier %d: %w", epoch, err)
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("barrier %d: %w", epoch, err)
	}
	return nil
}

func (c *httpComm) Broadcast(ctx context.Context, buf []byte, root int) error {
	seq := c.seq
	c.seq++
	slot := fmt.Sprintf("bcast/%d", seq)

	if c.rank == root {
		resp, err := c.do(ctx, http.MethodPut, c.url(slot), "application/octet-stream", buf)
		if err != nil {
			return fmt.Errorf("broadcast %d: %w", seq, err)
		}
		defer resp.Body.Close()
		if err := c.checkStatus(resp); err != nil {
			return fmt.Errorf("broadcast %d: %w", seq, err)
		}
		return nil
	}

	resp, err := c.do(ctx, http.MethodGet, c.url(slot), "", nil)
	if err != nil {
		return fmt.Errorf("broadcast %d: %w", seq, err)
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("broadcast %d: %w", seq, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("broadcast %d: read payload: %w", seq, err)
	}
	if len(data) != len(buf) {
		return fmt.Errorf("broadcast %d size mismatch: root sent %d bytes, rank %d expects %d",
			seq, len(data), c.rank, len(buf))
	}
	copy(buf, data)
	return nil
}

func (c *httpComm) Abort(reason string) {
	body, _ := json.Marshal(coord.AbortRequest{Rank: c.rank, Reason: reason})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.do(ctx, http.MethodPost, c.url("abort"), contentTypeJSON, body)
	if err != nil {
		return // best effort; the process is going down anyway
	}
	resp.Body.Close()
}
