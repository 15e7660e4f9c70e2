package comm

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfworks/evbench/internal/coord"
)

func newTestDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord.New(log).Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dialGroup(t *testing.T, url string, n int) []Communicator {
	t.Helper()
	comms := make([]Communicator, n)
	var wg sync.WaitGroup
	for rank := 0; rank < n; rank++ {
		rank := rank
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := Dial(context.Background(), url, "testgroup", rank, n)
			require.NoError(t, err)
			comms[rank] = c
		}()
	}
	wg.Wait()
	return comms
}

func TestDial_RejectsDuplicateRank(t *testing.T) {
	srv := newTestDaemon(t)

	_, err := Dial(context.Background(), srv.URL, "g", 0, 2)
	require.NoError(t, err)
	_, err = Dial(context.Background(), srv.URL, "g", 0, 2)
	assert.Error(t, err)
}

func TestDial_RejectsSizeMismatch(t *testing.T) {
	srv := newTestDaemon(t)

	_, err := Dial(context.Background(), srv.URL, "g", 0, 2)
	require.NoError(t, err)
	_, err = Dial(context.Background(), srv.URL, "g", 1, 3)
	assert.Error(t, err)
}

func TestHTTPComm_BarrierReleasesAllRanks(t *testing.T) {
	srv := newTestDaemon(t)
	comms := dialGroup(t, srv.URL, 3)

	var wg sync.WaitGroup
	for _, c := range comms {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, c.Barrier(context.Background()))
			require.NoError(t, c.Barrier(context.Background()))
		}()
	}
	wg.Wait()
}

func TestHTTPComm_BroadcastDeliversRootBytes(t *testing.T) {
	srv := newTestDaemon(t)
	const n = 3
	comms := dialGroup(t, srv.URL, n)
	payload := []byte("run-descriptor-bytes-0123456789")

	results := make([][]byte, n)
	var wg sync.WaitGroup
	for rank, c := range comms {
		rank, c := rank, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, len(payload))
			if rank == 0 {
				copy(buf, payload)
			}
			require.NoError(t, c.Broadcast(context.Background(), buf, 0))
			results[rank] = buf
		}()
	}
	wg.Wait()

	for rank := 0; rank < n; rank++ {
		assert.Equal(t, payload, results[rank], "rank %d", rank)
	}
}

func TestHTTPComm_AbortUnblocksBarrier(t *testing.T) {
	srv := newTestDaemon(t)
	comms := dialGroup(t, srv.URL, 2)

	errCh := make(chan error, 1)
	go func() {
		errCh <- comms[0].Barrier(context.Background())
	}()

	comms[1].Abort("connection to store lost")

	err := <-errCh
	require.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "connection to store lost")
}

func TestHTTPComm_AbortUnblocksBroadcastReceiver(t *testing.T) {
	srv := newTestDaemon(t)
	comms := dialGroup(t, srv.URL, 2)

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		errCh <- comms[1].Broadcast(context.Background(), buf, 0)
	}()

	comms[0].Abort("root failed")
	assert.ErrorIs(t, <-errCh, ErrAborted)
}

func TestHTTPComm_BroadcastSizeMismatch(t *testing.T) {
	srv := newTestDaemon(t)
	comms := dialGroup(t, srv.URL, 2)

	errCh := make(chan error, 1)
	go func() {
		errCh <- comms[1].Broadcast(context.Background(), make([]byte, 8), 0)
	}()

	require.NoError(t, comms[0].Broadcast(context.Background(), make([]byte, 4), 0))
	assert.Error(t, <-errCh)
}
