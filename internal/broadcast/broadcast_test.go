package broadcast

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/live"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readStatus(t *testing.T, conn *websocket.Conn) live.Status {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var s live.Status
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestHubBroadcastsStatus(t *testing.T) {
	t.Parallel()
	hub, url := newHubServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), live.Status{RunID: "r1", Step: 2, Equity: decimal.NewFromInt(1_000_500)}))

	got := readStatus(t, conn)
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, 2, got.Step)
	assert.True(t, got.Equity.Equal(decimal.NewFromInt(1_000_500)))
}

func TestHubSendsLatestOnConnect(t *testing.T) {
	t.Parallel()
	hub, url := newHubServer(t)

	require.NoError(t, hub.Publish(context.Background(), live.Status{RunID: "r1", Step: 7}))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 7, readStatus(t, conn).Step)
}

func TestHubDropsClosedClients(t *testing.T) {
	t.Parallel()
	hub, url := newHubServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestClientListen(t *testing.T) {
	t.Parallel()
	hub, url := newHubServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan live.Status, 4)
	client := NewClient(url, zap.NewNop())
	done := make(chan error, 1)
	go func() {
		done <- client.Listen(ctx, func(s live.Status) { received <- s })
	}()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Publish(ctx, live.Status{RunID: "r2", Running: true, Date: "20220105"}))

	select {
	case s := <-received:
		assert.Equal(t, "r2", s.RunID)
		assert.Equal(t, "20220105", s.Date)
		assert.True(t, s.Running)
	case <-time.After(5 * time.Second):
		t.Fatal("no status received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
	assert.NoError(t, client.Close())
}

func TestClientGivesUpWithoutServer(t *testing.T) {
	t.Parallel()

	client := NewClient("ws://127.0.0.1:1/ws", zap.NewNop())
	client.reconnectDelay = time.Millisecond

	err := client.Listen(context.Background(), func(live.Status) {})
	assert.Error(t, err)
}

func TestNATSPublisherConnectFailure(t *testing.T) {
	t.Parallel()

	_, err := NewNATSPublisher("nats://127.0.0.1:1", "statarb.status")
	assert.Error(t, err)
}
