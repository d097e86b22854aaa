package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/report"
)

func newTestServer(t *testing.T) (*Server, *EventCollector, *httptest.Server) {
	t.Helper()
	c := NewEventCollector()
	s := NewServer("", c, NewDashboardData(), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
		ts.Close()
	})
	return s, c, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.ClientCount() == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestServer_Report(t *testing.T) {
	_, c, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/report")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	c.EmitRunStarted("run-1", "rs")
	c.EmitRunCompleted("run-1", "rs",
		report.Aggregate([]assertion.Outcome{passing(), failing()}),
		time.Millisecond)

	resp, err = http.Get(ts.URL + "/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var r report.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	assert.Equal(t, report.Totals{Run: 2, Passed: 1, Failed: 1}, r.Totals)
}

func TestServer_Dashboard(t *testing.T) {
	_, c, ts := newTestServer(t)
	c.EmitRunStarted("run-7", "chrome-extension")

	resp, err := http.Get(ts.URL + "/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "run-7", snap["run_id"])
	assert.Equal(t, StatusRunning, snap["status"])
}

func TestServer_WebSocketStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, c, ts := newTestServer(t)
	c.EmitRunStarted("run-1", "rs")

	conn := dial(t, ts)

	initial := readMessage(t, conn)
	assert.Equal(t, "dashboard", initial.Type)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(initial.Data, &snap))
	assert.Equal(t, "run-1", snap["run_id"])

	waitForClients(t, s, 1)
	c.EmitOutcome("run-1", "rs", failing())

	msg := readMessage(t, conn)
	assert.Equal(t, "event", msg.Type)
	var event Event
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, EventOutcome, event.Type)
	require.NotNil(t, event.Outcome)
	assert.Equal(t, "css.themes", event.Outcome.AssertionID)

	require.NoError(t, conn.Close())
	waitForClients(t, s, 0)

	require.NoError(t, s.Stop(context.Background()))
	ts.Close()
}

func TestServer_StopDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, _, ts := newTestServer(t)
	conn := dial(t, ts)
	defer conn.Close()
	readMessage(t, conn)
	waitForClients(t, s, 1)

	require.NoError(t, s.Stop(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	waitForClients(t, s, 0)
	ts.Close()
}

func TestServer_BroadcastToMultipleClients(t *testing.T) {
	s, c, ts := newTestServer(t)

	a := dial(t, ts)
	defer a.Close()
	b := dial(t, ts)
	defer b.Close()
	readMessage(t, a)
	readMessage(t, b)
	waitForClients(t, s, 2)

	c.EmitRunStarted("run-9", "rs")

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		var event Event
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, "run-9", event.RunID)
	}
}

func TestServer_UpgradeRequired(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StartAndCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	s := NewServer(addr, NewEventCollector(), NewDashboardData(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	s := NewServer(listener.Addr().String(),
		NewEventCollector(), NewDashboardData(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = s.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor server")
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := NewServer(":0", NewEventCollector(), NewDashboardData(), nil)
	assert.NoError(t, s.Stop(context.Background()))
}
