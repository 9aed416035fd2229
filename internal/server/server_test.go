package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recall/internal/command"
	"recall/internal/metrics"
	"recall/internal/server"
	"recall/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	env := testutil.NewEnv(t, nil)
	m := metrics.New()
	d := command.New(env.Service, nil, nil, m)
	ts := httptest.NewServer(server.New(d, m, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func dial(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/commands"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req string) command.Response {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(req)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var resp command.Response
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &resp), string(raw))
	return resp
}

func TestServer_Commands(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts, nil)

	signup := roundTrip(t, conn, `{"id":"1","command":"signup","payload":{"email":"ada@example.com","name":"Ada","password":"pw-123456"}}`)
	require.NotNil(t, signup.Result)
	assert.Equal(t, "1", signup.ID)
	assert.True(t, signup.Result.Success)
	token, _ := signup.Result.Fields["token"].(string)
	require.NotEmpty(t, token)

	areas := roundTrip(t, conn, `{"id":"2","command":"get_areas","token":"`+token+`"}`)
	require.NotNil(t, areas.Result)
	assert.True(t, areas.Result.Success)

	unknown := roundTrip(t, conn, `{"id":"3","command":"format_disk"}`)
	assert.Equal(t, "3", unknown.ID)
	assert.Nil(t, unknown.Result)
	assert.Contains(t, unknown.Error, "unknown command")
}

func TestServer_RejectedEnvelopeOnTheWire(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"bad-token","command":"get_areas","token":"nope"}`)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "rejected_frame", raw)
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	ts, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/commands"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	dial(t, ts, http.Header{"Origin": {"http://localhost:3000"}})
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts, nil)
	roundTrip(t, conn, `{"command":"validate_token","token":"x"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `recall_commands_total{command="validate_token",outcome="ok"} 1`)
	assert.Contains(t, string(body), "recall_open_connections 1")
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	srv := server.New(command.New(env.Service, nil, nil, nil), nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/commands"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "open connections are closed on shutdown")
}

func TestCheckLoopback(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:7317", false},
		{"[::1]:7317", false},
		{"localhost:80", false},
		{"0.0.0.0:7317", true},
		{":7317", true},
		{"192.168.1.5:7317", true},
		{"no-port", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := server.CheckLoopback(tt.addr)
			assert.Equal(t, tt.wantErr, err != nil, "CheckLoopback(%q) = %v", tt.addr, err)
		})
	}
}
