package statusapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/ctrldash/internal/observability"
	"github.com/danmuck/ctrldash/internal/state"
	"github.com/danmuck/ctrldash/internal/telemetry"
	"github.com/danmuck/ctrldash/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	testlog.Start(t)
	s := New("127.0.0.1:0", state.NewStore(), Options{})

	rr := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "dashctl", body["service"])
}

func TestStatusReportsSnapshot(t *testing.T) {
	testlog.Start(t)
	store := state.NewStore()
	rec := telemetry.Record{ControllerType: "ps4", Axes: []float64{0.25, 0, 0, 0, -1, 0.5}}
	store.Replace(rec, telemetry.NewMapper().Map(rec), time.Now())
	store.SetConnection(state.Connection{ID: "c1", RemoteIP: "10.1.1.1", RemotePort: 5555})

	s := New("127.0.0.1:0", store, Options{Phase: func() string { return "CONNECTED" }})
	rr := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "CONNECTED", body.Phase)
	assert.Equal(t, string(state.StalenessActive), body.Staleness)
	assert.Equal(t, "ps4", body.Snapshot.Record.ControllerType)
	assert.Equal(t, 0.25, body.Snapshot.Controls.Steering)
	assert.Equal(t, 0.75, body.Snapshot.Controls.Gas)
	require.NotNil(t, body.Snapshot.Connection)
	assert.Equal(t, 5555, body.Snapshot.Connection.RemotePort)
}

func TestStatusWaitingWithoutPhase(t *testing.T) {
	testlog.Start(t)
	s := New("127.0.0.1:0", state.NewStore(), Options{})

	var body StatusResponse
	require.NoError(t, json.Unmarshal(get(t, s, "/status").Body.Bytes(), &body))
	assert.Equal(t, "unknown", body.Phase)
	assert.Equal(t, string(state.StalenessWaiting), body.Staleness)
	assert.Nil(t, body.Snapshot.Connection)
}

func TestMetricsEndpoint(t *testing.T) {
	testlog.Start(t)
	s := New("127.0.0.1:0", state.NewStore(), Options{})
	observability.RecordIngest("generic")

	rr := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ctrldash_ingest_records_total")
}

func TestUnknownRouteIs404(t *testing.T) {
	testlog.Start(t)
	s := New("127.0.0.1:0", state.NewStore(), Options{})
	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	s := New("127.0.0.1:0", state.NewStore(), Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeReportsListenFailure(t *testing.T) {
	testlog.Start(t)
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	s := New(busy.Addr().String(), state.NewStore(), Options{})
	assert.ErrorIs(t, s.Serve(context.Background()), ErrListen)
}
