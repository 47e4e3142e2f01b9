package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/projection"
	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
	"github.com/litescript/ls-globe/internal/state"
)

type fakeCommander struct {
	mu      sync.Mutex
	visitor *geo.Point
	clears  int
}

func (f *fakeCommander) SetVisitorLocation(lon, lat float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visitor = &geo.Point{Lon: lon, Lat: lat}
}

func (f *fakeCommander) ClearVisitorLocation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visitor = nil
	f.clears++
}

type fakeState struct {
	snap state.Snapshot
}

func (f fakeState) Snapshot() state.Snapshot { return f.snap }

func setupApp(snap state.Snapshot) (*fakeCommander, *Dependencies) {
	cmd := &fakeCommander{}
	return cmd, &Dependencies{Commands: cmd, State: fakeState{snap: snap}, Version: "test"}
}

func testFrame() *scene.Frame {
	visitor := geo.Point{Lon: 10, Lat: 10}
	f := scene.NewBuilder(projection.DefaultView()).Build(scene.Input{
		Tick:    12,
		Routes:  scene.DefaultRoutes(scene.DefaultPhaseSpacing),
		Visitor: &visitor,
	})
	return &f
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r).Decode(v))
}

func TestHealth(t *testing.T) {
	_, deps := setupApp(state.Snapshot{})
	app := NewApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body map[string]string
	decode(t, resp.Body, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestFrame_NotReady(t *testing.T) {
	_, deps := setupApp(state.Snapshot{})
	app := NewApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/frame", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	var apiErr APIError
	decode(t, resp.Body, &apiErr)
	assert.Equal(t, "unavailable", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestFrame(t *testing.T) {
	f := testFrame()
	_, deps := setupApp(state.Snapshot{Frame: f})
	app := NewApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/frame", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var out scene.FrameExport
	decode(t, resp.Body, &out)
	assert.Equal(t, uint64(12), out.Tick)
	assert.Len(t, out.Routes, len(f.Routes))
	require.NotNil(t, out.Visitor)
	assert.Equal(t, 165.0, out.View.Radius)
}

func TestStatus(t *testing.T) {
	_, deps := setupApp(state.Snapshot{
		Frame:         testFrame(),
		Frames:        40,
		RotationState: rotation.StateDecaying,
		AvgBuildTime:  250 * time.Microsecond,
		Land:          state.LandStatus{Source: "http", Rings: 5, Fallback: true},
	})
	app := NewApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/status", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Frames        uint64           `json:"frames"`
		RotationState string           `json:"rotation_state"`
		AvgBuildUS    int64            `json:"avg_build_us"`
		Land          state.LandStatus `json:"land"`
		Visitor       bool             `json:"visitor_visible"`
	}
	decode(t, resp.Body, &body)
	assert.Equal(t, uint64(40), body.Frames)
	assert.Equal(t, "decaying", body.RotationState)
	assert.Equal(t, int64(250), body.AvgBuildUS)
	assert.True(t, body.Land.Fallback)
	assert.True(t, body.Visitor)
}

func TestEvents(t *testing.T) {
	events := make([]state.Event, 30)
	for i := range events {
		events[i] = state.Event{Type: state.EventRouteRise, Route: string(rune('A' + i%26))}
	}
	_, deps := setupApp(state.Snapshot{Events: events})
	app := NewApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/events?limit=5", nil), -1)
	require.NoError(t, err)
	var got []state.Event
	decode(t, resp.Body, &got)
	require.Len(t, got, 5)
	assert.Equal(t, events[25].Route, got[0].Route)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/events", nil), -1)
	require.NoError(t, err)
	decode(t, resp.Body, &got)
	assert.Len(t, got, 20)
}

func TestEvents_Empty(t *testing.T) {
	_, deps := setupApp(state.Snapshot{})
	app := NewApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/events", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", string(body))
}

func postVisitor(t *testing.T, deps *Dependencies, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/visitor", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := NewApp(deps).Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestSetVisitor(t *testing.T) {
	cmd, deps := setupApp(state.Snapshot{})

	assert.Equal(t, 202, postVisitor(t, deps, `{"lon": -3.7, "lat": 40.4}`))
	require.NotNil(t, cmd.visitor)
	assert.Equal(t, geo.Point{Lon: -3.7, Lat: 40.4}, *cmd.visitor)

	// Latitude is clamped, longitude wrapped.
	assert.Equal(t, 202, postVisitor(t, deps, `{"lon": 190, "lat": 95}`))
	assert.InDelta(t, -170, cmd.visitor.Lon, 1e-9)
	assert.Equal(t, 90.0, cmd.visitor.Lat)
}

func TestSetVisitor_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing lat", `{"lon": 1}`},
		{"not json", `lon=1&lat=2`},
		{"wrong type", `{"lon": "east", "lat": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, deps := setupApp(state.Snapshot{})
			assert.Equal(t, 400, postVisitor(t, deps, tt.body))
			assert.Nil(t, cmd.visitor)
		})
	}
}

func TestClearVisitor(t *testing.T) {
	cmd, deps := setupApp(state.Snapshot{})
	cmd.SetVisitorLocation(1, 2)

	resp, err := NewApp(deps).Test(httptest.NewRequest("DELETE", "/v1/visitor", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)
	assert.Nil(t, cmd.visitor)
	assert.Equal(t, 1, cmd.clears)
}

func TestMetricsRoute(t *testing.T) {
	_, deps := setupApp(state.Snapshot{})
	app := NewApp(deps)

	_, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `path="/v1/health"`)
}

func TestUnknownRoute(t *testing.T) {
	_, deps := setupApp(state.Snapshot{})
	app := NewApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/nope/42", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	var apiErr APIError
	decode(t, resp.Body, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "no route for GET /v1/nope/42", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `path="unmatched",status="404"`)
	assert.NotContains(t, string(body), `path="/v1/nope/42"`)
}
