package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

type apiFixture struct {
	api      *API
	registry *Registry
	msgLog   *MessageLog
	server   *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	registry := NewRegistry(nil)
	msgLog := NewMessageLog()
	api := NewAPI(registry, msgLog, NewMetrics(), nil, log.NewNopLogger())

	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	return &apiFixture{api: api, registry: registry, msgLog: msgLog, server: server}
}

func (f *apiFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPIHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Without a broker connection the monitor is alive but not ready.
	resp = f.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIVehicleLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/vehicles", `{"manufacturer":"acme","serialNumber":"A1"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decodeBody[Snapshot](t, resp)
	assert.Equal(t, "acme/A1", snap.Identity.Key())

	// Adding the same vehicle again is a no-op.
	resp = f.do(t, http.MethodPost, "/api/v1/vehicles", `{"manufacturer":"acme","serialNumber":"A1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, f.registry.Len())

	resp = f.get(t, "/api/v1/vehicles")
	vehicles := decodeBody[[]VehicleSummary](t, resp)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "acme", vehicles[0].Identity.Manufacturer)

	resp = f.get(t, "/api/v1/vehicles/acme/A1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/api/v1/vehicles/acme/A1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/v1/vehicles/acme/A1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/api/v1/vehicles/acme/A1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIAddVehicleValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/vehicles", `{"manufacturer":"acme"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/v1/vehicles", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIMergedGraph(t *testing.T) {
	f := newAPIFixture(t)

	a1, _ := f.registry.Ensure(testAgv("A1"))
	a1.Fold(&vda5050.Order{OrderId: "o1", Nodes: []vda5050.Node{{NodeId: "a1-n1"}}})
	a2, _ := f.registry.Ensure(testAgv("A2"))
	a2.Fold(&vda5050.Order{OrderId: "o2", Nodes: []vda5050.Node{{NodeId: "a2-n1"}}})

	resp := f.get(t, "/api/v1/graph")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	merged := decodeBody[Graph](t, resp)

	assert.Contains(t, merged.Nodes, "a1-n1")
	assert.Contains(t, merged.Nodes, "a2-n1")
	assert.Contains(t, merged.Nodes, "robot_A1")
	assert.Contains(t, merged.Nodes, "robot_A2")
}

func TestAPIMessages(t *testing.T) {
	f := newAPIFixture(t)
	f.msgLog.Add(Envelope{Topic: "uagv/v2/acme/A1/state", Category: vda5050.CategoryState, Raw: "{}"})

	resp := f.get(t, "/api/v1/messages")
	entries := decodeBody[[]LoggedMessage](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "uagv/v2/acme/A1/state", entries[0].Topic)

	resp = f.do(t, http.MethodDelete, "/api/v1/messages", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 0, f.msgLog.Len())
}

func TestAPITransportStatusWithoutClient(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.get(t, "/api/v1/status")
	status := decodeBody[TransportStatus](t, resp)
	assert.Equal(t, "offline", string(status.State))
}
