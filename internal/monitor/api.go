package monitor

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/mqtt"
	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// API serves the monitor's HTTP surface: health endpoints, Prometheus
// metrics and the JSON view of the session layer.
type API struct {
	registry *Registry
	msgLog   *MessageLog
	metrics  *Metrics
	client   mqtt.Client
	log      log.Logger
}

func NewAPI(registry *Registry, msgLog *MessageLog, metrics *Metrics, client mqtt.Client, logger log.Logger) *API {
	return &API{
		registry: registry,
		msgLog:   msgLog,
		metrics:  metrics,
		client:   client,
		log:      logger,
	}
}

// VehicleSummary is one row of the vehicle listing.
type VehicleSummary struct {
	Identity        vda5050.AgvId           `json:"identity"`
	ConnectionState vda5050.ConnectionState `json:"connectionState"`
	Position        *Position               `json:"position,omitempty"`
}

// TransportStatus describes the shared broker connection.
type TransportStatus struct {
	State             mqtt.ConnState `json:"state"`
	SubscribedTopics  []string       `json:"subscribedTopics"`
	ReconnectAttempts int            `json:"reconnectAttempts"`
}

type addVehicleRequest struct {
	Manufacturer string `json:"manufacturer"`
	SerialNumber string `json:"serialNumber"`
}

// Routes builds the HTTP router.
func (a *API) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReadyz).Methods(http.MethodGet)
	r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/vehicles", a.handleListVehicles).Methods(http.MethodGet)
	api.HandleFunc("/vehicles", a.handleAddVehicle).Methods(http.MethodPost)
	api.HandleFunc("/vehicles/{manufacturer}/{serialNumber}", a.handleGetVehicle).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{manufacturer}/{serialNumber}", a.handleRemoveVehicle).Methods(http.MethodDelete)
	api.HandleFunc("/graph", a.handleMergedGraph).Methods(http.MethodGet)
	api.HandleFunc("/messages", a.handleListMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages", a.handleClearMessages).Methods(http.MethodDelete)

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReadyz reports ready only while the broker connection is up: without
// it the session layer serves stale state.
func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.client != nil && a.client.State() == mqtt.StateConnected {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return
	}
	http.Error(w, "broker connection is down", http.StatusServiceUnavailable)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := TransportStatus{State: mqtt.StateOffline}
	if a.client != nil {
		status = TransportStatus{
			State:             a.client.State(),
			SubscribedTopics:  a.client.SubscribedTopics(),
			ReconnectAttempts: a.client.ReconnectAttempts(),
		}
	}
	a.writeJSON(w, http.StatusOK, status)
}

func (a *API) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	sessions := a.registry.List()
	out := make([]VehicleSummary, 0, len(sessions))
	for _, sess := range sessions {
		snap := sess.Snapshot()
		out = append(out, VehicleSummary{
			Identity:        snap.Identity,
			ConnectionState: sess.ConnectionState(),
			Position:        snap.Position,
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}

// handleAddVehicle registers a session ahead of any connection message, the
// manual-subscribe path. Re-adding an existing vehicle is a no-op.
func (a *API) handleAddVehicle(w http.ResponseWriter, r *http.Request) {
	var req addVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Manufacturer == "" || req.SerialNumber == "" {
		http.Error(w, "manufacturer and serialNumber are required", http.StatusBadRequest)
		return
	}

	id := vda5050.AgvId{Manufacturer: req.Manufacturer, SerialNumber: req.SerialNumber}
	sess, created := a.registry.Ensure(id)
	a.metrics.Sessions.Set(float64(a.registry.Len()))

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		a.log.Info("Vehicle session added via API", "vehicle", id.Key())
	}
	a.writeJSON(w, status, sess.Snapshot())
}

func (a *API) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.registry.Get(a.vehicleID(r))
	if !ok {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	a.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (a *API) handleRemoveVehicle(w http.ResponseWriter, r *http.Request) {
	id := a.vehicleID(r)
	if !a.registry.Remove(id) {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	a.metrics.Sessions.Set(float64(a.registry.Len()))
	a.log.Info("Vehicle session removed via API", "vehicle", id.Key())
	w.WriteHeader(http.StatusNoContent)
}

// handleMergedGraph merges all per-vehicle graphs into one view. Node keys
// contain the serial number, so collisions only happen when two vehicles
// genuinely share order node ids.
func (a *API) handleMergedGraph(w http.ResponseWriter, r *http.Request) {
	merged := newGraph()
	for _, sess := range a.registry.List() {
		g := sess.Graph()
		for k, v := range g.Nodes {
			merged.Nodes[k] = v
		}
		for k, v := range g.Edges {
			merged.Edges[k] = v
		}
		for k, v := range g.Layout {
			merged.Layout[k] = v
		}
	}
	a.writeJSON(w, http.StatusOK, merged)
}

func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.msgLog.List())
}

func (a *API) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	a.msgLog.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) vehicleID(r *http.Request) vda5050.AgvId {
	vars := mux.Vars(r)
	return vda5050.AgvId{
		Manufacturer: vars["manufacturer"],
		SerialNumber: vars["serialNumber"],
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error(err, "Failed to encode response")
	}
}
