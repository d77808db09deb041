package monitor

import (
	"sync"

	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// historyLimit bounds the per-session message histories. Older entries are
// evicted from the front.
const historyLimit = 100

// Session accumulates the state of a single vehicle from its message stream.
// Folds arrive from the single dispatch goroutine; snapshots may be taken
// from any goroutine.
type Session struct {
	mu sync.RWMutex

	identity vda5050.AgvId
	scheme   ColorScheme

	connectionInfo    *vda5050.Connection
	stateInfo         *vda5050.State
	visualizationInfo *vda5050.Visualization
	orderInfo         *vda5050.Order

	instantActionsInfo []*vda5050.InstantActions
	orderHistory       []*vda5050.Order

	position *Position
	graph    Graph

	onChange func(*Session)
}

// Snapshot is a point-in-time copy of a session, safe to serialize.
type Snapshot struct {
	Identity           vda5050.AgvId             `json:"identity"`
	ColorScheme        ColorScheme               `json:"colorScheme"`
	ConnectionInfo     *vda5050.Connection       `json:"connectionInfo,omitempty"`
	StateInfo          *vda5050.State            `json:"stateInfo,omitempty"`
	VisualizationInfo  *vda5050.Visualization    `json:"visualizationInfo,omitempty"`
	OrderInfo          *vda5050.Order            `json:"orderInfo,omitempty"`
	InstantActionsInfo []*vda5050.InstantActions `json:"instantActionsInfo"`
	Position           *Position                 `json:"position,omitempty"`
	Graph              Graph                     `json:"graph"`
}

func newSession(identity vda5050.AgvId, onChange func(*Session)) *Session {
	return &Session{
		identity: identity,
		scheme:   newColorScheme(),
		graph:    newGraph(),
		onChange: onChange,
	}
}

// Identity returns the vehicle this session belongs to.
func (s *Session) Identity() vda5050.AgvId {
	return s.identity
}

// ColorScheme returns the palette generated for this session.
func (s *Session) ColorScheme() ColorScheme {
	return s.scheme
}

// Fold applies one message to the session state. Unparsed payloads are
// ignored here; they were already logged and fanned out upstream.
func (s *Session) Fold(msg vda5050.Message) {
	s.mu.Lock()

	switch m := msg.(type) {
	case *vda5050.Connection:
		s.connectionInfo = m
	case *vda5050.State:
		s.stateInfo = m
		s.updatePosition(m.AgvPosition)
	case *vda5050.Visualization:
		s.visualizationInfo = m
		s.updatePosition(m.AgvPosition)
	case *vda5050.InstantActions:
		s.instantActionsInfo = appendBounded(s.instantActionsInfo, m, historyLimit)
	case *vda5050.Order:
		s.orderInfo = m
		s.orderHistory = appendBounded(s.orderHistory, m, historyLimit)
		s.graph = buildGraph(m, s.identity.SerialNumber, s.scheme, s.position)
	default:
		s.mu.Unlock()
		return
	}

	s.mu.Unlock()
	s.notify()
}

// updatePosition tracks the latest valid vehicle pose. Positions with a null
// x or y are skipped; the last valid pose stays.
func (s *Session) updatePosition(p *vda5050.AgvPosition) {
	if p == nil || p.X == nil || p.Y == nil {
		return
	}
	pos := renderPosition(*p.X, *p.Y)
	s.position = &pos
	s.graph.Layout[robotNodeKey(s.identity.SerialNumber)] = pos
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s)
	}
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Identity:           s.identity,
		ColorScheme:        s.scheme,
		ConnectionInfo:     s.connectionInfo,
		StateInfo:          s.stateInfo,
		VisualizationInfo:  s.visualizationInfo,
		OrderInfo:          s.orderInfo,
		InstantActionsInfo: append([]*vda5050.InstantActions(nil), s.instantActionsInfo...),
		Graph:              s.graph.clone(),
	}
	if s.position != nil {
		pos := *s.position
		snap.Position = &pos
	}
	return snap
}

// Graph returns a copy of the current view model.
func (s *Session) Graph() Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.clone()
}

// ConnectionState reports the vehicle's last announced connection state, or
// empty when no connection message was seen yet.
func (s *Session) ConnectionState() vda5050.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.connectionInfo == nil {
		return ""
	}
	return s.connectionInfo.ConnectionState
}

// OrderHistory returns a copy of the bounded order history.
func (s *Session) OrderHistory() []*vda5050.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*vda5050.Order(nil), s.orderHistory...)
}

// InstantActionsInfo returns a copy of the bounded instant-actions history.
func (s *Session) InstantActionsInfo() []*vda5050.InstantActions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*vda5050.InstantActions(nil), s.instantActionsInfo...)
}

// appendBounded appends item and drops the oldest entries beyond limit.
func appendBounded[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if len(list) > limit {
		list = append([]T(nil), list[len(list)-limit:]...)
	}
	return list
}
