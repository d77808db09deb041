package monitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

func testAgv(serial string) vda5050.AgvId {
	return vda5050.AgvId{Manufacturer: "acme", SerialNumber: serial}
}

func TestSessionOrderRebuildLeavesNoResidue(t *testing.T) {
	s := newSession(testAgv("A1"), nil)

	s.Fold(&vda5050.Order{
		OrderId: "o1",
		Nodes:   []vda5050.Node{{NodeId: "n1"}, {NodeId: "n2"}},
		Edges:   []vda5050.Edge{{EdgeId: "e1", StartNodeId: "n1", EndNodeId: "n2"}},
	})
	require.Contains(t, s.Graph().Nodes, "n1")

	s.Fold(&vda5050.Order{
		OrderId: "o2",
		Nodes:   []vda5050.Node{{NodeId: "n3"}},
	})

	g := s.Graph()
	assert.NotContains(t, g.Nodes, "n1", "previous order nodes are gone")
	assert.NotContains(t, g.Nodes, "n2")
	assert.Contains(t, g.Nodes, "n3")
	assert.Empty(t, g.Edges, "previous order edges are gone")
}

func TestSessionPositionFromStateAndVisualization(t *testing.T) {
	s := newSession(testAgv("A1"), nil)

	s.Fold(&vda5050.State{
		AgvPosition: &vda5050.AgvPosition{X: floatPtr(5), Y: floatPtr(3)},
	})
	snap := s.Snapshot()
	require.NotNil(t, snap.Position)
	assert.Equal(t, Position{X: 5, Y: -3}, *snap.Position)
	assert.Equal(t, Position{X: 5, Y: -3}, snap.Graph.Layout["robot_A1"])

	// Visualization updates the same pose.
	s.Fold(&vda5050.Visualization{
		AgvPosition: &vda5050.AgvPosition{X: floatPtr(6), Y: floatPtr(4)},
	})
	snap = s.Snapshot()
	assert.Equal(t, Position{X: 6, Y: -4}, *snap.Position)

	// Null coordinates keep the last valid pose.
	s.Fold(&vda5050.Visualization{
		AgvPosition: &vda5050.AgvPosition{X: nil, Y: floatPtr(9)},
	})
	snap = s.Snapshot()
	assert.Equal(t, Position{X: 6, Y: -4}, *snap.Position)
}

func TestSessionRobotLayoutSurvivesOrderRebuild(t *testing.T) {
	s := newSession(testAgv("A1"), nil)

	s.Fold(&vda5050.State{
		AgvPosition: &vda5050.AgvPosition{X: floatPtr(1), Y: floatPtr(2)},
	})
	s.Fold(&vda5050.Order{
		OrderId: "o1",
		Nodes:   []vda5050.Node{{NodeId: "n1"}},
	})

	g := s.Graph()
	assert.Equal(t, Position{X: 1, Y: -2}, g.Layout["robot_A1"],
		"known pose is re-seeded into the rebuilt graph")
}

func TestSessionBoundedInstantActionsHistory(t *testing.T) {
	s := newSession(testAgv("A1"), nil)

	for i := 0; i < historyLimit+50; i++ {
		s.Fold(&vda5050.InstantActions{
			Header:  vda5050.Header{HeaderId: uint32(i)},
			Actions: []vda5050.Action{{ActionType: "beep", ActionId: fmt.Sprintf("a%d", i)}},
		})
	}

	history := s.InstantActionsInfo()
	require.Len(t, history, historyLimit)
	assert.EqualValues(t, 50, history[0].HeaderId, "oldest entries were evicted")
	assert.EqualValues(t, historyLimit+49, history[len(history)-1].HeaderId)
}

func TestSessionBoundedOrderHistory(t *testing.T) {
	s := newSession(testAgv("A1"), nil)

	for i := 0; i < historyLimit+10; i++ {
		s.Fold(&vda5050.Order{OrderId: fmt.Sprintf("o%d", i)})
	}

	history := s.OrderHistory()
	require.Len(t, history, historyLimit)
	assert.Equal(t, "o10", history[0].OrderId)

	snap := s.Snapshot()
	require.NotNil(t, snap.OrderInfo)
	assert.Equal(t, fmt.Sprintf("o%d", historyLimit+9), snap.OrderInfo.OrderId,
		"the active order is always the latest")
}

func TestSessionNotifiesOnEveryFold(t *testing.T) {
	var changed int
	s := newSession(testAgv("A1"), func(*Session) { changed++ })

	s.Fold(&vda5050.Connection{ConnectionState: vda5050.ConnectionOnline})
	s.Fold(&vda5050.State{})
	s.Fold(&vda5050.Order{OrderId: "o1"})
	assert.Equal(t, 3, changed)

	assert.Equal(t, vda5050.ConnectionOnline, s.ConnectionState())
}
