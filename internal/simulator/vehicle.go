package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/mqtt"
	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

const (
	stateInterval         = time.Second
	visualizationInterval = 100 * time.Millisecond
)

// Vehicle is one simulated AGV with its own broker connection. The dedicated
// connection carries the vehicle's last-will OFFLINE message, exactly like a
// real VDA5050 participant.
type Vehicle struct {
	id     vda5050.AgvId
	topics *vda5050.TopicBuilder
	client mqtt.Client
	log    log.Logger
	rng    *rand.Rand
	speed  float64
	mapId  string

	mu        sync.Mutex
	headerIds map[vda5050.Category]uint32
	order     *vda5050.Order
	targetIdx int
	x, y      float64
	theta     float64
	driving   bool
	paused    bool
	battery   float64
}

// NewVehicle creates a simulated vehicle. base is the shared transport
// configuration; the vehicle derives its own client id and last will from it.
func NewVehicle(id vda5050.AgvId, topics *vda5050.TopicBuilder, base *mqtt.ClientConfig, speed float64, mapId string, seed int64) (*Vehicle, error) {
	v := &Vehicle{
		id:        id,
		topics:    topics,
		log:       log.WithName("vehicle").WithValues("serialNumber", id.SerialNumber),
		rng:       rand.New(rand.NewSource(seed)),
		speed:     speed,
		mapId:     mapId,
		headerIds: map[vda5050.Category]uint32{},
		battery:   100,
	}

	willPayload, err := json.Marshal(&vda5050.Connection{
		Header:          v.header(vda5050.CategoryConnection),
		ConnectionState: vda5050.ConnectionBroken,
	})
	if err != nil {
		return nil, err
	}

	cfg := *base
	cfg.ClientID = fmt.Sprintf("fleetvis-sim-%s", id.SerialNumber)
	cfg.WillTopic = topics.Topic(id, vda5050.CategoryConnection)
	cfg.WillPayload = willPayload
	cfg.WillQoS = 1
	cfg.WillRetain = true

	client, err := mqtt.NewClient(&cfg, mqtt.Events{OnMessage: v.onMessage})
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", id.Key(), err)
	}
	v.client = client
	return v, nil
}

// Pause stops the drive loop; the vehicle keeps publishing its streams.
func (v *Vehicle) Pause() {
	v.mu.Lock()
	v.paused = true
	v.driving = false
	v.mu.Unlock()
}

// Resume continues the current order.
func (v *Vehicle) Resume() {
	v.mu.Lock()
	v.paused = false
	v.mu.Unlock()
}

// onMessage handles the vehicle's own instantActions topic: execution is
// acknowledged by echoing a fresh state message.
func (v *Vehicle) onMessage(topic string, payload []byte) {
	parsed, err := vda5050.ParseTopic(topic)
	if err != nil || parsed.Category != vda5050.CategoryInstantActions {
		return
	}

	msg, err := vda5050.Decode(parsed.Category, payload)
	if err != nil {
		v.log.Warn("Ignoring undecodable instant actions", "error", err.Error())
		return
	}

	ia := msg.(*vda5050.InstantActions)
	v.log.Info("Executing instant actions", "count", len(ia.Actions))

	// Acknowledge off the receive path; publishing inline would block the
	// client's inbound loop.
	go func() {
		if err := v.publishState(context.Background()); err != nil {
			v.log.Error(err, "Failed to acknowledge instant actions")
		}
	}()
}

// AssignOrder publishes order on the vehicle's order topic and starts
// driving it.
func (v *Vehicle) AssignOrder(ctx context.Context, order *vda5050.Order) error {
	v.mu.Lock()
	order.Header = v.header(vda5050.CategoryOrder)
	v.order = order
	v.targetIdx = 0
	if len(order.Nodes) > 0 && v.x == 0 && v.y == 0 {
		// First order: spawn at the route start.
		v.x = order.Nodes[0].NodePosition.X
		v.y = order.Nodes[0].NodePosition.Y
	}
	v.mu.Unlock()

	v.log.Info("Order assigned", "orderId", order.OrderId, "nodes", len(order.Nodes))
	return v.publish(ctx, vda5050.CategoryOrder, order, false)
}

// Run connects the vehicle and publishes its streams until ctx is cancelled.
func (v *Vehicle) Run(ctx context.Context) error {
	if err := v.client.Start(ctx); err != nil {
		return fmt.Errorf("vehicle %s: %w", v.id.Key(), err)
	}
	defer v.client.Disconnect(context.Background())

	if err := v.announce(ctx, vda5050.ConnectionOnline); err != nil {
		return err
	}

	actionsTopic := v.topics.Topic(v.id, vda5050.CategoryInstantActions)
	if err := v.client.Subscribe(ctx, 1, actionsTopic); err != nil {
		return fmt.Errorf("vehicle %s: %w", v.id.Key(), err)
	}
	// Graceful shutdown announces OFFLINE; the last will only covers crashes.
	defer v.announce(context.Background(), vda5050.ConnectionOffline)

	stateTicker := time.NewTicker(stateInterval)
	defer stateTicker.Stop()
	visTicker := time.NewTicker(visualizationInterval)
	defer visTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-visTicker.C:
			v.advance(visualizationInterval)
			if err := v.publishVisualization(ctx); err != nil {
				v.log.Error(err, "Failed to publish visualization")
			}
		case <-stateTicker.C:
			if err := v.publishState(ctx); err != nil {
				v.log.Error(err, "Failed to publish state")
			}
		}
	}
}

func (v *Vehicle) announce(ctx context.Context, state vda5050.ConnectionState) error {
	v.mu.Lock()
	msg := &vda5050.Connection{
		Header:          v.header(vda5050.CategoryConnection),
		ConnectionState: state,
	}
	v.mu.Unlock()
	// Retained so late subscribers immediately learn of the vehicle.
	return v.publish(ctx, vda5050.CategoryConnection, msg, true)
}

// advance moves the vehicle toward the next order node.
func (v *Vehicle) advance(dt time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.paused || v.order == nil || v.targetIdx >= len(v.order.Nodes) {
		v.driving = false
		return
	}

	target := v.order.Nodes[v.targetIdx].NodePosition
	dx := target.X - v.x
	dy := target.Y - v.y
	dist := math.Hypot(dx, dy)
	step := v.speed * dt.Seconds()

	if dist <= step {
		v.x = target.X
		v.y = target.Y
		v.targetIdx++
		v.driving = v.targetIdx < len(v.order.Nodes)
	} else {
		v.theta = math.Atan2(dy, dx)
		v.x += step * dx / dist
		v.y += step * dy / dist
		v.driving = true
	}

	v.battery -= (0.001 + 0.0005*v.rng.Float64()) * dt.Seconds()
	if v.battery < 5 {
		v.battery = 100
	}
}

func (v *Vehicle) publishVisualization(ctx context.Context) error {
	v.mu.Lock()
	msg := &vda5050.Visualization{
		Header:      v.header(vda5050.CategoryVisualization),
		AgvPosition: v.position(),
	}
	v.mu.Unlock()
	return v.publish(ctx, vda5050.CategoryVisualization, msg, false)
}

func (v *Vehicle) publishState(ctx context.Context) error {
	v.mu.Lock()
	msg := &vda5050.State{
		Header:        v.header(vda5050.CategoryState),
		OperatingMode: "AUTOMATIC",
		Driving:       v.driving,
		Paused:        v.paused,
		AgvPosition:   v.position(),
		BatteryState:  &vda5050.BatteryState{BatteryCharge: v.battery},
		NodeStates:    []vda5050.NodeState{},
		EdgeStates:    []vda5050.EdgeState{},
		Errors:        []vda5050.Error{},
	}
	if v.order != nil {
		msg.OrderId = v.order.OrderId
		if v.targetIdx > 0 {
			last := v.order.Nodes[v.targetIdx-1]
			msg.LastNodeId = last.NodeId
			msg.LastNodeSequenceId = last.SequenceId
		}
		for _, n := range v.order.Nodes[v.targetIdx:] {
			msg.NodeStates = append(msg.NodeStates, vda5050.NodeState{
				NodeId:     n.NodeId,
				SequenceId: n.SequenceId,
				Released:   n.Released,
			})
		}
	}
	v.mu.Unlock()
	return v.publish(ctx, vda5050.CategoryState, msg, false)
}

// position snapshots the current pose. Callers hold v.mu.
func (v *Vehicle) position() *vda5050.AgvPosition {
	x, y := v.x, v.y
	return &vda5050.AgvPosition{
		X:                   &x,
		Y:                   &y,
		Theta:               v.theta,
		MapId:               v.mapId,
		PositionInitialized: true,
	}
}

// header fills the common message header. Callers hold v.mu except during
// construction.
func (v *Vehicle) header(cat vda5050.Category) vda5050.Header {
	v.headerIds[cat]++
	return vda5050.Header{
		HeaderId:     v.headerIds[cat],
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      "2.0.0",
		Manufacturer: v.id.Manufacturer,
		SerialNumber: v.id.SerialNumber,
	}
}

func (v *Vehicle) publish(ctx context.Context, cat vda5050.Category, msg vda5050.Message, retain bool) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return v.client.Publish(ctx, v.topics.Topic(v.id, cat), 0, retain, payload)
}
