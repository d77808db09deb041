package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/options"
	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// Config is the simulator's effective runtime configuration.
type Config struct {
	MqttOptions *options.MqttOptions

	VehicleCount  int
	Manufacturer  string
	SerialPrefix  string
	OrderInterval time.Duration

	// Factory floor shape
	GridSize int
	CellSize float64
	MapId    string

	// Vehicle speed in m/s.
	Speed float64

	// Seed for reproducible runs; 0 seeds from the clock.
	Seed int64
}

// Simulator drives a fleet of virtual AGVs against a broker.
type Simulator struct {
	cfg *Config
	log log.Logger
	rng *rand.Rand

	mu       sync.Mutex
	vehicles map[string]*Vehicle
	cancels  map[string]context.CancelFunc
}

// NewSimulator assembles the fleet.
func (cfg *Config) NewSimulator() (*Simulator, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Simulator{
		cfg:      cfg,
		log:      log.WithName("simulator"),
		rng:      rand.New(rand.NewSource(seed)),
		vehicles: map[string]*Vehicle{},
		cancels:  map[string]context.CancelFunc{},
	}

	topics := vda5050.NewTopicBuilder(cfg.MqttOptions.InterfaceName, cfg.MqttOptions.MajorVersion)
	base := cfg.MqttOptions.ToClientConfig()

	for i := 0; i < cfg.VehicleCount; i++ {
		id := vda5050.AgvId{
			Manufacturer: cfg.Manufacturer,
			SerialNumber: fmt.Sprintf("%s%d", cfg.SerialPrefix, i+1),
		}
		v, err := NewVehicle(id, topics, base, cfg.Speed, cfg.MapId, seed+int64(i)+1)
		if err != nil {
			return nil, err
		}
		s.vehicles[id.SerialNumber] = v
	}

	return s, nil
}

// Pause halts the drive loop of every vehicle.
func (s *Simulator) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		v.Pause()
	}
}

// Resume continues all vehicles.
func (s *Simulator) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		v.Resume()
	}
}

// Remove stops one vehicle and drops it from the fleet. Its retained
// connection announcement stays on the broker until the last will fires or
// the graceful OFFLINE replaces it.
func (s *Simulator) Remove(serialNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[serialNumber]; !ok {
		return false
	}
	if cancel, ok := s.cancels[serialNumber]; ok {
		cancel()
		delete(s.cancels, serialNumber)
	}
	delete(s.vehicles, serialNumber)
	return true
}

// Run starts every vehicle and keeps handing out random orders until ctx is
// cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	s.log.Info("Starting fleet", "vehicles", len(s.vehicles), "broker", s.cfg.MqttOptions.Broker)

	g, ctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	for serial, v := range s.vehicles {
		v := v
		vctx, cancel := context.WithCancel(ctx)
		s.cancels[serial] = cancel
		g.Go(func() error {
			return v.Run(vctx)
		})
	}
	s.mu.Unlock()

	g.Go(func() error {
		return s.dispatchOrders(ctx)
	})

	return g.Wait()
}

// dispatchOrders plays the master control role: every interval each vehicle
// receives a fresh random route.
func (s *Simulator) dispatchOrders(ctx context.Context) error {
	// Give vehicles a moment to connect before the first round.
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(time.Second):
	}
	s.assignAll(ctx)

	ticker := time.NewTicker(s.cfg.OrderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.assignAll(ctx)
		}
	}
}

func (s *Simulator) assignAll(ctx context.Context) {
	s.mu.Lock()
	fleet := make([]*Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		fleet = append(fleet, v)
	}
	s.mu.Unlock()

	for _, v := range fleet {
		order := RandomOrder(s.rng, s.randomRoute(), s.cfg.MapId)
		if err := v.AssignOrder(ctx, order); err != nil {
			s.log.Error(err, "Failed to assign order", "vehicle", v.id.Key())
		}
	}
}

// randomRoute draws start and end cells far enough apart for a drivable
// order of at least three waypoints.
func (s *Simulator) randomRoute() []Point {
	start := s.randomCell()
	end := s.randomCell()
	for start.Distance(end) < 2 {
		end = s.randomCell()
	}
	return ManhattanRoute(s.rng, start, end, s.cfg.CellSize)
}

func (s *Simulator) randomCell() Cell {
	return Cell{Col: s.rng.Intn(s.cfg.GridSize), Row: s.rng.Intn(s.cfg.GridSize)}
}
