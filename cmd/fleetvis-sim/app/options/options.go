package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fleetvis-io/fleetvis/internal/simulator"
	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/options"
)

// SimOptions is the full flag and config-file surface of the simulator.
type SimOptions struct {
	ConfigFile string

	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Log         *log.Options         `json:"log" mapstructure:"log"`

	VehicleCount  int           `json:"vehicle-count" mapstructure:"vehicle-count"`
	Manufacturer  string        `json:"manufacturer" mapstructure:"manufacturer"`
	SerialPrefix  string        `json:"serial-prefix" mapstructure:"serial-prefix"`
	OrderInterval time.Duration `json:"order-interval" mapstructure:"order-interval"`
	GridSize      int           `json:"grid-size" mapstructure:"grid-size"`
	CellSize      float64       `json:"cell-size" mapstructure:"cell-size"`
	MapId         string        `json:"map-id" mapstructure:"map-id"`
	Speed         float64       `json:"speed" mapstructure:"speed"`
	Seed          int64         `json:"seed" mapstructure:"seed"`
}

func NewSimOptions() *SimOptions {
	return &SimOptions{
		MqttOptions:   options.NewMqttOptions(),
		Log:           log.NewOptions(),
		VehicleCount:  3,
		Manufacturer:  "fleetvis",
		SerialPrefix:  "AGV-",
		OrderInterval: 30 * time.Second,
		GridSize:      12,
		CellSize:      2.0,
		MapId:         "factory",
		Speed:         1.2,
	}
}

// AddFlags registers all simulator flags.
func (o *SimOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the configuration file (yaml, json or toml).")
	o.MqttOptions.AddFlags(fs)
	o.Log.AddFlags(fs)

	fs.IntVar(&o.VehicleCount, "sim.vehicle-count", o.VehicleCount, "Number of simulated vehicles.")
	fs.StringVar(&o.Manufacturer, "sim.manufacturer", o.Manufacturer, "Manufacturer reported by the simulated vehicles.")
	fs.StringVar(&o.SerialPrefix, "sim.serial-prefix", o.SerialPrefix, "Serial number prefix; vehicles are numbered from 1.")
	fs.DurationVar(&o.OrderInterval, "sim.order-interval", o.OrderInterval, "Interval between random order assignments.")
	fs.IntVar(&o.GridSize, "sim.grid-size", o.GridSize, "Side length of the simulated factory grid, in cells.")
	fs.Float64Var(&o.CellSize, "sim.cell-size", o.CellSize, "Grid cell size in meters.")
	fs.StringVar(&o.MapId, "sim.map-id", o.MapId, "Map id reported in positions and orders.")
	fs.Float64Var(&o.Speed, "sim.speed", o.Speed, "Vehicle speed in meters per second.")
	fs.Int64Var(&o.Seed, "sim.seed", o.Seed, "Random seed; 0 seeds from the clock.")
}

// Complete loads the optional config file.
func (o *SimOptions) Complete() error {
	if o.ConfigFile == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(o.ConfigFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", o.ConfigFile, err)
	}
	if err := v.Unmarshal(o); err != nil {
		return fmt.Errorf("failed to unmarshal config file %s: %w", o.ConfigFile, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Config file changed, restart to apply", "file", e.Name)
	})
	v.WatchConfig()

	return nil
}

// Validate aggregates the validation errors of all option groups.
func (o *SimOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	if o.VehicleCount < 1 {
		errs = append(errs, errors.New("sim.vehicle-count must be at least 1"))
	}
	if o.Speed <= 0 {
		errs = append(errs, errors.New("sim.speed must be positive"))
	}
	if o.GridSize < 2 {
		errs = append(errs, errors.New("sim.grid-size must be at least 2"))
	}

	return errors.Join(errs...)
}

// Config builds the simulator's runtime configuration.
func (o *SimOptions) Config() (*simulator.Config, error) {
	return &simulator.Config{
		MqttOptions:   o.MqttOptions,
		VehicleCount:  o.VehicleCount,
		Manufacturer:  o.Manufacturer,
		SerialPrefix:  o.SerialPrefix,
		OrderInterval: o.OrderInterval,
		GridSize:      o.GridSize,
		CellSize:      o.CellSize,
		MapId:         o.MapId,
		Speed:         o.Speed,
		Seed:          o.Seed,
	}, nil
}
