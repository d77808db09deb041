package options

import (
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fleetvis-io/fleetvis/internal/monitor"
	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/options"
)

// MonitorOptions is the full flag and config-file surface of the monitor.
type MonitorOptions struct {
	ConfigFile string

	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

func NewMonitorOptions() *MonitorOptions {
	return &MonitorOptions{
		MqttOptions: options.NewMqttOptions(),
		HttpOptions: options.NewHttpOptions(),
		Log:         log.NewOptions(),
	}
}

// AddFlags registers all monitor flags.
func (o *MonitorOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the configuration file (yaml, json or toml).")
	o.MqttOptions.AddFlags(fs)
	o.HttpOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Complete loads the optional config file. File values fill in whatever was
// not set; flags bind directly to the option fields and therefore win.
func (o *MonitorOptions) Complete() error {
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
func (o *MonitorOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config builds the monitor's runtime configuration.
func (o *MonitorOptions) Config() (*monitor.Config, error) {
	return &monitor.Config{
		MqttOptions: o.MqttOptions,
		HttpOptions: o.HttpOptions,
	}, nil
}
