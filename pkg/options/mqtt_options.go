package options

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/fleetvis-io/fleetvis/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains configuration for the MQTT transport and the VDA5050
// topic namespace.
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	ClientID string `json:"client-id" mapstructure:"client-id"`

	// Client behavior
	KeepAlive      time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	SessionExpiry  uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart     bool          `json:"clean-start" mapstructure:"clean-start"`

	// Reconnect behavior. After MaxReconnectAttempts failed attempts the
	// client transitions to offline and stays there until restarted.
	ReconnectInterval    time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`
	MaxReconnectAttempts int           `json:"max-reconnect-attempts" mapstructure:"max-reconnect-attempts"`

	// InsecureSkipVerify disables TLS certificate verification. Only for
	// self-signed broker certificates in test environments.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// VDA5050 topic namespace: {InterfaceName}/v{MajorVersion}/{manufacturer}/{serialNumber}/{category}.
	// A MajorVersion of 0 omits the version segment.
	InterfaceName string `json:"interface-name" mapstructure:"interface-name"`
	MajorVersion  int    `json:"major-version" mapstructure:"major-version"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:               "tcp://localhost:1883",
		KeepAlive:            60 * time.Second,
		ConnectTimeout:       10 * time.Second,
		SessionExpiry:        60,
		CleanStart:           true,
		ReconnectInterval:    3 * time.Second,
		MaxReconnectAttempts: 5,
		InterfaceName:        "uagv",
		MajorVersion:         2,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	} else if _, err := url.Parse(o.Broker); err != nil {
		errs = append(errs, fmt.Errorf("invalid mqtt.broker: %w", err))
	}

	if o.MaxReconnectAttempts < 0 {
		errs = append(errs, errors.New("mqtt.max-reconnect-attempts must not be negative"))
	}

	if o.InterfaceName == "" {
		errs = append(errs, errors.New("mqtt.interface-name is required"))
	}

	return errs
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "The URL of the MQTT broker.")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, "mqtt.password", o.Password, "The password for MQTT authentication.")
	fs.StringVar(&o.ClientID, "mqtt.client-id", o.ClientID, "Explicit client ID (optional, usually generated).")

	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT keep alive interval.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout for establishing the MQTT connection.")
	fs.Uint32Var(&o.SessionExpiry, "mqtt.session-expiry", o.SessionExpiry, "MQTT session expiry interval in seconds.")
	fs.BoolVar(&o.CleanStart, "mqtt.clean-start", o.CleanStart, "Start with a clean MQTT session.")
	fs.DurationVar(&o.ReconnectInterval, "mqtt.reconnect-interval", o.ReconnectInterval, "Backoff interval between reconnect attempts.")
	fs.IntVar(&o.MaxReconnectAttempts, "mqtt.max-reconnect-attempts", o.MaxReconnectAttempts, "Reconnect attempts before giving up and going offline.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")

	fs.StringVar(&o.InterfaceName, "mqtt.interface-name", o.InterfaceName, "VDA5050 interface name (first topic segment).")
	fs.IntVar(&o.MajorVersion, "mqtt.major-version", o.MajorVersion, "VDA5050 major version segment; 0 omits the segment.")
}

// ToClientConfig converts the options to a transport client configuration.
func (o *MqttOptions) ToClientConfig() *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:            o.Broker,
		Username:             o.Username,
		Password:             o.Password,
		ClientID:             o.ClientID,
		KeepAlive:            uint16(o.KeepAlive.Seconds()),
		SessionExpiry:        o.SessionExpiry,
		ConnectTimeout:       o.ConnectTimeout,
		CleanStart:           o.CleanStart,
		ReconnectInterval:    o.ReconnectInterval,
		MaxReconnectAttempts: o.MaxReconnectAttempts,
		InsecureSkipVerify:   o.InsecureSkipVerify,
	}
}
