package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout bounds the initial connection. Default is 10s.
	ConnectTimeout time.Duration

	// SessionExpiry in seconds.
	SessionExpiry uint32

	// CleanStart indicates whether to start a clean session.
	CleanStart bool

	// ReconnectInterval is the fixed backoff between reconnect attempts.
	// Default is 3s.
	ReconnectInterval time.Duration

	// MaxReconnectAttempts bounds automatic reconnection after an unexpected
	// disconnect. Once exhausted the client goes offline and stays there
	// until Start is called again. Default is 5.
	MaxReconnectAttempts int

	// InsecureSkipVerify disables TLS certificate verification. Only for
	// test environments with self-signed broker certificates.
	InsecureSkipVerify bool

	// Optional last-will message, published by the broker on unexpected
	// disconnect. Used by vehicles to announce OFFLINE.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// setDefaultConfig applies safe default values to the configuration.
func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}

	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}

	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = 5
	}

	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("fleetvis-%s", uuid.NewString()[:8])
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return fmt.Errorf("invalid broker url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid broker url %q: scheme and host are required", c.BrokerURL)
	}
	if c.MaxReconnectAttempts < 0 {
		return errors.New("max reconnect attempts must not be negative")
	}
	return nil
}
