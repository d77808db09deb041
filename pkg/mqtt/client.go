package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/fleetvis-io/fleetvis/pkg/log"
)

type pahoClient struct {
	cfg     *ClientConfig
	tracker *connTracker
	log     log.Logger

	mu sync.Mutex
	cm *autopaho.ConnectionManager
}

// NewClient creates a new MQTT client implementing the Client interface.
// Events callbacks fire as the connection lifecycle progresses; OnMessage is
// invoked inline in arrival order.
func NewClient(cfg *ClientConfig, events Events) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	logger := log.WithName("mqtt")
	return &pahoClient{
		cfg:     cfg,
		tracker: newConnTracker(cfg.MaxReconnectAttempts, events, logger),
		log:     logger,
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cm != nil {
		// Already started: hand back the running connection.
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	brokerURL, _ := url.Parse(c.cfg.BrokerURL) // already validated

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.ReconnectInterval),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		},
		WillMessage:    c.willMessage(),
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: c.onConnectError,
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.onPublishReceived,
			},
		},
	}

	c.log.Info("Starting MQTT client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)
	c.tracker.markConnecting(ctx)

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		c.tracker.markDisconnected(ctx)
		return err
	}

	c.mu.Lock()
	c.cm = cm
	c.mu.Unlock()

	// Bound the initial connection attempt: a broker that cannot be reached
	// within ConnectTimeout is a connect error for the caller, not a silent
	// background retry loop.
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := cm.AwaitConnection(waitCtx); err != nil {
		c.teardown(ctx)
		return fmt.Errorf("connect to %s: %w", c.cfg.BrokerURL, err)
	}

	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	c.teardown(ctx)
	c.log.Info("MQTT client disconnected")
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos byte, retain bool, payload []byte) error {
	cm := c.manager()
	if cm == nil {
		return ErrNotStarted
	}
	if c.tracker.state() == StateOffline {
		return ErrNotConnected
	}

	_, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     qos,
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, qos byte, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}

	// Register first: the set survives reconnects and OnConnectionUp replays
	// it even when the immediate SUBSCRIBE below cannot be sent.
	c.tracker.addSubscriptions(qos, topics...)

	cm := c.manager()
	if cm == nil {
		return ErrNotStarted
	}

	subs := make([]paho.SubscribeOptions, 0, len(topics))
	for _, topic := range topics {
		subs = append(subs, paho.SubscribeOptions{Topic: topic, QoS: qos})
	}

	if _, err := cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs}); err != nil {
		return fmt.Errorf("failed to send subscription packet: %w", err)
	}

	c.log.Info("Subscribed to topics", "topics", topics)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	c.tracker.removeSubscription(topic)

	cm := c.manager()
	if cm == nil {
		return ErrNotStarted
	}

	_, err := cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{topic}})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	cm := c.manager()
	if cm == nil {
		return ErrNotStarted
	}
	return cm.AwaitConnection(ctx)
}

func (c *pahoClient) State() ConnState {
	return c.tracker.state()
}

func (c *pahoClient) SubscribedTopics() []string {
	return c.tracker.subscribedTopics()
}

func (c *pahoClient) ReconnectAttempts() int {
	return c.tracker.reconnectAttempts()
}

// --- Internal callbacks ---

// onConnectionUp is called when the connection is established or
// re-established. The registered subscription set is replayed here.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, ack *paho.Connack) {
	c.log.Info("MQTT connection established")

	c.tracker.handleUp(context.Background(), func(ctx context.Context, topic string, qos byte) error {
		_, err := cm.Subscribe(ctx, &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{
				{Topic: topic, QoS: qos},
			},
		})
		return err
	})
}

func (c *pahoClient) onConnectError(err error) {
	if gaveUp := c.tracker.handleConnectError(context.Background(), err); gaveUp {
		// Retry budget exhausted: stop the background reconnect loop. The
		// next explicit Start builds a fresh connection.
		go c.teardownManagerOnly()
	}
}

func (c *pahoClient) onClientError(err error) {
	c.log.Error(err, "MQTT client internal error")
	c.tracker.markLost(context.Background())
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	if d.Properties != nil {
		c.log.Warn("MQTT server requested disconnect", "reason", d.Properties.ReasonString)
	} else {
		c.log.Warn("MQTT server requested disconnect", "reasonCode", d.ReasonCode)
	}
	c.tracker.markLost(context.Background())
}

// onPublishReceived delivers one inbound message. Delivery is synchronous:
// the next packet is not processed until the handler returns, which is what
// guarantees per-vehicle fold ordering downstream.
func (c *pahoClient) onPublishReceived(p paho.PublishReceived) (bool, error) {
	c.tracker.events.emitMessage(p.Packet.Topic, p.Packet.Payload)
	return true, nil
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

func (c *pahoClient) manager() *autopaho.ConnectionManager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cm
}

// teardown stops the connection manager and records the explicit disconnect.
func (c *pahoClient) teardown(ctx context.Context) {
	c.mu.Lock()
	cm := c.cm
	c.cm = nil
	c.mu.Unlock()

	if cm != nil {
		_ = cm.Disconnect(ctx)
	}
	c.tracker.markDisconnected(ctx)
}

// teardownManagerOnly stops the manager after the tracker already moved to
// offline (give-up path).
func (c *pahoClient) teardownManagerOnly() {
	c.mu.Lock()
	cm := c.cm
	c.cm = nil
	c.mu.Unlock()

	if cm != nil {
		_ = cm.Disconnect(context.Background())
	}
}
