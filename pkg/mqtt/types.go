package mqtt

import (
	"context"
	"errors"
)

// ConnState is the lifecycle state of the shared broker connection. State
// transitions are the only failure signal surfaced to the presentation
// layer; individual message errors stay in the logs.
type ConnState string

const (
	StateOffline      ConnState = "offline"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

var (
	// ErrNotStarted is returned by operations that require Start first.
	ErrNotStarted = errors.New("mqtt: client not started")

	// ErrNotConnected is returned when the connection gave up reconnecting
	// and is offline; only a new Start recovers from this.
	ErrNotConnected = errors.New("mqtt: not connected")
)

// Events carries the callbacks invoked by the client. All fields are
// optional. OnMessage is invoked inline on the receive path, one message at a
// time, in arrival order; handlers own the ordering guarantee downstream and
// must not block for long.
type Events struct {
	OnConnected    func()
	OnDisconnected func()
	OnReconnecting func()
	OnError        func(err error)
	OnMessage      func(topic string, payload []byte)
}

func (e Events) emitConnected() {
	if e.OnConnected != nil {
		e.OnConnected()
	}
}

func (e Events) emitDisconnected() {
	if e.OnDisconnected != nil {
		e.OnDisconnected()
	}
}

func (e Events) emitReconnecting() {
	if e.OnReconnecting != nil {
		e.OnReconnecting()
	}
}

func (e Events) emitError(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

func (e Events) emitMessage(topic string, payload []byte) {
	if e.OnMessage != nil {
		e.OnMessage(topic, payload)
	}
}

// Client is the shared transport connection multiplexed by all vehicle
// sessions. It abstracts the underlying paho implementation details.
type Client interface {
	// Start establishes the connection to the broker and blocks until it is
	// up or the configured connect timeout elapses. Calling Start on a
	// client that is already running is a no-op returning nil.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection and cancels any pending
	// reconnect backoff.
	Disconnect(ctx context.Context)

	// Publish sends a message to the specified topic. Fails when the client
	// has not been started.
	Publish(ctx context.Context, topic string, qos byte, retain bool, payload []byte) error

	// Subscribe registers topic filters. The registered set is the source of
	// truth: after every reconnect the full set is replayed without caller
	// intervention. Filters may use MQTT single-level wildcards.
	Subscribe(ctx context.Context, qos byte, topics ...string) error

	// Unsubscribe removes a filter from the registered set and sends an
	// UNSUBSCRIBE packet. This operates on the shared connection: callers
	// must not remove wildcard filters that sibling sessions still rely on.
	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until the client is connected or ctx is done.
	AwaitConnection(ctx context.Context) error

	// State returns the current connection state.
	State() ConnState

	// SubscribedTopics returns the registered topic filters, sorted.
	SubscribedTopics() []string

	// ReconnectAttempts returns the number of reconnect attempts made since
	// the connection was last up.
	ReconnectAttempts() int
}
