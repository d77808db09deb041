package mqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetvis-io/fleetvis/pkg/log"
)

func newTestTracker(maxAttempts int, events Events) *connTracker {
	return newConnTracker(maxAttempts, events, log.NewNopLogger())
}

func TestTrackerInitialState(t *testing.T) {
	tr := newTestTracker(5, Events{})
	assert.Equal(t, StateOffline, tr.state())
	assert.Empty(t, tr.subscribedTopics())
}

func TestTrackerConnectLifecycle(t *testing.T) {
	var connected, reconnecting, disconnected int
	tr := newTestTracker(5, Events{
		OnConnected:    func() { connected++ },
		OnReconnecting: func() { reconnecting++ },
		OnDisconnected: func() { disconnected++ },
	})
	ctx := context.Background()

	tr.markConnecting(ctx)
	assert.Equal(t, StateConnecting, tr.state())

	tr.handleUp(ctx, func(context.Context, string, byte) error { return nil })
	assert.Equal(t, StateConnected, tr.state())
	assert.Equal(t, 1, connected)

	tr.markLost(ctx)
	assert.Equal(t, StateReconnecting, tr.state())
	assert.Equal(t, 1, reconnecting)

	tr.handleUp(ctx, func(context.Context, string, byte) error { return nil })
	assert.Equal(t, StateConnected, tr.state())
	assert.Equal(t, 2, connected)

	tr.markDisconnected(ctx)
	assert.Equal(t, StateOffline, tr.state())
	assert.Equal(t, 1, disconnected)
}

func TestTrackerResubscribesFullSetAfterReconnect(t *testing.T) {
	tr := newTestTracker(5, Events{})
	ctx := context.Background()

	patterns := []string{
		"+/+/+/+/connection",
		"+/+/+/+/instantActions",
		"+/+/+/+/order",
		"+/+/+/+/state",
		"+/+/+/+/visualization",
	}
	tr.addSubscriptions(0, patterns...)

	tr.markConnecting(ctx)

	var replayed []string
	tr.handleUp(ctx, func(_ context.Context, topic string, _ byte) error {
		replayed = append(replayed, topic)
		return nil
	})
	assert.Equal(t, patterns, replayed, "initial connection subscribes the full set")

	// Drop the connection and reconnect: the set must be replayed again
	// without any caller intervention.
	tr.markLost(ctx)
	replayed = nil
	tr.handleUp(ctx, func(_ context.Context, topic string, _ byte) error {
		replayed = append(replayed, topic)
		return nil
	})
	assert.Equal(t, patterns, replayed, "all five patterns resubscribed after reconnect")
}

func TestTrackerReplayKeepsGoingOnSubscribeError(t *testing.T) {
	tr := newTestTracker(5, Events{})
	ctx := context.Background()
	tr.addSubscriptions(1, "a/+/x", "b/+/x", "c/+/x")
	tr.markConnecting(ctx)

	var attempted []string
	tr.handleUp(ctx, func(_ context.Context, topic string, _ byte) error {
		attempted = append(attempted, topic)
		if topic == "b/+/x" {
			return errors.New("broker refused")
		}
		return nil
	})

	assert.Equal(t, []string{"a/+/x", "b/+/x", "c/+/x"}, attempted)
	assert.Equal(t, []string{"a/+/x", "b/+/x", "c/+/x"}, tr.subscribedTopics(),
		"a failed replay keeps the filter registered for the next reconnect")
}

func TestTrackerBoundedReconnectGivesUp(t *testing.T) {
	var errs int
	var wentOffline bool
	tr := newTestTracker(5, Events{
		OnError:        func(error) { errs++ },
		OnDisconnected: func() { wentOffline = true },
	})
	ctx := context.Background()

	tr.markConnecting(ctx)
	tr.handleUp(ctx, func(context.Context, string, byte) error { return nil })
	tr.markLost(ctx)

	cause := errors.New("connection refused")
	for i := 0; i < 4; i++ {
		require.False(t, tr.handleConnectError(ctx, cause), "attempt %d is within budget", i+1)
		assert.Equal(t, StateReconnecting, tr.state())
	}

	require.True(t, tr.handleConnectError(ctx, cause), "fifth attempt exhausts the budget")
	assert.Equal(t, StateOffline, tr.state())
	assert.True(t, wentOffline)
	assert.Equal(t, 5, errs)
	assert.Equal(t, 5, tr.reconnectAttempts())
}

func TestTrackerAttemptCounterResetsOnSuccess(t *testing.T) {
	tr := newTestTracker(5, Events{})
	ctx := context.Background()

	tr.markConnecting(ctx)
	tr.handleConnectError(ctx, errors.New("refused"))
	tr.handleConnectError(ctx, errors.New("refused"))
	assert.Equal(t, 2, tr.reconnectAttempts())

	tr.handleUp(ctx, func(context.Context, string, byte) error { return nil })
	assert.Equal(t, 0, tr.reconnectAttempts())
}

func TestTrackerSubscriptionSet(t *testing.T) {
	tr := newTestTracker(5, Events{})

	tr.addSubscriptions(1, "uagv/+/+/+/order", "uagv/+/+/+/state")
	tr.addSubscriptions(1, "uagv/+/+/+/order") // duplicate is a no-op
	assert.Equal(t, []string{"uagv/+/+/+/order", "uagv/+/+/+/state"}, tr.subscribedTopics())

	tr.removeSubscription("uagv/+/+/+/order")
	assert.Equal(t, []string{"uagv/+/+/+/state"}, tr.subscribedTopics())

	tr.removeSubscription("uagv/+/+/+/order") // already gone
	assert.Equal(t, []string{"uagv/+/+/+/state"}, tr.subscribedTopics())
}

func TestClientConfigValidation(t *testing.T) {
	_, err := NewClient(nil, Events{})
	require.Error(t, err)

	_, err = NewClient(&ClientConfig{}, Events{})
	require.Error(t, err, "missing broker url")

	_, err = NewClient(&ClientConfig{BrokerURL: "://bad"}, Events{})
	require.Error(t, err)

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"}, Events{})
	require.NoError(t, err)
	assert.Equal(t, StateOffline, c.State())
	assert.Equal(t, ErrNotStarted, c.Publish(context.Background(), "t", 0, false, nil))
}

func TestClientConfigDefaults(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883"}
	setDefaultConfig(cfg)

	assert.EqualValues(t, 60, cfg.KeepAlive)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
	assert.NotEmpty(t, cfg.ClientID)
	assert.NotZero(t, cfg.ConnectTimeout)
	assert.NotZero(t, cfg.ReconnectInterval)
}
