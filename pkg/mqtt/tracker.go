package mqtt

import (
	"context"
	"sort"
	"sync"

	"github.com/looplab/fsm"

	"github.com/fleetvis-io/fleetvis/pkg/log"
)

// Lifecycle events driving the connection state machine.
const (
	eventStart      = "event_start"
	eventUp         = "event_up"
	eventLost       = "event_lost"
	eventGiveUp     = "event_give_up"
	eventDisconnect = "event_disconnect"
)

// subscribeFn sends a SUBSCRIBE packet for one topic filter.
type subscribeFn func(ctx context.Context, topic string, qos byte) error

// connTracker owns the connection lifecycle bookkeeping: the state machine,
// the registered subscription set, and the bounded reconnect counter. It is
// deliberately independent of the paho transport so the replay and give-up
// behavior can be exercised without a broker.
type connTracker struct {
	mu sync.Mutex

	machine     *fsm.FSM
	maxAttempts int
	attempts    int

	// subs maps topic filter to QoS. It is the source of truth replayed on
	// every (re)connection.
	subs map[string]byte

	events Events
	log    log.Logger
}

func newConnTracker(maxAttempts int, events Events, logger log.Logger) *connTracker {
	t := &connTracker{
		maxAttempts: maxAttempts,
		subs:        make(map[string]byte),
		events:      events,
		log:         logger,
	}

	t.machine = fsm.NewFSM(
		string(StateOffline),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StateOffline)}, Dst: string(StateConnecting)},
			{Name: eventUp, Src: []string{string(StateConnecting), string(StateReconnecting)}, Dst: string(StateConnected)},
			{Name: eventLost, Src: []string{string(StateConnected)}, Dst: string(StateReconnecting)},
			{Name: eventGiveUp, Src: []string{string(StateConnecting), string(StateReconnecting)}, Dst: string(StateOffline)},
			{Name: eventDisconnect, Src: []string{string(StateConnecting), string(StateConnected), string(StateReconnecting)}, Dst: string(StateOffline)},
		},
		fsm.Callbacks{
			"enter_" + string(StateConnected): func(ctx context.Context, e *fsm.Event) {
				t.events.emitConnected()
			},
			"enter_" + string(StateReconnecting): func(ctx context.Context, e *fsm.Event) {
				t.events.emitReconnecting()
			},
			"enter_" + string(StateOffline): func(ctx context.Context, e *fsm.Event) {
				t.events.emitDisconnected()
			},
		},
	)

	return t
}

func (t *connTracker) state() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ConnState(t.machine.Current())
}

func (t *connTracker) reconnectAttempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// markConnecting records the transition out of offline on Start.
func (t *connTracker) markConnecting(ctx context.Context) {
	t.fire(ctx, eventStart)
}

// markLost records an unexpected connection loss. No-op unless connected.
func (t *connTracker) markLost(ctx context.Context) {
	t.mu.Lock()
	connected := t.machine.Is(string(StateConnected))
	t.mu.Unlock()
	if connected {
		t.fire(ctx, eventLost)
	}
}

// markDisconnected records an explicit disconnect, resetting the attempt
// counter.
func (t *connTracker) markDisconnected(ctx context.Context) {
	t.mu.Lock()
	t.attempts = 0
	t.mu.Unlock()
	t.fire(ctx, eventDisconnect)
}

// handleUp resets the reconnect counter and replays the full subscription
// set through sub. Replay failures are logged per filter; the set stays
// registered for the next reconnect.
func (t *connTracker) handleUp(ctx context.Context, sub subscribeFn) {
	t.mu.Lock()
	t.attempts = 0
	t.mu.Unlock()

	t.fire(ctx, eventUp)

	for _, topic := range t.subscribedTopics() {
		t.mu.Lock()
		qos := t.subs[topic]
		t.mu.Unlock()

		t.log.Info("Re-subscribing", "topic", topic)
		if err := sub(ctx, topic, qos); err != nil {
			t.log.Error(err, "Failed to re-subscribe", "topic", topic)
		}
	}
}

// handleConnectError counts one failed connect attempt and reports whether
// the bounded retry budget is exhausted. The caller tears the transport down
// when it returns true.
func (t *connTracker) handleConnectError(ctx context.Context, err error) (gaveUp bool) {
	t.events.emitError(err)

	t.mu.Lock()
	t.attempts++
	exhausted := t.maxAttempts > 0 && t.attempts >= t.maxAttempts
	attempts := t.attempts
	t.mu.Unlock()

	if !exhausted {
		t.log.Warn("Connect attempt failed, will retry", "attempt", attempts, "max", t.maxAttempts, "error", err.Error())
		return false
	}

	t.log.Error(err, "Reconnect attempts exhausted, going offline", "attempts", attempts)
	t.fire(ctx, eventGiveUp)
	return true
}

// addSubscriptions registers filters in the replay set.
func (t *connTracker) addSubscriptions(qos byte, topics ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, topic := range topics {
		t.subs[topic] = qos
	}
}

// removeSubscription drops a filter from the replay set.
func (t *connTracker) removeSubscription(topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, topic)
}

func (t *connTracker) subscribedTopics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	topics := make([]string, 0, len(t.subs))
	for topic := range t.subs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// fire drives the state machine, tolerating no-op transitions. The mutex is
// not held across Event because callbacks run user code.
func (t *connTracker) fire(ctx context.Context, event string) {
	t.mu.Lock()
	machine := t.machine
	t.mu.Unlock()

	if err := machine.Event(ctx, event); err != nil {
		t.log.Debug("Ignored state transition", "event", event, "error", err.Error())
	}
}
