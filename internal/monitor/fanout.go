package monitor

import (
	"sync"

	"github.com/fleetvis-io/fleetvis/pkg/log"
)

// Subscriber consumes every inbound envelope. Subscribers run synchronously
// on the dispatch goroutine and should return quickly.
type Subscriber func(Envelope)

type fanoutEntry struct {
	id int
	fn Subscriber
}

// Fanout delivers each envelope to all registered subscribers in
// registration order. A panicking subscriber is recovered and logged so the
// remaining subscribers still receive the message.
type Fanout struct {
	log     log.Logger
	metrics *Metrics

	mu     sync.Mutex
	nextID int
	subs   []fanoutEntry
}

func NewFanout(logger log.Logger, metrics *Metrics) *Fanout {
	return &Fanout{log: logger, metrics: metrics}
}

// Subscribe registers fn and returns its unsubscribe function. Calling the
// returned function more than once is a no-op.
func (f *Fanout) Subscribe(fn Subscriber) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs = append(f.subs, fanoutEntry{id: id, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Fanout) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, entry := range f.subs {
		if entry.id == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers env to every subscriber.
func (f *Fanout) Publish(env Envelope) {
	f.mu.Lock()
	entries := append([]fanoutEntry(nil), f.subs...)
	f.mu.Unlock()

	for _, entry := range entries {
		f.deliver(entry, env)
	}
}

func (f *Fanout) deliver(entry fanoutEntry, env Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			if f.metrics != nil {
				f.metrics.SubscriberPanics.Inc()
			}
			f.log.Warn("Message subscriber panicked", "panic", rec, "topic", env.Topic)
		}
	}()
	entry.fn(env)
}
