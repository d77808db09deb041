package monitor

import (
	"sync"
	"time"

	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// messageLogLimit bounds the global message log; older entries are evicted
// from the front.
const messageLogLimit = 1000

// LoggedMessage is one entry of the global message log, kept raw so it can
// be inspected even when decoding failed.
type LoggedMessage struct {
	Topic      string           `json:"topic"`
	Category   vda5050.Category `json:"category"`
	Raw        string           `json:"message"`
	ReceivedAt time.Time        `json:"receivedAt"`
}

// MessageLog is a bounded in-memory log of every inbound message.
type MessageLog struct {
	mu      sync.Mutex
	entries []LoggedMessage
}

func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Add records one envelope.
func (l *MessageLog) Add(env Envelope) {
	entry := LoggedMessage{
		Topic:      env.Topic,
		Category:   env.Category,
		Raw:        env.Raw,
		ReceivedAt: env.ReceivedAt,
	}

	l.mu.Lock()
	l.entries = appendBounded(l.entries, entry, messageLogLimit)
	l.mu.Unlock()
}

// List returns a copy of the log, oldest first.
func (l *MessageLog) List() []LoggedMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LoggedMessage(nil), l.entries...)
}

// Clear drops all entries.
func (l *MessageLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Len returns the number of retained entries.
func (l *MessageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
