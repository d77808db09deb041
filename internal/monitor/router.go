package monitor

import (
	"time"

	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// Router is the single ingestion path for inbound MQTT messages. It parses
// the topic, decodes the payload, records the envelope, fans it out to
// observers and folds it into the owning session.
//
// Route runs on the dispatch goroutine only, so folds for one vehicle are
// applied in arrival order.
type Router struct {
	registry *Registry
	fanout   *Fanout
	msgLog   *MessageLog
	metrics  *Metrics
	log      log.Logger
}

func NewRouter(registry *Registry, fanout *Fanout, msgLog *MessageLog, metrics *Metrics, logger log.Logger) *Router {
	return &Router{
		registry: registry,
		fanout:   fanout,
		msgLog:   msgLog,
		metrics:  metrics,
		log:      logger,
	}
}

// Route processes one inbound message.
func (r *Router) Route(topic string, payload []byte) {
	parsed, err := vda5050.ParseTopic(topic)
	if err != nil {
		r.metrics.Unroutable.Inc()
		r.log.Warn("Dropping unroutable message", "topic", topic, "error", err.Error())
		return
	}

	msg, decErr := vda5050.Decode(parsed.Category, payload)
	if decErr != nil {
		r.metrics.DecodeErrors.Inc()
		r.log.Error(decErr, "Failed to decode payload", "topic", topic, "category", parsed.Category)
	}

	env := Envelope{
		Topic:      topic,
		Category:   parsed.Category,
		AgvId:      parsed.AgvId,
		Message:    msg,
		Raw:        string(payload),
		ReceivedAt: time.Now(),
	}

	r.metrics.Received.WithLabelValues(string(parsed.Category)).Inc()
	r.msgLog.Add(env)

	// Observers see every message, decodable or not, before any fold.
	r.fanout.Publish(env)

	sess, ok := r.registry.Get(parsed.AgvId)
	if !ok {
		// Only a connection message announces a vehicle. Everything else from
		// an unknown vehicle is dropped until it announces itself.
		if parsed.Category != vda5050.CategoryConnection {
			r.log.Debug("No session for vehicle, dropping message",
				"vehicle", parsed.AgvId.Key(), "category", parsed.Category)
			return
		}

		sess, _ = r.registry.Ensure(parsed.AgvId)
		r.metrics.Sessions.Set(float64(r.registry.Len()))
		r.log.Info("Created vehicle session", "vehicle", parsed.AgvId.Key())
	}

	if _, unparsed := msg.(*vda5050.Unparsed); unparsed {
		return
	}
	sess.Fold(msg)
}
