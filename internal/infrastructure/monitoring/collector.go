package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records provider session metrics. It is an optional injected
// collaborator; a nil *Collector is a no-op, so callers never guard.
type Collector struct {
	framesSent        prometheus.Counter
	framesReceived    prometheus.Counter
	bytesSent         prometheus.Counter
	messagesSent      prometheus.Counter
	messagesReceived  prometheus.Counter
	reassemblyErrors  prometheus.Counter
	stateTransitions  *prometheus.CounterVec
	participantsGauge prometheus.Gauge
	pendingBuffers    prometheus.Gauge
}

// NewCollector registers the session metrics with the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamlink_frames_sent_total",
			Help: "Total number of wire frames transmitted",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamlink_frames_received_total",
			Help: "Total number of wire frames received",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamlink_bytes_sent_total",
			Help: "Total paced bytes transmitted over the data channel",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamlink_messages_sent_total",
			Help: "Total logical messages sent",
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamlink_messages_received_total",
			Help: "Total logical messages reassembled and dispatched",
		}),
		reassemblyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamlink_reassembly_errors_total",
			Help: "Total reassembly failures (ordering violations, timeouts)",
		}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamlink_state_transitions_total",
			Help: "Connection state transitions by target state",
		}, []string{"state"}),
		participantsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streamlink_participants",
			Help: "Current number of participants in the session",
		}),
		pendingBuffers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streamlink_reassembly_buffers",
			Help: "Reassembly buffers currently in flight",
		}),
	}

	reg.MustRegister(
		c.framesSent, c.framesReceived, c.bytesSent,
		c.messagesSent, c.messagesReceived, c.reassemblyErrors,
		c.stateTransitions, c.participantsGauge, c.pendingBuffers,
	)

	return c
}

func (c *Collector) RecordFrameSent(bytes int) {
	if c == nil {
		return
	}
	c.framesSent.Inc()
	c.bytesSent.Add(float64(bytes))
}

func (c *Collector) RecordFrameReceived() {
	if c == nil {
		return
	}
	c.framesReceived.Inc()
}

func (c *Collector) RecordMessageSent() {
	if c == nil {
		return
	}
	c.messagesSent.Inc()
}

func (c *Collector) RecordMessageReceived() {
	if c == nil {
		return
	}
	c.messagesReceived.Inc()
}

func (c *Collector) RecordReassemblyError() {
	if c == nil {
		return
	}
	c.reassemblyErrors.Inc()
}

func (c *Collector) RecordStateTransition(state string) {
	if c == nil {
		return
	}
	c.stateTransitions.WithLabelValues(state).Inc()
}

func (c *Collector) SetParticipantCount(n int) {
	if c == nil {
		return
	}
	c.participantsGauge.Set(float64(n))
}

func (c *Collector) SetPendingBuffers(n int) {
	if c == nil {
		return
	}
	c.pendingBuffers.Set(float64(n))
}
