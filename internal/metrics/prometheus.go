package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the messaging service.
type Metrics struct {
	// Datagram metrics
	MessagesReceived  prometheus.Counter
	MessagesProcessed prometheus.Counter
	MessagesDropped   prometheus.Counter
	DecodeErrors      prometheus.Counter
	QueueSize         prometheus.Gauge

	// Client registry metrics
	ConnectedClients  prometheus.Gauge
	ClientsRegistered prometheus.Counter
	ClientsEvicted    prometheus.Counter
	ClientsRestored   prometheus.Counter

	// Outbound metrics
	MessagesSent   prometheus.Counter
	SendErrors     prometheus.Counter
	BroadcastsSent prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// New creates all metrics and registers them on reg. Callers own the
// registry; tests pass a fresh one so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_messages_received_total",
			Help: "Total number of inbound datagrams successfully decoded",
		}),
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_messages_processed_total",
			Help: "Total number of messages dispatched on the processing tick",
		}),
		MessagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_messages_dropped_total",
			Help: "Total number of inbound messages dropped due to a full queue",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_decode_errors_total",
			Help: "Total number of datagrams that failed to decode",
		}),
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "messaging_inbound_queue_size",
			Help: "Current number of messages waiting for the next tick",
		}),

		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "messaging_connected_clients",
			Help: "Current number of registered tooling clients",
		}),
		ClientsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_clients_registered_total",
			Help: "Total number of clients registered on first contact",
		}),
		ClientsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_clients_evicted_total",
			Help: "Total number of clients evicted after the liveness timeout",
		}),
		ClientsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_clients_restored_total",
			Help: "Total number of clients restored from persisted state",
		}),

		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_messages_sent_total",
			Help: "Total number of datagrams sent to clients",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_send_errors_total",
			Help: "Total number of best-effort sends that failed",
		}),
		BroadcastsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "messaging_broadcasts_total",
			Help: "Total number of broadcasts to the registered client set",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "messaging_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "messaging_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "messaging_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordMessageReceived increments the received-datagram counter.
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordMessageProcessed increments the processed-message counter.
func (m *Metrics) RecordMessageProcessed() {
	m.MessagesProcessed.Inc()
}

// RecordMessageDropped increments the dropped-message counter.
func (m *Metrics) RecordMessageDropped() {
	m.MessagesDropped.Inc()
}

// RecordDecodeError increments the decode-error counter.
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// SetQueueSize sets the current inbound queue depth.
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// SetConnectedClients sets the current registered client count.
func (m *Metrics) SetConnectedClients(count int) {
	m.ConnectedClients.Set(float64(count))
}

// RecordClientRegistered increments the client registration counter.
func (m *Metrics) RecordClientRegistered() {
	m.ClientsRegistered.Inc()
}

// RecordClientEvicted increments the client eviction counter.
func (m *Metrics) RecordClientEvicted() {
	m.ClientsEvicted.Inc()
}

// RecordClientsRestored adds the number of clients restored at startup.
func (m *Metrics) RecordClientsRestored(count int) {
	m.ClientsRestored.Add(float64(count))
}

// RecordMessageSent increments the sent-datagram counter.
func (m *Metrics) RecordMessageSent() {
	m.MessagesSent.Inc()
}

// RecordSendError increments the send-failure counter.
func (m *Metrics) RecordSendError() {
	m.SendErrors.Inc()
}

// RecordBroadcast increments the broadcast counter.
func (m *Metrics) RecordBroadcast() {
	m.BroadcastsSent.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
