// Package metrics provides the Prometheus collectors shared by the FTP and HTTP services.
//
// A nil *Metrics is valid and records nothing, so callers never check whether metrics are enabled.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Protocol label values
const (
	ProtocolFTP  = "ftp"
	ProtocolHTTP = "http"
)

// Direction label values
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Metrics tracks connections, commands and transferred bytes for both protocols.
type Metrics struct {
	// ConnectionsTotal counts accepted connections by protocol
	ConnectionsTotal *prometheus.CounterVec

	// ActiveConnections tracks connections whose handler is still running
	ActiveConnections *prometheus.GaugeVec

	// FTPCommandsTotal counts FTP commands by verb and reply code
	FTPCommandsTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts HTTP exchanges by route and status
	HTTPRequestsTotal *prometheus.CounterVec

	// TransferBytesTotal counts file bytes by protocol and direction
	TransferBytesTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
// Panics if registration fails (expected during initialization only).
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ConnectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanshare_connections_total",
				Help: "Total accepted connections by protocol",
			},
			[]string{"protocol"},
		),
		ActiveConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lanshare_active_connections",
				Help: "Connections currently being handled by protocol",
			},
			[]string{"protocol"},
		),
		FTPCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanshare_ftp_commands_total",
				Help: "Total FTP commands by verb and reply code",
			},
			[]string{"command", "code"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanshare_http_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		TransferBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanshare_transfer_bytes_total",
				Help: "Total file bytes transferred by protocol and direction",
			},
			[]string{"protocol", "direction"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ConnectionsTotal,
		m.ActiveConnections,
		m.FTPCommandsTotal,
		m.HTTPRequestsTotal,
		m.TransferBytesTotal,
	)
	return m
}

// NewWithProcess is New plus the Go runtime and process collectors
func NewWithProcess() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// ConnectionOpened records an accepted connection
func (m *Metrics) ConnectionOpened(protocol string) {
	if m == nil {
		return
	}
	m.ConnectionsTotal.WithLabelValues(protocol).Inc()
	m.ActiveConnections.WithLabelValues(protocol).Inc()
}

// ConnectionClosed records the end of a connection handler
func (m *Metrics) ConnectionClosed(protocol string) {
	if m == nil {
		return
	}
	m.ActiveConnections.WithLabelValues(protocol).Dec()
}

// FTPCommand records a command and the reply code it got
func (m *Metrics) FTPCommand(command string, code int) {
	if m == nil {
		return
	}
	m.FTPCommandsTotal.WithLabelValues(command, strconv.Itoa(code)).Inc()
}

// HTTPRequest records a served HTTP request
func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Transfer records file bytes moved in one direction
func (m *Metrics) Transfer(protocol, direction string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TransferBytesTotal.WithLabelValues(protocol, direction).Add(float64(n))
}

// Handler returns the /metrics handler, a nil Metrics serves 404
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
