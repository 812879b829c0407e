package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/telebroad/lanshare/metrics"
)

// Options is what the host application passes to Start
type Options struct {
	Port     int
	Root     string
	Username string
	Password string
}

// Builder creates the connection handler for one Start call, it is where the root gets prepared
type Builder func(opts Options) (Handler, error)

// Service is the start/stop/status surface of one protocol.
// At most one Handle is running per Service.
type Service struct {
	protocol string
	build    Builder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu     sync.Mutex
	handle *Handle
}

// NewService creates a stopped service, build is called on every Start
func NewService(protocol string, build Builder) *Service {
	return &Service{protocol: protocol, build: build}
}

func (s *Service) SetLogger(l *slog.Logger) {
	s.logger = l
}

func (s *Service) Logger() *slog.Logger {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s.logger.With("module", s.protocol+"-service")
}

// SetMetrics sets the collectors handed to every supervisor started afterwards
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Protocol returns the protocol name the service was created with
func (s *Service) Protocol() string {
	return s.protocol
}

// Start binds the port and starts accepting connections.
// When the service is already running nothing changes and the running handle is returned.
// On a bind failure the service stays stopped and the error wraps ErrAlreadyInUse or ErrNetwork.
func (s *Service) Start(opts Options) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil && s.handle.Running() {
		s.Logger().Debug("already running", "addr", s.handle.Addr().String())
		return s.handle, nil
	}
	if s.handle != nil {
		// the accept loop died on its own, its sessions still wait for the shutdown signal
		s.handle.cancel()
		s.handle = nil
	}

	handler, err := s.build(opts)
	if err != nil {
		return nil, fmt.Errorf("error starting %s service: %w", s.protocol, err)
	}
	listener, err := Listen(opts.Port)
	if err != nil {
		return nil, fmt.Errorf("error starting %s service: %w", s.protocol, err)
	}

	supervisor := NewSupervisor(listener, s.protocol, handler)
	supervisor.SetLogger(s.logger)
	supervisor.SetMetrics(s.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	go supervisor.Serve(ctx)

	s.handle = &Handle{supervisor: supervisor, cancel: cancel, opts: opts}
	s.Logger().Info("started", "addr", listener.Addr().String(), "root", opts.Root)
	return s.handle, nil
}

// Stop stops the running handle, calling it on a stopped service does nothing
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return
	}
	s.handle.Stop()
	s.handle = nil
	s.Logger().Info("stopped")
}

// Status reports whether the accept loop is running
func (s *Service) Status() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && s.handle.Running()
}

// Handle returns the running handle or nil
func (s *Service) Handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || !s.handle.Running() {
		return nil
	}
	return s.handle
}

// Handle is a running service instance
type Handle struct {
	supervisor *Supervisor
	cancel     context.CancelFunc
	opts       Options
}

// Addr returns the bound address, useful when started on port 0
func (h *Handle) Addr() net.Addr {
	return h.supervisor.Addr()
}

// Port returns the bound port
func (h *Handle) Port() int {
	if addr, ok := h.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Options returns the options the handle was started with
func (h *Handle) Options() Options {
	return h.opts
}

// Running reports whether the accept loop is still running
func (h *Handle) Running() bool {
	select {
	case <-h.supervisor.Done():
		return false
	default:
		return true
	}
}

// Stop signals shutdown and waits for the accept loop, not for the connections it started.
// It is safe to call more than once.
func (h *Handle) Stop() {
	h.cancel()
	<-h.supervisor.Done()
}
