package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/telebroad/lanshare/metrics"
)

// PollInterval is how long a single accept call may block before the shutdown signal is checked again
const PollInterval = 100 * time.Millisecond

var (
	// ErrAlreadyInUse is returned when the listening port is taken
	ErrAlreadyInUse = errors.New("address already in use")
	// ErrNetwork is returned for any other bind or accept failure
	ErrNetwork = errors.New("network error")
)

// Handler serves a single accepted connection.
// ctx is cancelled once the service is stopped, handlers decide for themselves when to look at it.
type Handler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, conn net.Conn)

func (f HandlerFunc) ServeConn(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

// Listen binds a TCP listener on every interface
func Listen(port int) (*net.TCPListener, error) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: port})
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("%w: port %d: %v", ErrAlreadyInUse, port, err)
		}
		return nil, fmt.Errorf("%w: port %d: %v", ErrNetwork, port, err)
	}
	return ln, nil
}

// Supervisor accepts connections and runs every one of them in its own goroutine
type Supervisor struct {
	listener *net.TCPListener
	handler  Handler
	protocol string
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// PollInterval overrides the package default when set before Serve
	PollInterval time.Duration

	done chan struct{}
}

// NewSupervisor creates a supervisor for the listener, Serve starts accepting
func NewSupervisor(listener *net.TCPListener, protocol string, handler Handler) *Supervisor {
	return &Supervisor{
		listener:     listener,
		handler:      handler,
		protocol:     protocol,
		PollInterval: PollInterval,
		done:         make(chan struct{}),
	}
}

func (s *Supervisor) SetLogger(l *slog.Logger) {
	s.logger = l
}

func (s *Supervisor) Logger() *slog.Logger {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s.logger.With("module", s.protocol+"-supervisor")
}

// SetMetrics sets the collectors connections are counted in, nil disables counting
func (s *Supervisor) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Addr returns the bound address
func (s *Supervisor) Addr() net.Addr {
	return s.listener.Addr()
}

// Done is closed when the accept loop has ended
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Serve runs the accept loop until ctx is cancelled or accept fails with anything but a timeout.
// The accept call is bounded by a deadline so the loop notices the shutdown signal within PollInterval.
// Connections that are still being handled when Serve returns are left alone.
func (s *Supervisor) Serve(ctx context.Context) {
	defer close(s.done)
	defer s.listener.Close()

	s.Logger().Info("accepting connections", "addr", s.Addr().String())
	for {
		if ctx.Err() != nil {
			s.Logger().Info("stopped accepting connections", "addr", s.Addr().String())
			return
		}

		err := s.listener.SetDeadline(time.Now().Add(s.PollInterval))
		if err != nil {
			s.Logger().Error("error setting accept deadline", "error", err)
			return
		}
		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.Logger().Error("error accepting connection, stopping", "error", fmt.Errorf("%w: %v", ErrNetwork, err))
			return
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Supervisor) serveConn(ctx context.Context, conn net.Conn) {
	s.metrics.ConnectionOpened(s.protocol)
	defer s.metrics.ConnectionClosed(s.protocol)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.Logger().Error("recovered from panic", "remote", conn.RemoteAddr().String(), "panic", r, "stack", string(debug.Stack()))
		}
	}()

	s.handler.ServeConn(ctx, conn)
}
