package ftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"

	"github.com/google/uuid"
	"github.com/telebroad/lanshare/filesystem"
	"github.com/telebroad/lanshare/metrics"
	"github.com/telebroad/lanshare/server"
	"github.com/telebroad/lanshare/tools"
	"github.com/telebroad/lanshare/users"
)

// DefaultWelcomeMessage is sent with the 220 greeting when none is configured
const DefaultWelcomeMessage = "lanshare FTP ready"

// Server serves the FTP control protocol on connections handed to it by a server.Supervisor
type Server struct {
	fs   filesystem.FS
	user *users.User

	// WelcomeMessage is the text of the 220 greeting
	WelcomeMessage string
	// PublicServerIPv4 is advertised by PASV when set, otherwise the address is detected per session
	PublicServerIPv4 netip.Addr
	// PasvMinPort and PasvMaxPort limit the passive ports, zero lets the OS choose
	PasvMinPort int
	PasvMaxPort int

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Ensure that Server implements the server.Handler interface
var _ server.Handler = &Server{}

// NewServer creates a server for the file system and the single user allowed to log in
func NewServer(fs filesystem.FS, user *users.User) *Server {
	return &Server{
		fs:             fs,
		user:           user,
		WelcomeMessage: DefaultWelcomeMessage,
	}
}

func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
}

func (s *Server) Logger() *slog.Logger {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s.logger.With("module", "ftp-server")
}

// SetMetrics sets the collectors commands and transfers are counted in
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetPublicServerIPv4 sets the address advertised in PASV replies, an empty string clears it
func (s *Server) SetPublicServerIPv4(ip string) error {
	if ip == "" {
		s.PublicServerIPv4 = netip.Addr{}
		return nil
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("error parsing public ip: %w", err)
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return fmt.Errorf("public ip %s is not an IPv4 address", ip)
	}
	s.PublicServerIPv4 = addr
	return nil
}

// passiveIP returns the address to put in the PASV reply of a session
func (s *Server) passiveIP(control net.Conn) netip.Addr {
	if s.PublicServerIPv4.IsValid() {
		return s.PublicServerIPv4
	}
	return selectPassiveIP(control.LocalAddr(), control.RemoteAddr())
}

// ServeConn runs the session of one control connection until QUIT, a read error or shutdown.
// Shutdown is only noticed between commands, a session blocked in a read keeps running.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	id := uuid.NewString()
	logger := s.Logger().With("session", id, "remote", conn.RemoteAddr().String())
	session := &Session{
		ftpServer:  s,
		conn:       conn,
		readWriter: tools.NewBufLogReadWriter(conn, logger),
		id:         id,
		workingDir: s.fs.RootDir(),
		logger:     logger,
	}
	defer session.CloseDataConnection()

	logger.Info("session started")
	defer logger.Info("session ended")

	session.reply(StatusServiceReadyForNewUser, s.WelcomeMessage)
	handlers := session.handlers()

	for {
		if ctx.Err() != nil {
			logger.Debug("service stopped, closing session")
			return
		}

		cmd, arg, err := session.ParseCommand()
		if errors.Is(err, ErrProtocol) {
			session.reply(StatusSyntaxErrorInParameters, "Command line too long")
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("error reading command", "error", err)
			}
			return
		}
		if cmd == "" {
			continue
		}

		label := cmd
		handler, ok := handlers[cmd]
		if !ok {
			handler = session.UnknownCommand
			label = "OTHER"
		}
		err = handler(cmd, arg)
		s.metrics.FTPCommand(label, session.lastCode)
		if err != nil {
			if !errors.Is(err, errQuit) {
				logger.Warn("closing session", "command", cmd, "error", err)
			}
			return
		}
	}
}

// Config holds the FTP specific settings of a service
type Config struct {
	WelcomeMessage  string
	PublicIPv4      string
	PasvMinPort     int
	PasvMaxPort     int
	AllowedNetworks []string
}

// NewService returns the FTP start/stop/status surface.
// Every Start prepares the root and builds a new Server from the options and cfg.
func NewService(cfg Config, logger *slog.Logger, m *metrics.Metrics) *server.Service {
	svc := server.NewService(metrics.ProtocolFTP, func(opts server.Options) (server.Handler, error) {
		fsys, err := filesystem.NewLocalFS(opts.Root)
		if err != nil {
			return nil, err
		}

		user := users.NewUser(opts.Username, opts.Password)
		for _, network := range cfg.AllowedNetworks {
			if err := user.AddIP(network); err != nil {
				return nil, err
			}
		}

		srv := NewServer(fsys, user)
		if cfg.WelcomeMessage != "" {
			srv.WelcomeMessage = cfg.WelcomeMessage
		}
		if err := srv.SetPublicServerIPv4(cfg.PublicIPv4); err != nil {
			return nil, err
		}
		srv.PasvMinPort = cfg.PasvMinPort
		srv.PasvMaxPort = cfg.PasvMaxPort
		srv.SetLogger(logger)
		srv.SetMetrics(m)
		return srv, nil
	})
	svc.SetLogger(logger)
	svc.SetMetrics(m)
	return svc
}
