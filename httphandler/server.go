package httphandler

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/telebroad/lanshare/filesystem"
	"github.com/telebroad/lanshare/metrics"
	"github.com/telebroad/lanshare/server"
	"github.com/telebroad/lanshare/users"
)

// DefaultName is reported by /info when no name is configured
const DefaultName = "lanshare"

// maxDrain is how much of a body the handler did not read is discarded before the connection is closed
const maxDrain = 1 << 20

// Server answers one HTTP request per connection handed to it by a server.Supervisor
type Server struct {
	fs   filesystem.FS
	user *users.User

	// Name is reported by /info and shown in the page title
	Name string

	router  chi.Router
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Ensure that Server implements the server.Handler interface
var _ server.Handler = &Server{}

// NewServer creates a server for the file system, the password of user is the shared secret
func NewServer(fs filesystem.FS, user *users.User) *Server {
	s := &Server{
		fs:   fs,
		user: user,
		Name: DefaultName,
	}
	s.router = s.routes()
	return s
}

func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
}

func (s *Server) Logger() *slog.Logger {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s.logger.With("module", "http-server")
}

// SetMetrics sets the collectors requests and transfers are counted in
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// ServeHTTP lets the routes be used with any http.ResponseWriter, the tests use httptest with it
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ServeConn reads one request, answers it and closes the connection
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	req, err := readRequest(ctx, conn, bufio.NewReader(conn))
	if errors.Is(err, io.EOF) {
		return
	}
	w := newResponseWriter(conn)
	if err != nil {
		s.Logger().Debug("bad request", "remote", conn.RemoteAddr().String(), "error", err)
		writeError(w, http.StatusBadRequest, "bad request")
	} else {
		s.ServeHTTP(w, req)
		// unread body bytes make the close a reset, which can eat the response
		io.CopyN(io.Discard, req.Body, maxDrain)
	}
	if err := w.finish(); err != nil {
		s.Logger().Debug("error writing response", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.requireSecret)

	r.Get("/", s.Index)
	r.HandleFunc("/info", s.Info)
	r.Get("/list", s.List)
	r.Get("/download", s.Download)
	r.Post("/upload", s.Upload)
	r.Delete("/delete", s.Delete)
	r.Post("/rename", s.Rename)
	r.Post("/move", s.Move)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

// requestLogger logs every request once it is answered and counts it per route
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "other"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(route, status)
		s.Logger().Debug("request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// protectedRoutes need the shared secret, in the X-Auth header or in the token query parameter
var protectedRoutes = map[string]bool{
	"/list":     true,
	"/download": true,
	"/upload":   true,
	"/delete":   true,
	"/rename":   true,
	"/move":     true,
}

const (
	AuthHeader = "X-Auth"
	AuthQuery  = "token"
)

func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !protectedRoutes[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		err := s.user.VerifySecret(r.Header.Get(AuthHeader), r.RemoteAddr)
		if err != nil {
			err = s.user.VerifySecret(queryParam(r, AuthQuery, ""), r.RemoteAddr)
		}
		if err != nil {
			s.Logger().Info("unauthorized", "path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
			w.Header().Set("WWW-Authenticate", AuthHeader)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Config holds the HTTP specific settings of a service
type Config struct {
	Name            string
	AllowedNetworks []string
}

// NewService returns the HTTP start/stop/status surface.
// The password of the options is the shared secret, the username is not used.
func NewService(cfg Config, logger *slog.Logger, m *metrics.Metrics) *server.Service {
	svc := server.NewService(metrics.ProtocolHTTP, func(opts server.Options) (server.Handler, error) {
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
		if cfg.Name != "" {
			srv.Name = cfg.Name
		}
		srv.SetLogger(logger)
		srv.SetMetrics(m)
		return srv, nil
	})
	svc.SetLogger(logger)
	svc.SetMetrics(m)
	return svc
}
