package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/telebroad/lanshare/config"
	"github.com/telebroad/lanshare/ftp"
	"github.com/telebroad/lanshare/httphandler"
	"github.com/telebroad/lanshare/logging"
	"github.com/telebroad/lanshare/metrics"
	"github.com/telebroad/lanshare/server"
)

var (
	serveFTPPort  int
	serveHTTPPort int
	serveRoot     string
	serveNoQR     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FTP and HTTP services and run until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := applyServeFlags(cmd, cfg); err != nil {
			return err
		}

		logger := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(logger)
		logger.Info("logger initialized", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger, cmd.OutOrStdout(), !serveNoQR)
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveFTPPort, "ftp-port", 0, "FTP control port, overrides ftp.port")
	serveCmd.Flags().IntVar(&serveHTTPPort, "http-port", 0, "HTTP port, overrides http.port")
	serveCmd.Flags().StringVar(&serveRoot, "root", "", "shared directory for both services, overrides ftp.root and http.root")
	serveCmd.Flags().BoolVar(&serveNoQR, "no-qr", false, "do not print the QR code of the web UI")
}

// applyServeFlags puts the flags the user set on top of the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("ftp-port") {
		cfg.FTP.Port = serveFTPPort
	}
	if flags.Changed("http-port") {
		cfg.HTTP.Port = serveHTTPPort
	}
	if flags.Changed("root") {
		cfg.FTP.Root = serveRoot
		cfg.HTTP.Root = serveRoot
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// serve runs the services until ctx is done
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, qr bool) error {
	a, err := startApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.stop()

	host, err := lanAddress()
	if err != nil {
		logger.Warn("could not detect the LAN address, printing loopback URLs", "error", err)
		host = "127.0.0.1"
	}
	a.printAccess(out, host, qr)

	logger.Info("running, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

// app holds the services one serve command runs
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	ftp  *server.Service
	http *server.Service

	metricsServer   *http.Server
	metricsListener net.Listener
}

// startApp starts every enabled service. A service that fails to bind is logged and left stopped,
// it is an error only when nothing could be started.
func startApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewWithProcess()
		if err := a.startMetrics(); err != nil {
			logger.Error("metrics endpoint not started", "port", cfg.Metrics.Port, "error", err)
		}
	}

	if cfg.FTP.Enabled {
		a.ftp = ftp.NewService(ftp.Config{
			WelcomeMessage:  cfg.FTP.Welcome,
			PublicIPv4:      cfg.FTP.PublicIPv4,
			PasvMinPort:     cfg.FTP.PasvMinPort,
			PasvMaxPort:     cfg.FTP.PasvMaxPort,
			AllowedNetworks: cfg.FTP.AllowedNetworks,
		}, logger, a.metrics)
		_, err := a.ftp.Start(server.Options{
			Port:     cfg.FTP.Port,
			Root:     cfg.FTP.Root,
			Username: cfg.FTP.Username,
			Password: cfg.FTP.Password,
		})
		if err != nil {
			logger.Error("ftp service not started", "port", cfg.FTP.Port, "error", err)
		}
	}

	if cfg.HTTP.Enabled {
		a.http = httphandler.NewService(httphandler.Config{
			Name:            cfg.HTTP.Name,
			AllowedNetworks: cfg.HTTP.AllowedNetworks,
		}, logger, a.metrics)
		_, err := a.http.Start(server.Options{
			Port:     cfg.HTTP.Port,
			Root:     cfg.HTTP.Root,
			Password: cfg.HTTP.Password,
		})
		if err != nil {
			logger.Error("http service not started", "port", cfg.HTTP.Port, "error", err)
		}
	}

	if !running(a.ftp) && !running(a.http) {
		a.stop()
		return nil, errors.New("no service is running, check that ftp or http is enabled and its port is free")
	}
	return a, nil
}

func running(svc *server.Service) bool {
	return svc != nil && svc.Status()
}

func (a *app) startMetrics() error {
	listener, err := server.Listen(a.cfg.Metrics.Port)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsListener = listener
	a.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics endpoint stopped", "error", err)
		}
	}()
	a.logger.Info("metrics endpoint started", "addr", listener.Addr().String())
	return nil
}

// stop stops the services, sessions already running finish on their own
func (a *app) stop() {
	if a.ftp != nil {
		a.ftp.Stop()
	}
	if a.http != nil {
		a.http.Stop()
	}
	if a.metricsServer != nil {
		a.metricsServer.Close()
	}
}

// printAccess tells the user where the services can be reached
func (a *app) printAccess(w io.Writer, host string, qr bool) {
	if running(a.ftp) {
		fmt.Fprintf(w, "FTP:     ftp://%s:%d  (user %q, passive mode)\n", host, a.ftp.Handle().Port(), a.cfg.FTP.Username)
	}
	if a.metricsListener != nil {
		fmt.Fprintf(w, "Metrics: http://%s:%d/metrics\n", host, a.metricsListener.Addr().(*net.TCPAddr).Port)
	}
	if !running(a.http) {
		return
	}
	webURL := fmt.Sprintf("http://%s:%d/", host, a.http.Handle().Port())
	fmt.Fprintf(w, "Web UI:  %s\n", webURL)
	if qr {
		fmt.Fprintln(w, "Scan to open the web UI:")
		printQR(w, webURL)
	}
}
