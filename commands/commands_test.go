package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telebroad/lanshare/config"
)

// runCommand runs the root command with args and returns what it printed
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		initForce = false
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("lanshare %s (commit: %s, built: %s)\n", Version, Commit, Date), out)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanshare.yaml")

	out, err := runCommand(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = runCommand(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = runCommand(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)

	t.Setenv("LANSHARE_HTTP_PORT", "8181")
	out, err = runCommand(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "port: 8181")
	assert.Contains(t, out, "port: 2121")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.FTP.Port = 0
	cfg.FTP.Root = t.TempDir()
	cfg.HTTP.Port = 0
	cfg.HTTP.Root = cfg.FTP.Root
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartApp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 0

	a, err := startApp(cfg, discardLogger())
	require.NoError(t, err)
	defer a.stop()

	require.True(t, running(a.ftp))
	require.True(t, running(a.http))
	require.NotNil(t, a.metricsListener)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/info", a.http.Handle().Port()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", a.ftp.Handle().Port()))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	greeting := make([]byte, 4)
	_, err = io.ReadFull(conn, greeting)
	require.NoError(t, err)
	assert.Equal(t, "220 ", string(greeting))
	conn.Close()

	resp, err = client.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", a.metricsListener.Addr().(*net.TCPAddr).Port))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "lanshare_connections_total")

	var out bytes.Buffer
	a.printAccess(&out, "192.168.1.5", true)
	assert.Contains(t, out.String(), fmt.Sprintf("ftp://192.168.1.5:%d", a.ftp.Handle().Port()))
	assert.Contains(t, out.String(), fmt.Sprintf("http://192.168.1.5:%d/", a.http.Handle().Port()))
	assert.Contains(t, out.String(), "Scan to open the web UI")

	a.stop()
	assert.False(t, running(a.ftp))
	assert.False(t, running(a.http))
}

func TestStartAppOneServiceFails(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.FTP.Port = busy.Addr().(*net.TCPAddr).Port

	a, err := startApp(cfg, discardLogger())
	require.NoError(t, err)
	defer a.stop()
	assert.False(t, running(a.ftp))
	assert.True(t, running(a.http))

	var out bytes.Buffer
	a.printAccess(&out, "10.0.0.2", false)
	assert.NotContains(t, out.String(), "ftp://")
	assert.NotContains(t, out.String(), "Scan")
}

func TestStartAppNothingRuns(t *testing.T) {
	cfg := testConfig(t)
	cfg.FTP.Enabled = false
	cfg.HTTP.Enabled = false

	_, err := startApp(cfg, discardLogger())
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- serve(ctx, cfg, discardLogger(), &out, false)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.True(t, strings.Contains(out.String(), "Web UI:"))
}

func TestMatchGateway(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("10.0.0.5").To4(), Mask: net.CIDRMask(24, 32)},
		&net.IPNet{IP: net.ParseIP("192.168.1.20").To4(), Mask: net.CIDRMask(24, 32)},
	}
	assert.Equal(t, "192.168.1.20", matchGateway(addrs, net.ParseIP("192.168.1.1")).String())
	assert.Equal(t, "10.0.0.5", matchGateway(addrs, net.ParseIP("10.0.0.1")).String())
	assert.Nil(t, matchGateway(addrs, net.ParseIP("172.16.0.1")))
	assert.Nil(t, matchGateway(addrs, net.ParseIP("127.0.0.2")))
}

func TestPrintQR(t *testing.T) {
	var out bytes.Buffer
	printQR(&out, "http://192.168.1.5:8080/")
	assert.Greater(t, strings.Count(out.String(), "\n"), 10)
}
