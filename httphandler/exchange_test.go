package httphandler

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telebroad/lanshare/server"
)

func startTestService(t *testing.T, cfg Config) (*server.Handle, string) {
	t.Helper()
	root := t.TempDir()
	svc := NewService(cfg, nil, nil)
	h, err := svc.Start(server.Options{Port: 0, Root: root, Password: testSecret})
	require.NoError(t, err)
	t.Cleanup(svc.Stop)
	return h, root
}

// rawExchange writes the request bytes and reads until the server closes the connection
func rawExchange(t *testing.T, h *server.Handle, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", h.Port()))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(conn, request)
	require.NoError(t, err)
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

func TestServiceScenario(t *testing.T) {
	h, root := startTestService(t, Config{Name: "office"})
	base := fmt.Sprintf("http://127.0.0.1:%d", h.Port())
	client := &http.Client{Timeout: 5 * time.Second}

	call := func(method, target string, body []byte) (*http.Response, string) {
		t.Helper()
		req, err := http.NewRequest(method, base+target, bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set(AuthHeader, testSecret)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(data)
	}

	resp, body := call(http.MethodGet, "/list?path=/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", body)
	assert.True(t, resp.Close, "every response closes the connection")

	resp, body = call(http.MethodPost, "/upload?path=/x.bin", []byte{0x00, 0x01, 0x02})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, body)

	resp, body = call(http.MethodGet, "/list?path=/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `[{"name":"x.bin","is_dir":false,"size":3}]`, body)

	payload := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 10000)
	resp, _ = call(http.MethodPost, "/upload?path=/nested/dir/blob.bin", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(http.MethodGet, "/download?path=/nested/dir/blob.bin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(len(payload)), resp.ContentLength)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, payload, []byte(body))

	resp, body = call(http.MethodDelete, "/delete?path=/nested", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, body)
	assert.NoDirExists(t, filepath.Join(root, "nested"))

	resp, _ = call(http.MethodDelete, "/delete?path=/nested", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// an upload that is refused still gets its answer
	req, err := http.NewRequest(http.MethodPost, base+"/upload?path=/y.bin", bytes.NewReader(payload))
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NoFileExists(t, filepath.Join(root, "y.bin"))
}

func TestRawResponse(t *testing.T) {
	h, root := startTestService(t, Config{})
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	resp := rawExchange(t, h, "GET /info HTTP/1.1\r\nHost: x\r\n\r\n")
	head, body, ok := strings.Cut(resp, "\r\n\r\n")
	require.True(t, ok, resp)
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"), head)
	assert.Contains(t, head, "Connection: close\r\n")
	assert.Contains(t, head, "Content-Type: application/json\r\n")
	assert.Contains(t, head, fmt.Sprintf("Content-Length: %d\r\n", len(body)))
	assert.Contains(t, body, `"status":"running"`)

	resp = rawExchange(t, h, "GET /download?path=%2Fa.txt&token=secret HTTP/1.1\r\n\r\n")
	head, body, ok = strings.Cut(resp, "\r\n\r\n")
	require.True(t, ok, resp)
	assert.Contains(t, head, "Content-Length: 5\r\n")
	assert.Equal(t, 1, strings.Count(head, "Content-Length"))
	assert.Equal(t, "hello", body)

	resp = rawExchange(t, h, "GET /list HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 401 Unauthorized\r\n"), resp)
	assert.Contains(t, resp, "Www-Authenticate: X-Auth\r\n")

	resp = rawExchange(t, h, "GET /nope HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 404 Not Found\r\n"), resp)
	assert.True(t, strings.HasSuffix(resp, `{"error":"not found"}`), resp)
}

func TestRawRequestBody(t *testing.T) {
	h, root := startTestService(t, Config{})

	// the body is exactly Content-Length bytes, the rest is ignored
	resp := rawExchange(t, h, "POST /upload?path=/b.bin HTTP/1.1\r\nX-Auth: secret\r\nContent-Length: 3\r\n\r\nabcdef")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n"), resp)
	got, err := os.ReadFile(filepath.Join(root, "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	// without Content-Length there is no body
	resp = rawExchange(t, h, "POST /upload?path=/c.bin HTTP/1.1\r\nX-Auth: secret\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n"), resp)
	got, err = os.ReadFile(filepath.Join(root, "c.bin"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRawMalformedRequest(t *testing.T) {
	h, _ := startTestService(t, Config{})

	resp := rawExchange(t, h, "this is not http\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 400 Bad Request\r\n"), resp)
	assert.True(t, strings.HasSuffix(resp, `{"error":"bad request"}`), resp)

	// a connection closed without a request gets nothing back
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", h.Port()))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = bufio.NewReader(conn).ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	conn.Close()
}

func TestResponseWriter(t *testing.T) {
	var buf bytes.Buffer
	w := newResponseWriter(&buf)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusTeapot)
	_, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.finish())

	resp, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(3), resp.ContentLength)
	assert.True(t, resp.Close)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))

	// nothing written is an empty 200
	buf.Reset()
	w = newResponseWriter(&buf)
	require.NoError(t, w.finish())
	assert.Equal(t, "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", buf.String())
}
