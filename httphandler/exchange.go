package httphandler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/telebroad/lanshare/filesystem"
)

// ErrProtocol is returned when the request line or the headers can not be parsed
var ErrProtocol = errors.New("malformed http request")

// readRequest reads the one request a connection carries.
// The body is exactly Content-Length bytes, a request without a positive Content-Length has no body.
func readRequest(ctx context.Context, conn net.Conn, br *bufio.Reader) (*http.Request, error) {
	req, err := http.ReadRequest(br)
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if req.ContentLength <= 0 {
		req.ContentLength = 0
		req.Body = http.NoBody
	}
	req.RemoteAddr = conn.RemoteAddr().String()
	return req.WithContext(ctx), nil
}

// responseWriter writes a single HTTP/1.1 response straight to the connection.
// A body is buffered so Content-Length can be added when the handler is done,
// unless the handler sets Content-Length itself, then the body is streamed.
type responseWriter struct {
	w      *bufio.Writer
	header http.Header
	status int

	wroteHeader bool
	streaming   bool
	body        bytes.Buffer
	err         error
}

// Ensure that responseWriter implements the http.ResponseWriter interface
var _ http.ResponseWriter = &responseWriter{}

func newResponseWriter(w io.Writer) *responseWriter {
	return &responseWriter{
		w:      bufio.NewWriterSize(w, filesystem.ChunkSize),
		header: make(http.Header),
	}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	if w.header.Get("Content-Length") != "" {
		w.streaming = true
		w.writeHead()
	}
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.err != nil {
		return 0, w.err
	}
	if !w.streaming {
		return w.body.Write(p)
	}
	n, err := w.w.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

// finish sends whatever is still buffered, after it the connection can be closed
func (w *responseWriter) finish() error {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if !w.streaming {
		w.header.Set("Content-Length", strconv.Itoa(w.body.Len()))
		w.writeHead()
		if _, err := w.w.Write(w.body.Bytes()); err != nil {
			return err
		}
	}
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *responseWriter) writeHead() {
	w.header.Set("Connection", "close")
	fmt.Fprintf(w.w, "HTTP/1.1 %d %s\r\n", w.status, http.StatusText(w.status))
	if err := w.header.Write(w.w); err != nil {
		w.err = err
		return
	}
	if _, err := w.w.WriteString("\r\n"); err != nil {
		w.err = err
	}
}
