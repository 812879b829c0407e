package tools

import (
	"bufio"
	"io"
	"log/slog"
)

// maxLogged is how much of a single read or write ends up in the debug log
const maxLogged = 256

// LogReadWriter is a wrapper around an io.ReadWriter that logs all reads and writes to a slog.Logger.
type LogReadWriter struct {
	ReadWriter io.ReadWriter
	logger     *slog.Logger
}

func (rw *LogReadWriter) Read(b []byte) (int, error) {
	n, err := rw.ReadWriter.Read(b)
	if rw.logger != nil && n > 0 {
		rw.logger.Debug("Request", "body", Printable(b[:n], maxLogged))
	}
	return n, err
}

func (rw *LogReadWriter) Write(b []byte) (int, error) {
	if rw.logger != nil {
		rw.logger.Debug("Respond", "body", Printable(b, maxLogged))
	}
	return rw.ReadWriter.Write(b)
}

// NewLogReadWriter creates a new LogReadWriter, a nil logger disables logging.
func NewLogReadWriter(rw io.ReadWriter, logger *slog.Logger) *LogReadWriter {
	return &LogReadWriter{ReadWriter: rw, logger: logger}
}

// BufLogReadWriter reads through a bufio.Reader and writes straight to the connection, both sides are logged
type BufLogReadWriter struct {
	io.Writer
	*bufio.Reader
}

// NewBufLogReadWriter creates a new BufLogReadWriter.
// the reason to divide it in 2 structs is to avoid the need to implement all the methods of bufio.ReadWriter
func NewBufLogReadWriter(rw io.ReadWriter, logger *slog.Logger) *BufLogReadWriter {
	lrw := NewLogReadWriter(rw, logger)
	return &BufLogReadWriter{
		Reader: bufio.NewReader(lrw),
		Writer: lrw,
	}
}
