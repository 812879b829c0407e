package ftp

import (
	"fmt"
	"net"
	"strings"

	"github.com/telebroad/lanshare/filesystem"
)

// transfer answers 150, waits for the client on the passive listener and runs fn with the data connection.
// Errors from fn only end up in the log: the data connection is closed and 226 is still sent,
// so the client can not tell a cut transfer from a complete one.
func (s *Session) transfer(listener net.Listener, what string, fn func(dataConn net.Conn) (int64, error)) int64 {
	s.reply(StatusFileStatusOK, "Opening data connection for "+what)

	dataConn, err := listener.Accept()
	if err != nil {
		s.Logger().Warn("error accepting data connection", "error", err)
		s.reply(StatusCantOpenDataConnection, "Cannot open data connection")
		return 0
	}

	n, err := fn(dataConn)
	dataConn.Close()
	if err != nil {
		s.Logger().Warn("data transfer failed", "what", what, "bytes", n, "error", err)
	} else {
		s.Logger().Debug("transfer_complete", "what", what, "bytes", n)
	}

	s.reply(StatusClosingDataConnection, "Transfer complete")
	return n
}

// isRegularFile reports whether the resolved path is a regular file
func (s *Session) isRegularFile(name string) bool {
	info, err := s.ftpServer.fs.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// listTarget drops "ls" style option words from a LIST argument
func listTarget(arg string) string {
	var parts []string
	for _, field := range strings.Fields(arg) {
		if strings.HasPrefix(field, "-") {
			continue
		}
		parts = append(parts, field)
	}
	return strings.Join(parts, " ")
}

// listLine formats an entry the way "ls -l" does, permissions, owner and time are fixed
func listLine(entry filesystem.Entry) string {
	kind := '-'
	if entry.IsDir {
		kind = 'd'
	}
	return fmt.Sprintf("%crw-rw-rw- 1 owner group %10d Jan 01 00:00 %s\r\n", kind, entry.Size, entry.Name)
}
