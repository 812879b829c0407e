package ftp

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/telebroad/lanshare/tools"
)

// maxLineLength bounds a single command line
const maxLineLength = 8 * 1024

var (
	// ErrProtocol is returned for a control line that can not be a command
	ErrProtocol = errors.New("malformed command line")
	// errQuit ends the session after QUIT was answered
	errQuit = errors.New("quit")
)

// Session represents an individual client FTP session.
type Session struct {
	ftpServer       *Server                 // The server the session belongs to
	conn            net.Conn                // The control connection to the client
	readWriter      *tools.BufLogReadWriter // ReadWriter for the connection (used for writing responses)
	id              string                  // Session id, only used in logs
	workingDir      string                  // Current working directory, always resolved inside the root
	username        string                  // Username sent with USER, checked by PASS
	isAuthenticated bool                    // Authentication status
	dataListener    net.Listener            // Passive listener waiting for the next LIST, RETR or STOR
	lastCode        StatusCode              // Code of the last reply, for metrics
	logger          *slog.Logger
}

type handlerMap map[Command]func(cmd, arg string) error

func (s *Session) handlers() handlerMap {
	return handlerMap{
		CommandUSER: s.UserCommand,
		CommandPASS: s.PassCommand,
		CommandSYST: s.SystemCommand,
		CommandTYPE: s.TypeCommand,
		CommandNOOP: s.NoopCommand,
		CommandFEAT: s.FeaturesCommand,
		CommandOPTS: s.OptsCommand,
		CommandAUTH: s.AuthCommand,
		CommandPWD:  s.PrintWorkingDirectoryCommand,
		CommandCDUP: s.ChangeDirectoryToParentCommand,
		CommandCWD:  s.ChangeDirectoryCommand,
		CommandPASV: s.PassiveModeCommand,
		CommandEPSV: s.ExtendedPassiveModeCommand,
		CommandLIST: s.ListCommand,
		CommandRETR: s.RetrieveCommand,
		CommandSTOR: s.SaveCommand,
		CommandQUIT: s.CloseCommand,
	}
}

func (s *Session) Logger() *slog.Logger {
	if s.logger == nil {
		s.logger = s.ftpServer.Logger().With("session", s.id)
	}
	return s.logger
}

// ParseCommand reads one line and splits it into the upper cased verb and the trimmed argument.
// An empty line gives an empty verb.
func (s *Session) ParseCommand() (cmd, arg string, err error) {
	line, err := s.readLine()
	if err != nil {
		return "", "", err
	}

	line = strings.TrimSpace(line)
	cmd, arg, _ = strings.Cut(line, " ")
	return strings.ToUpper(cmd), strings.TrimSpace(arg), nil
}

// readLine reads up to and including '\n', a line longer than maxLineLength is consumed and reported as ErrProtocol
func (s *Session) readLine() (string, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := s.readWriter.ReadSlice('\n')
		if len(line)+len(chunk) > maxLineLength {
			tooLong = true
		} else {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("error reading from connection: %w", err)
		}
		break
	}
	if tooLong {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrProtocol, maxLineLength)
	}
	return string(line), nil
}

// reply writes a single "<code> <text>" line
func (s *Session) reply(code StatusCode, text string) {
	s.lastCode = code
	fmt.Fprintf(s.readWriter, "%d %s\r\n", code, text)
}

// replyLines writes a multi line reply, every line but the last uses the "<code>-" form
func (s *Session) replyLines(code StatusCode, first string, middle []string, last string) {
	s.lastCode = code
	fmt.Fprintf(s.readWriter, "%d-%s\r\n", code, first)
	for _, line := range middle {
		fmt.Fprintf(s.readWriter, " %s\r\n", line)
	}
	fmt.Fprintf(s.readWriter, "%d %s\r\n", code, last)
}

// requireLogin replies 530 and returns false when the session is not authenticated
func (s *Session) requireLogin() bool {
	if !s.isAuthenticated {
		s.reply(StatusNotLoggedIn, "Not logged in")
		return false
	}
	return true
}

// setDataListener replaces the pending passive listener
func (s *Session) setDataListener(listener net.Listener) {
	s.CloseDataConnection()
	s.dataListener = listener
}

// takeDataListener returns the pending passive listener and clears it, the caller closes it
func (s *Session) takeDataListener() net.Listener {
	listener := s.dataListener
	s.dataListener = nil
	return listener
}

// CloseDataConnection closes the pending passive listener, if any
func (s *Session) CloseDataConnection() {
	if s.dataListener != nil {
		s.dataListener.Close()
		s.dataListener = nil
	}
}
