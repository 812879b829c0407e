package ftp

import (
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"

	"github.com/telebroad/lanshare/filesystem"
	"github.com/telebroad/lanshare/metrics"
)

// UserCommand handles the USER command from the client.
// It only remembers the name, PASS does the check.
func (s *Session) UserCommand(cmd, arg string) error {
	s.username = arg
	s.reply(StatusUserNameOK, "User name okay, need password")
	return nil
}

// PassCommand handles the PASS command from the client.
func (s *Session) PassCommand(cmd, arg string) error {
	err := s.ftpServer.user.Verify(s.username, arg, s.conn.RemoteAddr().String())
	if err != nil {
		s.Logger().Info("login failed", "username", s.username, "error", err)
		s.reply(StatusNotLoggedIn, "Authentication failed")
		return nil
	}
	s.isAuthenticated = true
	s.Logger().Info("logged in", "username", s.username)
	s.reply(StatusUserLoggedIn, "User logged in")
	return nil
}

// SystemCommand returns the system type.
func (s *Session) SystemCommand(cmd, arg string) error {
	s.reply(StatusNameSystemType, "UNIX Type: L8")
	return nil
}

// TypeCommand handles the TYPE command from the client.
// Every transfer is binary so any type is accepted.
func (s *Session) TypeCommand(cmd, arg string) error {
	s.reply(StatusCommandOK, "Type set")
	return nil
}

// NoopCommand handles the NOOP command from the client.
// The NOOP command is used to keep the connection alive.
func (s *Session) NoopCommand(cmd, arg string) error {
	s.reply(StatusCommandOK, "OK")
	return nil
}

func (s *Session) FeaturesCommand(cmd, arg string) error {
	s.replyLines(StatusSystemStatus, "Features", []string{"UTF8", "EPSV", "PASV"}, "End")
	return nil
}

// OptsCommand handles the OPTS command from the client.
// Names are always UTF-8, so only the UTF8 option is known.
func (s *Session) OptsCommand(cmd, arg string) error {
	if strings.HasPrefix(strings.ToUpper(arg), "UTF8") {
		s.reply(StatusCommandOK, "UTF8 set to on")
		return nil
	}
	s.reply(StatusSyntaxErrorInParameters, "Option not supported")
	return nil
}

// AuthCommand handles the AUTH command from the client, there is no TLS support.
func (s *Session) AuthCommand(cmd, arg string) error {
	s.reply(StatusSyntaxErrorNotImplemented, "TLS not supported")
	return nil
}

// PrintWorkingDirectoryCommand handles the PWD command from the client.
// The directory is reported relative to the root.
func (s *Session) PrintWorkingDirectoryCommand(cmd, arg string) error {
	s.reply(StatusPathnameCreated, fmt.Sprintf("%q is the current directory", s.ftpServer.fs.VirtualPath(s.workingDir)))
	return nil
}

// ChangeDirectoryToParentCommand handles the CDUP command from the client.
func (s *Session) ChangeDirectoryToParentCommand(cmd, arg string) error {
	if !s.requireLogin() {
		return nil
	}
	if !s.changeToParent() {
		s.reply(StatusFileUnavailable, "Not permitted")
		return nil
	}
	s.reply(StatusCommandOK, "Command okay")
	return nil
}

// ChangeDirectoryCommand handles the CWD command from the client.
// "CWD .." is CDUP, any other argument must resolve to a directory inside the root.
func (s *Session) ChangeDirectoryCommand(cmd, arg string) error {
	if !s.requireLogin() {
		return nil
	}

	if arg == ".." || arg == "../" {
		if !s.changeToParent() {
			s.reply(StatusFileUnavailable, "Failed to change directory")
			return nil
		}
		s.reply(StatusFileActionOK, "Directory changed")
		return nil
	}

	dir, err := s.resolveDir(arg)
	if err != nil {
		s.Logger().Debug("CWD refused", "arg", arg, "error", err)
		s.reply(StatusFileUnavailable, "Failed to change directory")
		return nil
	}
	s.workingDir = dir
	s.reply(StatusFileActionOK, "Directory changed")
	return nil
}

// changeToParent moves the working directory one level up when the parent is still inside the root
func (s *Session) changeToParent() bool {
	parent, err := s.ftpServer.fs.ResolveExisting(filepath.Dir(s.workingDir), "")
	if err != nil {
		return false
	}
	s.workingDir = parent
	return true
}

// resolveDir resolves the argument to an existing directory
func (s *Session) resolveDir(arg string) (string, error) {
	dir, err := s.ftpServer.fs.ResolveExisting(s.workingDir, arg)
	if err != nil {
		return "", err
	}
	info, err := s.ftpServer.fs.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", filesystem.ErrNotDirectory, arg)
	}
	return dir, nil
}

// PassiveModeCommand handles the PASV command from the client.
// The PASV command is used to enter passive mode.
func (s *Session) PassiveModeCommand(cmd, arg string) error {
	if !s.requireLogin() {
		return nil
	}
	listener, port, err := listenPassive(s.ftpServer.PasvMinPort, s.ftpServer.PasvMaxPort)
	if err != nil {
		s.Logger().Warn("PASV failed", "error", err)
		s.reply(StatusCantOpenDataConnection, "Cannot open passive connection")
		return nil
	}
	s.setDataListener(listener)
	s.reply(StatusEnteringPassiveMode, pasvReply(s.ftpServer.passiveIP(s.conn), port))
	return nil
}

// ExtendedPassiveModeCommand handles the EPSV command from the client.
// Only the port is sent, the client reuses the address of the control connection.
func (s *Session) ExtendedPassiveModeCommand(cmd, arg string) error {
	if !s.requireLogin() {
		return nil
	}
	listener, port, err := listenPassive(s.ftpServer.PasvMinPort, s.ftpServer.PasvMaxPort)
	if err != nil {
		s.Logger().Warn("EPSV failed", "error", err)
		s.reply(StatusCantOpenDataConnection, "Cannot open passive connection")
		return nil
	}
	s.setDataListener(listener)
	s.reply(StatusEnteringExtendedPassiveMode, epsvReply(port))
	return nil
}

// ListCommand handles the LIST command from the client.
// Without an argument the working directory is listed, option words like "-a" are ignored.
func (s *Session) ListCommand(cmd, arg string) error {
	if !s.requireLogin() {
		return nil
	}
	listener := s.takeDataListener()
	if listener == nil {
		s.reply(StatusCantOpenDataConnection, "Use PASV first")
		return nil
	}
	defer listener.Close()

	dir := s.workingDir
	if target := listTarget(arg); target != "" {
		var err error
		dir, err = s.resolveDir(target)
		if err != nil {
			s.reply(StatusFileUnavailable, "Failed to list directory")
			return nil
		}
	}

	s.transfer(listener, "directory listing", func(dataConn net.Conn) (int64, error) {
		entries, err := s.ftpServer.fs.Dir(dir)
		if err != nil {
			return 0, err
		}
		var written int64
		for _, entry := range entries {
			n, err := io.WriteString(dataConn, listLine(entry))
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
		return written, nil
	})
	return nil
}

// RetrieveCommand handles the RETR command from the client.
func (s *Session) RetrieveCommand(cmd, arg string) error {
	if !s.requireLogin() {
		return nil
	}
	listener := s.takeDataListener()
	if listener == nil {
		s.reply(StatusCantOpenDataConnection, "Use PASV first")
		return nil
	}
	defer listener.Close()

	fileName, err := s.ftpServer.fs.ResolveExisting(s.workingDir, arg)
	if err != nil || !s.isRegularFile(fileName) {
		s.reply(StatusFileUnavailable, "File unavailable")
		return nil
	}

	n := s.transfer(listener, filepath.Base(fileName), func(dataConn net.Conn) (int64, error) {
		return s.ftpServer.fs.ReadFile(fileName, dataConn)
	})
	s.ftpServer.metrics.Transfer(metrics.ProtocolFTP, metrics.DirectionDownload, n)
	return nil
}

// SaveCommand handles the STOR command from the client.
// The parent directory must already exist, the file is created or truncated.
func (s *Session) SaveCommand(cmd, arg string) error {
	if !s.requireLogin() {
		return nil
	}
	listener := s.takeDataListener()
	if listener == nil {
		s.reply(StatusCantOpenDataConnection, "Use PASV first")
		return nil
	}
	defer listener.Close()

	fileName, err := s.ftpServer.fs.ResolveNewTarget(s.workingDir, arg)
	if err != nil {
		s.Logger().Debug("STOR refused", "arg", arg, "error", err)
		s.reply(StatusFileUnavailable, "Invalid path")
		return nil
	}

	n := s.transfer(listener, filepath.Base(fileName), func(dataConn net.Conn) (int64, error) {
		return s.ftpServer.fs.WriteFile(fileName, dataConn)
	})
	s.ftpServer.metrics.Transfer(metrics.ProtocolFTP, metrics.DirectionUpload, n)
	return nil
}

// CloseCommand handles the QUIT command, the session ends after the reply
func (s *Session) CloseCommand(cmd, arg string) error {
	s.reply(StatusServiceClosingControlConnection, "Goodbye")
	return errQuit
}

func (s *Session) UnknownCommand(cmd, arg string) error {
	s.reply(StatusSyntaxErrorNotImplemented, "Command not implemented")
	return nil
}
