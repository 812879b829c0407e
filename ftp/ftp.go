// Package ftp implements the passive-mode FTP subset of the LAN file service.
// It contains the FTP status codes and commands, the per connection session state machine
// and the passive data channel negotiation.
package ftp

// StatusCode is a type for FTP status codes
type StatusCode = int

const (
	// Informational codes (1xx)
	StatusFileStatusOK StatusCode = 150 // File status okay; about to open data connection

	// Success codes (2xx)
	StatusCommandOK                       StatusCode = 200 // Command okay
	StatusSystemStatus                    StatusCode = 211 // System status, or system help reply
	StatusNameSystemType                  StatusCode = 215 // NAME system type
	StatusServiceReadyForNewUser          StatusCode = 220 // Service ready for new user
	StatusServiceClosingControlConnection StatusCode = 221 // Service closing control connection
	StatusDataConnectionOpen              StatusCode = 225 // Data connection open; no transfer in progress
	StatusClosingDataConnection           StatusCode = 226 // Closing data connection; requested file action successful
	StatusEnteringPassiveMode             StatusCode = 227 // Entering Passive Mode (h1,h2,h3,h4,p1,p2)
	StatusEnteringExtendedPassiveMode     StatusCode = 229 // Entering Extended Passive Mode (|||port|)
	StatusUserLoggedIn                    StatusCode = 230 // User logged in, proceed
	StatusFileActionOK                    StatusCode = 250 // Requested file action okay, completed
	StatusPathnameCreated                 StatusCode = 257 // "PATHNAME" created

	// Intermediate codes (3xx)
	StatusUserNameOK StatusCode = 331 // User name okay, need password

	// Transient Negative Completion codes (4xx)
	StatusCantOpenDataConnection StatusCode = 425 // Can't open data connection

	// Permanent Negative Completion codes (5xx)
	StatusSyntaxErrorInParameters   StatusCode = 501 // Syntax error in parameters or arguments
	StatusSyntaxErrorNotImplemented StatusCode = 502 // Command not implemented
	StatusNotLoggedIn               StatusCode = 530 // Not logged in
	StatusFileUnavailable           StatusCode = 550 // Requested action not taken; File unavailable
)

// Command is an FTP verb as it appears on the control connection, always upper case
type Command = string

const (
	CommandUSER Command = "USER" // USER is used to specify the username
	CommandPASS Command = "PASS" // PASS is used to specify the password
	CommandSYST Command = "SYST" // SYST is used to get the system type
	CommandTYPE Command = "TYPE" // TYPE is accepted for every type, transfers are always binary
	CommandNOOP Command = "NOOP" // NOOP is used to keep the connection alive
	CommandFEAT Command = "FEAT" // FEAT is used to get the supported features
	CommandOPTS Command = "OPTS" // OPTS only knows UTF8
	CommandAUTH Command = "AUTH" // AUTH is always refused, there is no TLS
	CommandPWD  Command = "PWD"  // PWD is used to print the current working directory
	CommandCDUP Command = "CDUP" // CDUP is used to change the working directory to the parent directory
	CommandCWD  Command = "CWD"  // CWD is used to change the working directory
	CommandPASV Command = "PASV" // PASV is used to enter passive mode
	CommandEPSV Command = "EPSV" // EPSV is used to enter extended passive mode
	CommandLIST Command = "LIST" // LIST sends a directory listing over the data connection
	CommandRETR Command = "RETR" // RETR is used to retrieve a file from the server
	CommandSTOR Command = "STOR" // STOR is used to store a file on the server
	CommandQUIT Command = "QUIT" // QUIT is used to terminate the connection
)
