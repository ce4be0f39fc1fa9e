package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// MaxMessageSize bounds a full inbox message (reply path, command, two
// newlines). POSIX guarantees writes of at most PIPE_BUF bytes to a FIFO
// are atomic; staying under it keeps concurrent client submissions from
// interleaving at the byte level. 4096 is the Linux PIPE_BUF.
const MaxMessageSize = 4096

// StopCommand is the reserved command payload a client writes to the inbox
// to ask the daemon to shut down. It never reaches the shell.
const StopCommand = "__SHELLD_EXIT__"

// NoReplyPath marks a request that expects no reply channel (stop requests).
const NoReplyPath = "-"

// Request is one client submission read from the inbox FIFO: the path of
// the client's reply FIFO and the raw command text, as two newline
// terminated lines.
type Request struct {
	ReplyPath string
	Command   string
}

// IsStop reports whether the request is the reserved shutdown payload.
func (r *Request) IsStop() bool {
	return r.Command == StopCommand
}

// Encode renders the request as the two-line wire message. It fails with
// ErrMessageTooLarge when the message would exceed the atomic pipe-write
// limit, since a larger message could interleave with a concurrent client's.
func (r *Request) Encode() ([]byte, error) {
	if r.ReplyPath == "" || strings.ContainsRune(r.ReplyPath, '\n') {
		return nil, fmt.Errorf("%w: bad reply path %q", ErrRequestMalformed, r.ReplyPath)
	}
	if strings.ContainsRune(r.Command, '\n') {
		return nil, fmt.Errorf("%w: command contains newline", ErrRequestMalformed)
	}
	msg := r.ReplyPath + "\n" + r.Command + "\n"
	if len(msg) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLarge, len(msg), MaxMessageSize)
	}
	return []byte(msg), nil
}

// ReadRequest reads one two-line request from the inbox reader. An EOF
// before the first byte returns io.EOF untouched so the caller can reopen
// the FIFO; a truncated or empty message returns ErrRequestMalformed.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	replyPath, err := r.ReadString('\n')
	if err != nil {
		if replyPath == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: truncated reply path", ErrRequestMalformed)
	}
	command, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: truncated command", ErrRequestMalformed)
	}

	req := &Request{
		ReplyPath: strings.TrimSuffix(replyPath, "\n"),
		Command:   strings.TrimSuffix(command, "\n"),
	}
	if req.ReplyPath == "" || req.Command == "" {
		return nil, fmt.Errorf("%w: empty field", ErrRequestMalformed)
	}
	return req, nil
}

// Error taxonomy shared by the daemon and the client.
var (
	ErrAlreadyRunning    = errors.New("session already running")
	ErrSessionNotFound   = errors.New("session not running")
	ErrInvalidSessionID  = errors.New("invalid session id")
	ErrRequestMalformed  = errors.New("malformed request")
	ErrMessageTooLarge   = errors.New("request message too large")
	ErrClientUnreachable = errors.New("client reply channel unreachable")
	ErrShellLost         = errors.New("session shell exited")
)

// Exit codes for the shelld binary. The exec exit code reflects the
// exchange with the daemon, not the executed command's own status.
const (
	ExitOK          = 0
	ExitExchangeErr = 1
	ExitUsageErr    = 2
	ExitInternal    = 3
	ExitUnavailable = 4
)

// ValidateSessionID rejects ids that could escape the sessions directory.
func ValidateSessionID(id string) error {
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}
