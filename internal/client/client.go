// Package client implements the ephemeral side of the session protocol:
// build a command, create a private reply FIFO, submit the request to the
// daemon's inbox, and stream the reply back.
package client

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lydakis/shelld/internal/ipc"
	"github.com/lydakis/shelld/internal/paths"
)

var (
	getpidFn    = os.Getpid
	openInboxFn = ipc.OpenWrite
	openReplyFn = ipc.OpenRead
)

// JoinWords builds the command text from invocation arguments: words
// joined by single spaces, no additional quoting. Arguments pass through
// as literal words.
func JoinWords(words []string) string {
	return strings.Join(words, " ")
}

// Exec runs one command in the named session and streams its merged
// stdout+stderr to out. The returned error reflects the exchange with the
// daemon, never the executed command's own exit status, which the daemon
// records in its log.
func Exec(session, command string, out io.Writer) error {
	if err := ipc.ValidateSessionID(session); err != nil {
		return err
	}
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("%w: empty command", ipc.ErrRequestMalformed)
	}

	// Fail fast when no daemon owns the session, before creating any
	// state of our own.
	if _, err := os.Stat(paths.InboxPath(session)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q (run \"shelld start\" first)", ipc.ErrSessionNotFound, session)
		}
		return fmt.Errorf("checking inbox: %w", err)
	}

	// The reply FIFO must exist before the request is submitted, or the
	// daemon could try to open a path that is not there yet.
	replyPath := paths.ReplyPath(session, getpidFn())
	if err := ipc.Mkfifo(replyPath, 0600); err != nil {
		return fmt.Errorf("creating reply channel: %w", err)
	}
	cleanup, restoreSignals := removeOnExit(replyPath)
	defer restoreSignals()
	defer cleanup()

	req := &ipc.Request{ReplyPath: replyPath, Command: command}
	if err := submit(session, req); err != nil {
		return err
	}

	// Rendezvous: this open blocks until the daemon opens the FIFO for
	// writing. From here the daemon streams the command's output and
	// closes its end when the command completes.
	reply, err := openReplyFn(replyPath)
	if err != nil {
		return fmt.Errorf("opening reply channel: %w", err)
	}
	defer reply.Close()

	if _, err := io.Copy(out, reply); err != nil {
		return fmt.Errorf("streaming reply: %w", err)
	}
	return nil
}

// Stop asks the named session's daemon to shut down, then waits for the
// recorded process to go away.
func Stop(session string) error {
	if err := ipc.ValidateSessionID(session); err != nil {
		return err
	}
	if err := submit(session, &ipc.Request{ReplyPath: ipc.NoReplyPath, Command: ipc.StopCommand}); err != nil {
		return err
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(paths.InboxPath(session)); os.IsNotExist(err) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("session %q did not stop within timeout", session)
}

// submit writes the two-line request to the session inbox in a single
// write. The message size is bounded by the atomic pipe-write limit, so
// concurrent clients' messages cannot interleave at the byte level.
func submit(session string, req *ipc.Request) error {
	msg, err := req.Encode()
	if err != nil {
		return err
	}

	inbox, err := openInboxFn(paths.InboxPath(session))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q (run \"shelld start\" first)", ipc.ErrSessionNotFound, session)
		}
		return fmt.Errorf("opening inbox: %w", err)
	}
	defer inbox.Close()

	if _, err := inbox.Write(msg); err != nil {
		return fmt.Errorf("submitting request: %w", err)
	}
	return nil
}

// removeOnExit deletes the reply FIFO on every exit path: normal return,
// error return, or a terminating signal. The signal relay re-raises the
// default behavior after cleanup so the shell still sees the death.
func removeOnExit(path string) (cleanup func(), restore func()) {
	remove := sync.OnceFunc(func() { os.Remove(path) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		remove()
		signal.Reset(sig.(syscall.Signal))
		_ = syscall.Kill(os.Getpid(), sig.(syscall.Signal))
	}()

	return remove, func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}
