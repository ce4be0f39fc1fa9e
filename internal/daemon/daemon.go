package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/lydakis/shelld/internal/config"
	"github.com/lydakis/shelld/internal/ipc"
	"github.com/lydakis/shelld/internal/paths"
	"github.com/lydakis/shelld/internal/protocol"
	"github.com/lydakis/shelld/internal/shell"
)

// state is the daemon's position in the request/response protocol. The
// inbox is consulted only in stateIdle; the shell's output stream is
// consumed in every state.
type state int

const (
	stateIdle state = iota
	stateAwaitingOutput
	stateAwaitingExitCode
)

// pendingRequest is the single in-flight request. The daemon is strictly
// serial: at most one exists at a time.
type pendingRequest struct {
	command  string
	sentinel string
	reply    *os.File // nil once the client has been abandoned
}

// Daemon is the session context threaded through the event loop: the shell
// handle, framing state, and the current request. Keeping it explicit (not
// package globals) lets the loop be driven by tests.
type Daemon struct {
	log       *slog.Logger
	shell     *shell.Process
	sentinels *protocol.SentinelSource
	scanner   *protocol.LineScanner

	state   state
	pending *pendingRequest

	// openReply is a seam for tests; production uses ipc.OpenWrite.
	openReply func(path string) (*os.File, error)
}

// Run starts the session daemon in the current process. Called when
// argv[1] == "__daemon"; the caller has already detached us from the
// terminal. Run returns only when the session is over, and all session
// resources are released on every return path.
func Run(session, shellOverride string) error {
	if err := ipc.ValidateSessionID(session); err != nil {
		return err
	}
	dir := paths.SessionDir(session)
	if err := paths.EnsureDir(dir); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	logFile, logger, err := openLog(paths.LogPath(session))
	if err != nil {
		return err
	}
	logger = logger.With("session", session)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config failed", "error", err)
		logFile.Close()
		return fmt.Errorf("loading config: %w", err)
	}
	shellPath, shellArgs := cfg.Shell, cfg.ShellArgs
	if shellOverride != "" {
		shellPath, shellArgs = shellOverride, nil
	}

	res := newReleaser(logger)
	defer res.release()
	res.add("log file", func() { logFile.Close() })

	lock, err := acquireSessionLock(paths.LockPath(session))
	if err != nil {
		logger.Error("lock acquisition failed", "error", err)
		return err
	}
	res.add("session lock", lock.Release)

	inboxPath := paths.InboxPath(session)
	stdinPath := paths.ShellStdinPath(session)
	if err := ipc.Mkfifo(inboxPath, 0600); err != nil {
		logger.Error("creating inbox failed", "error", err)
		return err
	}
	res.add("inbox fifo", func() { os.Remove(inboxPath) })
	if err := ipc.Mkfifo(stdinPath, 0600); err != nil {
		logger.Error("creating shell stdin fifo failed", "error", err)
		return err
	}
	res.add("shell stdin fifo", func() { os.Remove(stdinPath) })

	// Open our read end first so the write-end open cannot block.
	stdinRead, err := ipc.OpenReadDetached(stdinPath)
	if err != nil {
		logger.Error("opening shell stdin fifo failed", "error", err)
		return err
	}
	stdinWrite, err := ipc.OpenWrite(stdinPath)
	if err != nil {
		stdinRead.Close()
		logger.Error("opening shell stdin fifo for write failed", "error", err)
		return err
	}

	proc, err := shell.Start(logger, shellPath, shellArgs, stdinRead, stdinWrite)
	if err != nil {
		logger.Error("starting shell failed", "error", err)
		return err
	}
	res.add("shell process", func() { proc.Stop(cfg.GraceDuration()) })

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(stop)

	requests := runInbox(logger, inboxPath)

	d := &Daemon{
		log:       logger,
		shell:     proc,
		sentinels: protocol.NewSentinelSource(),
		scanner:   protocol.NewLineScanner(cfg.MaxLineBytes),
		openReply: ipc.OpenWrite,
	}
	logger.Info("session ready", "pid", os.Getpid(), "shell_pid", proc.Pid())

	err = d.mainLoop(requests, proc.Output(), stop)
	if err != nil {
		logger.Error("session ended with error", "error", err)
	} else {
		logger.Info("session ended")
	}
	return err
}

// mainLoop drives the state machine until a stop signal, a stop request,
// or loss of the shell.
func (d *Daemon) mainLoop(requests <-chan *ipc.Request, shellOut <-chan []byte, stop <-chan os.Signal) error {
	for {
		if d.state == stateIdle {
			select {
			case sig := <-stop:
				d.log.Info("signal received", "signal", sig.String())
				return nil
			case req := <-requests:
				if req.IsStop() {
					d.log.Info("stop request received")
					return nil
				}
				d.beginRequest(req)
			case chunk, ok := <-shellOut:
				if !ok {
					return ipc.ErrShellLost
				}
				d.drain(chunk)
			}
			continue
		}

		select {
		case sig := <-stop:
			d.log.Info("signal received mid-request", "signal", sig.String())
			d.abandon()
			return nil
		case chunk, ok := <-shellOut:
			if !ok {
				d.abandon()
				return ipc.ErrShellLost
			}
			d.consume(chunk)
		}
	}
}

// beginRequest opens the client's reply channel and dispatches the command
// to the shell. On any failure the daemon stays Idle; a client failure
// never takes the session down.
func (d *Daemon) beginRequest(req *ipc.Request) {
	d.log.Info("request received", "reply", req.ReplyPath, "command", req.Command)

	reply, err := d.openReply(req.ReplyPath)
	if err != nil {
		d.log.Error("opening reply channel failed, dropping request", "error", err)
		return
	}

	sentinel := d.sentinels.Next()
	envelope := protocol.Envelope(req.Command, sentinel)
	if err := d.shell.Send(envelope); err != nil {
		d.log.Error("dispatch to shell failed", "error", err)
		reply.Close()
		return
	}

	d.pending = &pendingRequest{command: req.Command, sentinel: sentinel, reply: reply}
	d.state = stateAwaitingOutput
}

// consume feeds one raw shell output chunk through the line scanner and
// advances the state machine line by line.
func (d *Daemon) consume(chunk []byte) {
	for _, line := range d.scanner.Split(chunk) {
		switch d.state {
		case stateAwaitingOutput:
			d.handleOutputLine(line)
		case stateAwaitingExitCode:
			d.handleExitCodeLine(line)
		default:
			d.drain([]byte(line.Text))
		}
	}
}

func (d *Daemon) handleOutputLine(line protocol.Line) {
	if line.Partial {
		// Flushed early by the bounded line buffer. Forward as-is; it can
		// never be the sentinel.
		d.log.Warn("output line exceeded buffer, forwarding partial", "bytes", len(line.Text))
		d.forward(line.Text)
		return
	}
	if protocol.Matches(line.Text, d.pending.sentinel) {
		d.state = stateAwaitingExitCode
		return
	}
	d.forward(line.Text)
}

func (d *Daemon) handleExitCodeLine(line protocol.Line) {
	if line.Partial {
		d.log.Warn("oversized exit status line", "bytes", len(line.Text))
		return
	}
	code, err := strconv.Atoi(strings.TrimSpace(line.Text))
	if err != nil {
		// Stray line between sentinel and status: framing is broken for
		// this request, but the session survives.
		d.log.Error("unparseable exit status line", "line", strings.TrimSpace(line.Text))
		code = -1
	}
	d.log.Info("command finished", "command", d.pending.command, "exit_code", code)
	d.finish()
}

// forward writes one output line to the client's reply channel. A write
// failure means the client is gone; the request is abandoned and the
// daemon keeps consuming until the sentinel so the shell stream stays in
// sync with nobody listening.
func (d *Daemon) forward(text string) {
	if d.pending.reply == nil {
		return
	}
	if _, err := d.pending.reply.WriteString(text); err != nil {
		d.log.Warn("abandoning request", "error", fmt.Errorf("%w: %v", ipc.ErrClientUnreachable, err))
		d.pending.reply.Close()
		d.pending.reply = nil
	}
}

// finish closes out the in-flight request and returns to Idle.
func (d *Daemon) finish() {
	if d.pending.reply != nil {
		d.pending.reply.Close()
	}
	d.pending = nil
	d.state = stateIdle
}

// abandon drops the in-flight request without completing it (shutdown or
// shell loss mid-command).
func (d *Daemon) abandon() {
	if d.pending == nil {
		return
	}
	d.log.Warn("abandoning in-flight request", "command", d.pending.command)
	if d.pending.reply != nil {
		d.pending.reply.Close()
	}
	d.pending = nil
	d.state = stateIdle
}

// drain logs shell output that arrives while no request is in flight
// (startup banners, background job chatter).
func (d *Daemon) drain(chunk []byte) {
	if text := strings.TrimSpace(string(chunk)); text != "" {
		d.log.Debug("unsolicited shell output", "output", text)
	}
}

func openLog(path string) (*os.File, *slog.Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log %s: %w", path, err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return f, logger, nil
}
