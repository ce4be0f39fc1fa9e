package shell

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// readBufferSize is the chunk size for draining the shell's merged output.
const readBufferSize = 4096

// Process owns the single long-lived shell backing a session. Its stdin is
// an *os.File handed in by the daemon (the read end of the shell-stdin
// FIFO); stdout and stderr are merged into one pipe whose chunks are
// delivered on Output.
type Process struct {
	log *slog.Logger
	cmd *exec.Cmd

	stdin  io.WriteCloser
	output chan []byte
	waitCh chan error
}

// Start launches the shell with its stdin wired to stdinFile and begins
// pumping merged stdout+stderr chunks onto the Output channel. The channel
// is closed when the shell's output stream reaches end of file, which the
// daemon treats as the shell having died.
func Start(log *slog.Logger, shellPath string, args []string, stdinFile *os.File, stdinWriter io.WriteCloser) (*Process, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("output pipe: %w", err)
	}

	cmd := exec.Command(shellPath, args...)
	cmd.Stdin = stdinFile
	cmd.Stdout = outW
	cmd.Stderr = outW

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("starting shell %s: %w", shellPath, err)
	}
	// The child holds its own copies now.
	outW.Close()
	stdinFile.Close()

	p := &Process{
		log:    log.With("component", "shell"),
		cmd:    cmd,
		stdin:  stdinWriter,
		output: make(chan []byte),
		waitCh: make(chan error, 1),
	}
	p.log.Info("shell started", "path", shellPath, "pid", cmd.Process.Pid)

	go p.pump(outR)
	go func() { p.waitCh <- cmd.Wait() }()

	return p, nil
}

func (p *Process) pump(r io.ReadCloser) {
	defer close(p.output)
	defer r.Close()

	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.output <- chunk
		}
		if err != nil {
			if err != io.EOF {
				p.log.Warn("shell output read failed", "error", err)
			}
			return
		}
	}
}

// Output returns the channel carrying raw merged stdout+stderr chunks.
// Closed when the shell's output stream ends.
func (p *Process) Output() <-chan []byte {
	return p.output
}

// Send writes an envelope to the shell's stdin. The daemon is the only
// caller, which is what keeps request inputs from interleaving.
func (p *Process) Send(envelope string) error {
	if _, err := io.WriteString(p.stdin, envelope); err != nil {
		return fmt.Errorf("writing to shell stdin: %w", err)
	}
	return nil
}

// Pid returns the shell's process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Stop terminates the shell: close its stdin, send SIGTERM, and escalate
// to SIGKILL if it has not exited within grace. Always reaps the child.
func (p *Process) Stop(grace time.Duration) {
	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.cmd.Process == nil {
		return
	}

	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case err := <-p.waitCh:
		p.log.Info("shell exited", "error", err)
		return
	case <-time.After(grace):
	}

	p.log.Warn("shell unresponsive after SIGTERM, killing", "pid", p.Pid())
	_ = p.cmd.Process.Kill()
	err := <-p.waitCh
	p.log.Info("shell reaped", "error", err)
}
