package ipc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mkfifo creates a named pipe at path, replacing any stale node left by a
// previous run.
func Mkfifo(path string, mode uint32) error {
	_ = os.Remove(path)
	if err := unix.Mkfifo(path, mode); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// OpenRead opens a FIFO for reading. The call blocks until a writer opens
// the other end, which is the rendezvous the protocol relies on.
func OpenRead(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for read: %w", path, err)
	}
	return f, nil
}

// OpenWrite opens a FIFO for writing, blocking until a reader exists.
func OpenWrite(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for write: %w", path, err)
	}
	return f, nil
}

// OpenReadDetached opens a FIFO for reading without waiting for a writer,
// then restores blocking mode on the descriptor. The daemon uses it to hand
// the shell its stdin before any command has arrived.
func OpenReadDetached(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for read: %w", path, err)
	}
	if _, err := unix.FcntlInt(f.Fd(), unix.F_SETFL, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("clearing O_NONBLOCK on %s: %w", path, err)
	}
	return f, nil
}

// ProcessAlive probes a PID non-destructively with a null signal.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
