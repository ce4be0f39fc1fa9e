package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lydakis/shelld/internal/ipc"
	"golang.org/x/sys/unix"
)

// sessionLock is the held singleton lock for a live session: an flock on
// the PID file, kept for the daemon's lifetime. The recorded PID lets
// clients probe liveness without touching the lock.
type sessionLock struct {
	f    *os.File
	path string
}

// acquireSessionLock takes the exclusive session lock and records our PID.
// A lock already held by a live daemon yields ErrAlreadyRunning.
func acquireSessionLock(path string) (*sessionLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ipc.ErrAlreadyRunning
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing pid: %w", err)
	}
	return &sessionLock{f: f, path: path}, nil
}

// Release drops the lock and removes the PID file.
func (l *sessionLock) Release() {
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
	_ = os.Remove(l.path)
}

// readLockPid returns the PID recorded in a session's lock file.
func readLockPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing pid file %s: %w", path, err)
	}
	return pid, nil
}

// lockHeld probes whether a session's lock is currently held by trying to
// take it ourselves. Taking it briefly is harmless: only a daemon holds it
// long term, and a held lock is exactly what "live session" means.
func lockHeld(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return true
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false
}
