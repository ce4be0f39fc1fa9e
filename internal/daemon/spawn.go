package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/lydakis/shelld/internal/ipc"
	"github.com/lydakis/shelld/internal/paths"
)

var (
	spawnDaemonFn   = spawnDaemon
	waitForDaemonFn = waitForDaemon
	processAliveFn  = ipc.ProcessAlive
	execCommandFn   = exec.Command
)

// StartSession launches a detached daemon for the named session. It fails
// with ErrAlreadyRunning when a live daemon owns the session, removes a
// stale lock file left by a crashed one, and waits until the new daemon's
// inbox is ready before returning.
func StartSession(session, shellOverride string) error {
	if err := ipc.ValidateSessionID(session); err != nil {
		return err
	}
	if err := paths.EnsureDir(paths.SessionDir(session)); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	// A held flock is the authoritative liveness signal: the kernel drops
	// it the instant the holder dies, even before the process is reaped,
	// whereas a null-signal probe still reports a zombie as alive.
	lockPath := paths.LockPath(session)
	if lockHeld(lockPath) {
		pid, _ := readLockPid(lockPath)
		return fmt.Errorf("%w (pid %d)", ipc.ErrAlreadyRunning, pid)
	}
	if _, err := os.Stat(lockPath); err == nil {
		// Stale lock from a daemon that died without cleanup.
		_ = os.Remove(lockPath)
	}

	if err := spawnDaemonFn(session, shellOverride); err != nil {
		return err
	}
	return waitForDaemonFn(session)
}

// spawnDaemon re-executes this binary with the internal __daemon argv in
// its own session, with all standard streams on /dev/null. Self-exec is
// the Go stand-in for the classic double fork: the child carries no
// controlling terminal and outlives us.
func spawnDaemon(session, shellOverride string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable: %w", err)
	}

	args := []string{"__daemon", session}
	if shellOverride != "" {
		args = append(args, shellOverride)
	}
	cmd := execCommandFn(exe, args...)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning daemon: %w", err)
	}

	// Detach: don't wait for the daemon process.
	go cmd.Wait() //nolint:errcheck
	return nil
}

// waitForDaemon polls until the daemon has written its PID and created the
// inbox, or the startup window closes.
func waitForDaemon(session string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		pid, err := readLockPid(paths.LockPath(session))
		if err == nil && processAliveFn(pid) {
			if _, err := os.Stat(paths.InboxPath(session)); err == nil {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("daemon for session %q did not start within timeout", session)
}

// SessionLive reports whether a live daemon holds the session lock.
func SessionLive(session string) bool {
	return lockHeld(paths.LockPath(session))
}

// ListSessions returns the names of sessions whose daemon is alive. Stale
// session directories (crashed daemons) are skipped, not cleaned.
func ListSessions() ([]string, error) {
	entries, err := os.ReadDir(paths.SessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions dir: %w", err)
	}

	var live []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if SessionLive(e.Name()) {
			live = append(live, e.Name())
		}
	}
	sort.Strings(live)
	return live, nil
}
