package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "shelld")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "shelld")
}

// ConfigDir returns the shelld config directory ($XDG_CONFIG_HOME/shelld).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the shelld state directory ($XDG_STATE_HOME/shelld).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// RuntimeDir returns the shelld runtime directory for FIFOs and lock files.
// Falls back to $XDG_STATE_HOME/shelld if XDG_RUNTIME_DIR is unset.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "shelld")
	}
	return StateDir()
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// SessionsDir returns the directory holding all per-session directories.
func SessionsDir() string {
	return filepath.Join(RuntimeDir(), "sessions")
}

// SessionDir returns the directory for one named session.
func SessionDir(session string) string {
	return filepath.Join(SessionsDir(), session)
}

// InboxPath returns the path to a session's inbox FIFO, the well-known
// endpoint clients write requests to.
func InboxPath(session string) string {
	return filepath.Join(SessionDir(session), "inbox.fifo")
}

// ShellStdinPath returns the path to the FIFO wired to the session shell's
// standard input. Only the daemon writes to it.
func ShellStdinPath(session string) string {
	return filepath.Join(SessionDir(session), "shell-stdin.fifo")
}

// LockPath returns the path to a session's PID/lock file.
func LockPath(session string) string {
	return filepath.Join(SessionDir(session), "session.pid")
}

// LogPath returns the path to a session's append-only daemon log.
func LogPath(session string) string {
	return filepath.Join(SessionDir(session), "daemon.log")
}

// ReplyPath returns the path of the reply FIFO for a client process. The
// name is derived from the client's own PID so concurrent clients cannot
// collide.
func ReplyPath(session string, pid int) string {
	return filepath.Join(SessionDir(session), fmt.Sprintf("reply.%d.fifo", pid))
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
