package config

import "time"

// Config is the top-level shelld configuration.
type Config struct {
	// Shell is the program backing every session (default "bash", falling
	// back to "sh" when bash is not installed).
	Shell string `toml:"shell"`

	// ShellArgs are extra arguments passed to the shell. For bash the
	// default is --noprofile --norc so sessions start from a clean slate.
	ShellArgs []string `toml:"shell_args"`

	// MaxLineBytes bounds the daemon's per-line output buffer. A shell
	// output line longer than this is forwarded in chunks.
	MaxLineBytes int `toml:"max_line_bytes"`

	// ShutdownGrace is how long the daemon waits after SIGTERM before
	// killing the session shell, e.g. "2s".
	ShutdownGrace string `toml:"shutdown_grace"`
}

// Defaults applied when the config file is absent or fields are unset.
const (
	DefaultShell         = "bash"
	DefaultMaxLineBytes  = 64 * 1024
	DefaultShutdownGrace = 2 * time.Second
)

// DefaultShellArgs returns the argument list used with the default shell.
func DefaultShellArgs() []string {
	return []string{"--noprofile", "--norc"}
}

// GraceDuration parses ShutdownGrace, returning the default on empty or
// invalid values.
func (c *Config) GraceDuration() time.Duration {
	if c.ShutdownGrace == "" {
		return DefaultShutdownGrace
	}
	d, err := time.ParseDuration(c.ShutdownGrace)
	if err != nil || d <= 0 {
		return DefaultShutdownGrace
	}
	return d
}
