package shell

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestShell(t *testing.T) *Process {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("stdin pipe: %v", err)
	}
	p, err := Start(discardLogger(), "sh", nil, r, w)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return p
}

// collect drains Output until the wanted text has been seen or the
// deadline passes.
func collect(t *testing.T, p *Process, want string) string {
	t.Helper()
	var b strings.Builder
	deadline := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-p.Output():
			if !ok {
				return b.String()
			}
			b.Write(chunk)
			if strings.Contains(b.String(), want) {
				return b.String()
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q, got %q", want, b.String())
		}
	}
}

func TestShellEchoesThroughMergedOutput(t *testing.T) {
	p := startTestShell(t)
	defer p.Stop(time.Second)

	if err := p.Send("echo hello\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := collect(t, p, "hello\n"); !strings.Contains(got, "hello\n") {
		t.Fatalf("output = %q, want to contain hello", got)
	}
}

func TestShellStderrIsMergedIntoOutput(t *testing.T) {
	p := startTestShell(t)
	defer p.Stop(time.Second)

	if err := p.Send("echo oops 1>&2\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	collect(t, p, "oops\n")
}

func TestShellStatePersistsAcrossSends(t *testing.T) {
	p := startTestShell(t)
	defer p.Stop(time.Second)

	if err := p.Send("X=42\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := p.Send("echo \"X is $X\"\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	collect(t, p, "X is 42\n")
}

func TestOutputClosesWhenShellExits(t *testing.T) {
	p := startTestShell(t)

	if err := p.Send("exit 0\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-p.Output():
			if !ok {
				p.Stop(time.Second)
				return
			}
		case <-deadline:
			t.Fatal("Output() not closed after shell exit")
		}
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	// A shell that ignores SIGTERM forces the kill path.
	p, err := Start(discardLogger(), "sh", []string{"-c", "trap '' TERM; while true; do sleep 1; done"}, r, w)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Stop(200 * time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not terminate an unresponsive shell")
	}
}
