package client

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lydakis/shelld/internal/ipc"
	"github.com/lydakis/shelld/internal/paths"
)

func saveClientHooks() func() {
	oldPid := getpidFn
	oldInbox := openInboxFn
	oldReply := openReplyFn
	return func() {
		getpidFn = oldPid
		openInboxFn = oldInbox
		openReplyFn = oldReply
	}
}

func TestJoinWords(t *testing.T) {
	cases := []struct {
		words []string
		want  string
	}{
		{[]string{"echo", "hello"}, "echo hello"},
		{[]string{"ls"}, "ls"},
		{[]string{"grep", "-r", "foo bar", "."}, "grep -r foo bar ."},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := JoinWords(tc.words); got != tc.want {
			t.Errorf("JoinWords(%v) = %q, want %q", tc.words, got, tc.want)
		}
	}
}

func TestExecFailsFastWhenSessionMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	defer saveClientHooks()()

	// The inbox does not exist; the client must error out, not hang.
	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		done <- Exec("default", "echo hello", &out)
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ipc.ErrSessionNotFound) {
			t.Fatalf("Exec() error = %v, want ErrSessionNotFound", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Exec() hung with no session running")
	}
}

func TestExecRemovesReplyFifoOnFailure(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	defer saveClientHooks()()
	getpidFn = func() int { return 7777 }

	if err := os.MkdirAll(paths.SessionDir("default"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.InboxPath("default"), nil, 0600); err != nil {
		t.Fatal(err)
	}
	openInboxFn = func(path string) (*os.File, error) {
		return nil, errors.New("daemon went away")
	}

	var out bytes.Buffer
	if err := Exec("default", "echo hello", &out); err == nil {
		t.Fatal("Exec() error = nil, want submit failure")
	}

	replyPath := paths.ReplyPath("default", 7777)
	if _, err := os.Stat(replyPath); !os.IsNotExist(err) {
		t.Fatalf("reply FIFO %s not removed on failure", replyPath)
	}
}

func TestExecStreamsReplyToWriter(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	defer saveClientHooks()()

	dir := t.TempDir()

	// The inbox path must exist for the fast liveness check; the actual
	// write goes to the stubbed sink below.
	if err := os.MkdirAll(paths.SessionDir("default"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.InboxPath("default"), nil, 0600); err != nil {
		t.Fatal(err)
	}

	inboxSink, err := os.CreateTemp(dir, "inbox")
	if err != nil {
		t.Fatal(err)
	}
	defer inboxSink.Close()
	openInboxFn = func(path string) (*os.File, error) {
		return os.OpenFile(inboxSink.Name(), os.O_WRONLY, 0)
	}

	replySource, err := os.CreateTemp(dir, "reply")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := replySource.WriteString("hello\nworld\n"); err != nil {
		t.Fatal(err)
	}
	replySource.Close()
	openReplyFn = func(path string) (*os.File, error) {
		return os.Open(replySource.Name())
	}

	var out bytes.Buffer
	if err := Exec("default", "echo hello; echo world", &out); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if out.String() != "hello\nworld\n" {
		t.Fatalf("streamed output = %q, want %q", out.String(), "hello\nworld\n")
	}

	// The submitted message must be the two-line wire format.
	msg, err := os.ReadFile(inboxSink.Name())
	if err != nil {
		t.Fatal(err)
	}
	want := paths.ReplyPath("default", os.Getpid()) + "\necho hello; echo world\n"
	if string(msg) != want {
		t.Fatalf("submitted message = %q, want %q", msg, want)
	}
}

func TestExecRejectsEmptyCommand(t *testing.T) {
	var out bytes.Buffer
	if err := Exec("default", "   ", &out); !errors.Is(err, ipc.ErrRequestMalformed) {
		t.Fatalf("Exec() error = %v, want ErrRequestMalformed", err)
	}
}

func TestExecRejectsOversizedCommand(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	defer saveClientHooks()()

	if err := os.MkdirAll(paths.SessionDir("default"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.InboxPath("default"), nil, 0600); err != nil {
		t.Fatal(err)
	}

	long := make([]byte, ipc.MaxMessageSize)
	for i := range long {
		long[i] = 'a'
	}
	var out bytes.Buffer
	err := Exec("default", string(long), &out)
	if !errors.Is(err, ipc.ErrMessageTooLarge) {
		t.Fatalf("Exec() error = %v, want ErrMessageTooLarge", err)
	}
}
