package ipc

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestRequestEncodeRoundTrip(t *testing.T) {
	req := &Request{ReplyPath: "/run/shelld/reply.42.fifo", Command: "echo hello"}

	msg, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if want := "/run/shelld/reply.42.fifo\necho hello\n"; string(msg) != want {
		t.Fatalf("Encode() = %q, want %q", msg, want)
	}

	got, err := ReadRequest(bufio.NewReader(strings.NewReader(string(msg))))
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if got.ReplyPath != req.ReplyPath || got.Command != req.Command {
		t.Fatalf("ReadRequest() = %+v, want %+v", got, req)
	}
}

func TestRequestEncodeRejectsOversizedMessage(t *testing.T) {
	req := &Request{
		ReplyPath: "/run/shelld/reply.1.fifo",
		Command:   strings.Repeat("x", MaxMessageSize),
	}
	if _, err := req.Encode(); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("Encode() error = %v, want ErrMessageTooLarge", err)
	}
}

func TestRequestEncodeRejectsNewlines(t *testing.T) {
	cases := []Request{
		{ReplyPath: "/tmp/a\nb", Command: "echo hi"},
		{ReplyPath: "/tmp/a", Command: "echo hi\necho bye"},
		{ReplyPath: "", Command: "echo hi"},
	}
	for _, req := range cases {
		if _, err := req.Encode(); !errors.Is(err, ErrRequestMalformed) {
			t.Errorf("Encode(%+v) error = %v, want ErrRequestMalformed", req, err)
		}
	}
}

func TestReadRequestEOFBeforeAnyData(t *testing.T) {
	_, err := ReadRequest(bufio.NewReader(strings.NewReader("")))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("ReadRequest() error = %v, want io.EOF", err)
	}
}

func TestReadRequestTruncatedMessage(t *testing.T) {
	cases := []string{
		"/tmp/reply.fifo",        // no newline after reply path
		"/tmp/reply.fifo\n",      // missing command line
		"/tmp/reply.fifo\nls",    // command not newline terminated
		"\n\n",                   // empty fields
	}
	for _, in := range cases {
		_, err := ReadRequest(bufio.NewReader(strings.NewReader(in)))
		if !errors.Is(err, ErrRequestMalformed) {
			t.Errorf("ReadRequest(%q) error = %v, want ErrRequestMalformed", in, err)
		}
	}
}

func TestReadRequestConsecutiveMessages(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("/tmp/r1\nls\n/tmp/r2\npwd\n"))

	first, err := ReadRequest(r)
	if err != nil {
		t.Fatalf("first ReadRequest() error = %v", err)
	}
	second, err := ReadRequest(r)
	if err != nil {
		t.Fatalf("second ReadRequest() error = %v", err)
	}
	if first.Command != "ls" || second.Command != "pwd" {
		t.Fatalf("commands = %q, %q, want ls, pwd", first.Command, second.Command)
	}
	if _, err := ReadRequest(r); !errors.Is(err, io.EOF) {
		t.Fatalf("trailing ReadRequest() error = %v, want io.EOF", err)
	}
}

func TestStopRequestDetection(t *testing.T) {
	req := &Request{ReplyPath: NoReplyPath, Command: StopCommand}
	if !req.IsStop() {
		t.Fatal("IsStop() = false for stop payload")
	}
	if (&Request{ReplyPath: "/tmp/r", Command: "ls"}).IsStop() {
		t.Fatal("IsStop() = true for ordinary command")
	}
}

func TestValidateSessionID(t *testing.T) {
	for _, id := range []string{"default", "work", "ci-42", "a.b"} {
		if err := ValidateSessionID(id); err != nil {
			t.Errorf("ValidateSessionID(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range []string{"", "a/b", "..", "x/../y"} {
		if err := ValidateSessionID(id); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("ValidateSessionID(%q) = %v, want ErrInvalidSessionID", id, err)
		}
	}
}
