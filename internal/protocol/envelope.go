package protocol

import "fmt"

// Envelope wraps a raw command for the session shell so that, whatever the
// command does, the daemon can find the end of its output and its exit
// status inside the shell's merged output stream:
//
//   - the brace group runs in the current shell, so cd, variable
//     assignments, and other shell state persist across requests;
//   - stdin comes from /dev/null, so a command that reads stdin cannot
//     swallow the next envelope off the shell's input;
//   - stdout and stderr are merged into one ordered-best-effort stream;
//   - the sentinel line and the exit status line follow unconditionally.
func Envelope(command, sentinel string) string {
	return fmt.Sprintf("{ %s\n} </dev/null 2>&1; __shelld_ec=$?; echo \"%s\"; echo \"$__shelld_ec\"\n",
		command, sentinel)
}
