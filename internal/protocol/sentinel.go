package protocol

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// sentinelPrefix marks end-of-command lines in the shell's output stream.
// Lines carrying it should never occur in ordinary command output.
const sentinelPrefix = "SHELLD_DONE_v1"

// SentinelSource hands out one sentinel per request. The counter makes
// sentinels unique within a session's lifetime; the ULID component keeps a
// command that echoes a previous sentinel from breaking framing.
type SentinelSource struct {
	counter uint64
	entropy *rand.Rand
}

// NewSentinelSource returns a source seeded for this session.
func NewSentinelSource() *SentinelSource {
	return &SentinelSource{
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns a fresh sentinel line.
func (s *SentinelSource) Next() string {
	s.counter++
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	return fmt.Sprintf("%s_%d_%s", sentinelPrefix, s.counter, id)
}

// Matches reports whether a completed output line is the given sentinel.
// The comparison is whole-line equality after trimming surrounding
// whitespace; a prefix match is never enough.
func Matches(line, sentinel string) bool {
	return strings.TrimSpace(line) == sentinel
}
