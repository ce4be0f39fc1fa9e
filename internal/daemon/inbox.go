package daemon

import (
	"bufio"
	"errors"
	"io"
	"log/slog"

	"github.com/lydakis/shelld/internal/ipc"
)

// runInbox reads client requests off the inbox FIFO and delivers them on
// the returned channel. The channel is unbuffered on purpose: the daemon
// receives only while Idle, so requests queue in the FIFO itself and are
// serviced strictly in arrival order.
//
// A FIFO delivers end-of-stream once its last writer closes, and every
// client opens, writes once, and closes. The reader therefore reopens the
// FIFO after each EOF to admit the next client. The goroutine runs for the
// daemon's lifetime; its final blocking open is released by process exit.
func runInbox(log *slog.Logger, path string) <-chan *ipc.Request {
	requests := make(chan *ipc.Request)
	go func() {
		for {
			f, err := ipc.OpenRead(path)
			if err != nil {
				log.Error("reopening inbox failed", "error", err)
				return
			}
			r := bufio.NewReader(f)
			for {
				req, err := ipc.ReadRequest(r)
				if err != nil {
					if !errors.Is(err, io.EOF) {
						log.Warn("dropping malformed inbox message", "error", err)
					}
					break
				}
				requests <- req
			}
			f.Close()
		}
	}()
	return requests
}
