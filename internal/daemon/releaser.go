package daemon

import (
	"log/slog"
	"sync"
)

// releaser collects session resources and releases them exactly once, in
// reverse acquisition order, no matter which exit path runs first (normal
// return, error return, or signal-triggered stop).
type releaser struct {
	log  *slog.Logger
	once sync.Once

	mu    sync.Mutex
	fns   []func()
	names []string
}

func newReleaser(log *slog.Logger) *releaser {
	return &releaser{log: log}
}

func (r *releaser) add(name string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.fns = append(r.fns, fn)
}

func (r *releaser) release() {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := len(r.fns) - 1; i >= 0; i-- {
			r.log.Debug("releasing", "resource", r.names[i])
			r.fns[i]()
		}
	})
}
