package store

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"tracker/web/internal/apiclient"
)

// ErrInvalidInput is returned before any network call when an operation's
// arguments cannot be sent.
var ErrInvalidInput = errors.New("invalid input")

// base carries what every resource store shares: one lock for its state, busy
// counters per operation and change notification.
type base struct {
	mu      sync.Mutex
	busy    map[string]int
	version uint64
	changes *Value[uint64]
	loaded  chan struct{}
	loadErr error
}

func (b *base) init() {
	b.busy = make(map[string]int)
	b.changes = NewValue[uint64]()
	b.changes.Set(0)
	b.loaded = make(chan struct{})
}

// Subscribe calls fn after every change to the store's collections or flags.
func (b *base) Subscribe(fn func()) func() {
	return b.changes.Subscribe(func(uint64) { fn() })
}

// Loaded is closed once the initial fetch started by the constructor is done,
// whether it succeeded or not.
func (b *base) Loaded() <-chan struct{} {
	return b.loaded
}

// LoadErr is the error of the initial fetch, if it failed. It is only
// meaningful once Loaded is closed.
func (b *base) LoadErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadErr
}

// start runs a constructor's initial fetch in the background under the
// loading flag.
func (b *base) start(op string, load func() error) {
	b.busy[flagLoading] = 1
	go func() {
		err := load()
		if err != nil {
			logFailure(op, err)
		}
		b.mutate(func() {
			b.loadErr = err
			b.busy[flagLoading]--
		})
		close(b.loaded)
	}()
}

func (b *base) isBusy(flag string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy[flag] > 0
}

// mutate runs fn under the store lock, then notifies subscribers.
func (b *base) mutate(fn func()) {
	b.mu.Lock()
	fn()
	b.version++
	version := b.version
	b.mu.Unlock()
	b.changes.Set(version)
}

// run is the shape of every operation: mark busy, call the API, reconcile on
// success, log on failure, always clear the busy mark.
func (b *base) run(flag, op string, call func() error) error {
	b.mutate(func() { b.busy[flag]++ })
	defer b.mutate(func() { b.busy[flag]-- })

	if err := call(); err != nil {
		logFailure(op, err)
		return err
	}
	return nil
}

func logFailure(op string, err error) {
	body := "-"
	if resp := apiclient.BodyOf(err); resp != nil {
		if data, marshalErr := json.Marshal(resp); marshalErr == nil {
			body = string(data)
		}
	}
	log.Printf(`store: %s failed kind=%s status=%d body=%s: %v`,
		op,
		apiclient.KindOf(err),
		apiclient.StatusOf(err),
		body,
		err,
	)
}
