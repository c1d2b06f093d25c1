package services

import (
	"sync"
	"sync/atomic"
)

// observable carries the loading flag, the last recorded error and change
// subscriptions shared by every store.
type observable struct {
	subMu   sync.Mutex
	nextSub int
	subs    map[int]func()

	loading atomic.Int32

	errMu   sync.RWMutex
	lastErr error
}

// Subscribe registers fn to run after every state change.
func (o *observable) Subscribe(fn func()) (unsubscribe func()) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]func())
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		delete(o.subs, id)
	}
}

// Loading reports whether an operation is in flight.
func (o *observable) Loading() bool {
	return o.loading.Load() > 0
}

// LastError returns the error recorded by the most recent operation, or nil.
func (o *observable) LastError() error {
	o.errMu.RLock()
	defer o.errMu.RUnlock()
	return o.lastErr
}

// begin marks an operation in flight and clears the recorded error. The
// returned func ends it.
func (o *observable) begin() func() {
	o.loading.Add(1)
	o.record(nil)
	return func() {
		o.loading.Add(-1)
		o.changed()
	}
}

// record stores err as the last error and returns it.
func (o *observable) record(err error) error {
	o.errMu.Lock()
	o.lastErr = err
	o.errMu.Unlock()
	return err
}

func (o *observable) changed() {
	o.subMu.Lock()
	fns := make([]func(), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
