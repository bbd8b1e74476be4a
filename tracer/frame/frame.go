// Package frame drives the render loop and notifies callbacks at frame boundaries.
package frame

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyInFrame = errors.New("Begin() called inside a frame")
	ErrNotInFrame     = errors.New("End() called outside a frame")
)

// Callback is called with the frame number of the current frame.
type Callback func(counter uint64)

// Frame counts frames and calls the registered callbacks around each one.
// Begin and End must be called from the render goroutine. Counter may be read
// from any goroutine.
//
// Callbacks run in the order of their keys, so a key such as "zz-scene" runs
// after "frametrace".
type Frame struct {
	counter atomic.Uint64
	inFrame bool

	lock sync.Mutex
	pre  map[string]Callback
	post map[string]Callback
}

func (f *Frame) AddPreFrameCallback(key string, cb Callback) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.pre == nil {
		f.pre = map[string]Callback{}
	}
	f.pre[key] = cb
}

func (f *Frame) AddPostFrameCallback(key string, cb Callback) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.post == nil {
		f.post = map[string]Callback{}
	}
	f.post[key] = cb
}

// RemoveCallbacks removes the pre and post frame callbacks of key.
func (f *Frame) RemoveCallbacks(key string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.pre, key)
	delete(f.post, key)
}

// Counter returns the number of the frame which is running or will run next.
func (f *Frame) Counter() uint64 {
	return f.counter.Load()
}

// InFrame reports whether Begin was called without a matching End.
func (f *Frame) InFrame() bool {
	return f.inFrame
}

// Begin starts a frame and calls the pre-frame callbacks.
func (f *Frame) Begin() error {
	if f.inFrame {
		return ErrAlreadyInFrame
	}
	f.inFrame = true
	n := f.counter.Load()
	for _, cb := range f.callbacks(f.pre) {
		cb(n)
	}
	return nil
}

// End calls the post-frame callbacks and advances the counter.
func (f *Frame) End() error {
	if !f.inFrame {
		return ErrNotInFrame
	}
	n := f.counter.Load()
	for _, cb := range f.callbacks(f.post) {
		cb(n)
	}
	f.counter.Add(1)
	f.inFrame = false
	return nil
}

// Render runs one frame around draw.
func (f *Frame) Render(draw func(counter uint64)) error {
	if err := f.Begin(); err != nil {
		return err
	}
	if draw != nil {
		draw(f.Counter())
	}
	return f.End()
}

// Run renders a frame every interval until ctx is done.
func (f *Frame) Run(ctx context.Context, interval time.Duration, draw func(counter uint64)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.Render(draw); err != nil {
				return err
			}
		}
	}
}

// callbacks returns a snapshot sorted by key.
// Callbacks may add or remove callbacks while they are running.
func (f *Frame) callbacks(m map[string]Callback) []Callback {
	f.lock.Lock()
	defer f.lock.Unlock()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cbs := make([]Callback, len(keys))
	for i, k := range keys {
		cbs[i] = m[k]
	}
	return cbs
}
