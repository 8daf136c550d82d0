// Package dualmode lets one operation implementation be invoked either as a
// blocking call or as a cooperatively-scheduled pending task, depending on
// the caller's runtime context.
//
// An operation is authored once as a Func. A caller with no cooperative Loop
// in its context gets the result directly: a private loop is created, the
// operation is driven to completion on it, and the loop is torn down. A
// caller whose context carries a running Loop gets a pending *Task back and
// is responsible for awaiting it.
//
// The detection outcome is cached asymmetrically per Adapter: once an
// in-loop call has been observed the adapter is assumed async-bound forever
// and returns pending tasks without re-probing; the "no loop" outcome is
// never cached and is re-evaluated on every call. A process legitimately
// transitions from sync-only to running a loop, but not the reverse.
package dualmode

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Func is the single authored implementation of a dual-mode operation.
type Func[T any] func(ctx context.Context) (T, error)

type loopKey struct{}

// Loop is a single-goroutine cooperative executor. Work submitted to it runs
// in submission order on whichever goroutine calls Run.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop returns an idle loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// WithLoop returns a context carrying l, marking everything invoked under it
// as running inside a cooperative context.
func WithLoop(ctx context.Context, l *Loop) context.Context {
	return context.WithValue(ctx, loopKey{}, l)
}

// FromContext reports the loop the context is running under, if any.
func FromContext(ctx context.Context) (*Loop, bool) {
	l, ok := ctx.Value(loopKey{}).(*Loop)
	return l, ok
}

// Run processes submitted work until Shutdown is called or ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Shutdown stops Run after the currently executing item. Safe to call more
// than once.
func (l *Loop) Shutdown() {
	l.once.Do(func() { close(l.done) })
}

func (l *Loop) submit(fn func()) bool {
	select {
	case <-l.done:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Task is a pending operation result.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Completed returns an already-finished task holding the given outcome.
func Completed[T any](val T, err error) *Task[T] {
	t := newTask[T]()
	t.val, t.err = val, err
	close(t.done)
	return t
}

func (t *Task[T]) finish(val T, err error) {
	t.val, t.err = val, err
	close(t.done)
}

// Await blocks until the task completes or ctx is canceled.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-t.done:
		return t.val, t.err
	}
}

// Done reports whether the task has completed without blocking.
func (t *Task[T]) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// InvalidContextError reports a blocking entry point invoked while already
// running inside a cooperative loop, where blocking would stall the loop.
type InvalidContextError struct {
	Method string
}

func (e *InvalidContextError) Error() string {
	return fmt.Sprintf("cannot call %s in blocking mode from inside a running loop, await it instead", e.Method)
}

// Adapter makes one named operation callable in both modes. One Adapter
// instance wraps one logical method; the async-seen latch is per instance.
type Adapter[T any] struct {
	method    string
	asyncSeen atomic.Bool
}

// NewAdapter returns an adapter for the named method. The name only appears
// in errors.
func NewAdapter[T any](method string) *Adapter[T] {
	return &Adapter[T]{method: method}
}

// Invoke runs fn according to the calling context. When the returned task is
// nil the value and error are final (the operation was driven to completion
// on a private loop); when the task is non-nil the caller must await it.
//
// Once a call under a running loop has been observed, Invoke returns pending
// tasks from then on, loop or no loop.
func (a *Adapter[T]) Invoke(ctx context.Context, fn Func[T]) (T, *Task[T], error) {
	var zero T
	if a.asyncSeen.Load() {
		if l, ok := FromContext(ctx); ok {
			return zero, a.schedule(ctx, l, fn), nil
		}
		return zero, a.spawn(ctx, fn), nil
	}
	if l, ok := FromContext(ctx); ok {
		a.asyncSeen.Store(true)
		return zero, a.schedule(ctx, l, fn), nil
	}
	val, err := a.drive(ctx, fn)
	return val, nil, err
}

// Block is the explicitly blocking entry point. Invoked while the context
// carries a running loop it fails with InvalidContextError instead of
// stalling the loop.
func (a *Adapter[T]) Block(ctx context.Context, fn Func[T]) (T, error) {
	if _, ok := FromContext(ctx); ok {
		var zero T
		return zero, &InvalidContextError{Method: a.method}
	}
	return a.drive(ctx, fn)
}

// Submit is the explicitly suspending entry point: it always returns a
// pending task and latches the adapter as async-bound.
func (a *Adapter[T]) Submit(ctx context.Context, fn Func[T]) *Task[T] {
	a.asyncSeen.Store(true)
	if l, ok := FromContext(ctx); ok {
		return a.schedule(ctx, l, fn)
	}
	return a.spawn(ctx, fn)
}

// drive runs fn to completion on a private loop owned by the calling
// goroutine.
func (a *Adapter[T]) drive(ctx context.Context, fn Func[T]) (T, error) {
	l := NewLoop()
	t := newTask[T]()
	l.submit(func() {
		defer l.Shutdown()
		val, err := fn(WithLoop(ctx, l))
		t.finish(val, err)
	})
	if err := l.Run(ctx); err != nil {
		var zero T
		return zero, err
	}
	return t.val, t.err
}

func (a *Adapter[T]) schedule(ctx context.Context, l *Loop, fn Func[T]) *Task[T] {
	t := newTask[T]()
	ok := l.submit(func() {
		val, err := fn(ctx)
		t.finish(val, err)
	})
	if !ok {
		var zero T
		t.finish(zero, Error("loop is shut down"))
	}
	return t
}

// spawn backs a pending task on an adapter that is latched async but has no
// loop in the calling context.
func (a *Adapter[T]) spawn(ctx context.Context, fn Func[T]) *Task[T] {
	t := newTask[T]()
	go func() {
		val, err := fn(ctx)
		t.finish(val, err)
	}()
	return t
}

// Error is a type that allows for error constants in this package.
type Error string

// Error returns a string representation of the error.
func (e Error) Error() string { return string(e) }

// resetForTest clears the async-seen latch. Production code never unlatches.
func (a *Adapter[T]) resetForTest() {
	a.asyncSeen.Store(false)
}
