/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package future

import (
	"errors"
	"time"

	"github.com/botobag/async/concurrent"
)

// ErrWaitTimeout is returned by WaitFor to indicate the future did not complete within the
// timeout. It is the only recoverable failure in this package: the caller merely abandons
// observation, the underlying work is not stopped.
var ErrWaitTimeout = errors.New("future: timeout while waiting for completion")

// A Future is a read-only capability bound to one Promise. It does not own the cell state; it only
// observes it.
type Future[T any] struct {
	promise *Promise[T]
}

// OnComplete registers handler to be invoked with the completed value. If the backing promise is
// still pending, the handler is appended to the waiter list under the promise's own gate, so
// registration races safely with a concurrent Complete. If the promise is already completed, the
// handler is dispatched asynchronously right away; it is never invoked inline on the caller's
// stack.
func (f *Future[T]) OnComplete(handler func(T)) {
	promise := f.promise

	mutex := &promise.mutex
	mutex.Lock()

	if !promise.completed {
		promise.waiters = append(promise.waiters, handler)
		mutex.Unlock()
		return
	}

	value, lane := promise.value, promise.lane
	mutex.Unlock()

	dispatch(lane, handler, value)
}

// Wait blocks the calling goroutine until the future completes and returns its value. It registers
// a completion handler that stores the value and signals a counting semaphore, then parks on that
// semaphore.
func (f *Future[T]) Wait() T {
	value, err := f.wait(0)
	if err != nil {
		// wait without a timeout cannot fail.
		panic(err)
	}
	return value
}

// WaitFor is Wait bounded by a timeout. It returns ErrWaitTimeout (and the zero value) if the
// future does not complete in time.
func (f *Future[T]) WaitFor(timeout time.Duration) (T, error) {
	return f.wait(timeout)
}

func (f *Future[T]) wait(timeout time.Duration) (T, error) {
	var (
		received T
		sem      = concurrent.NewSemaphore()
	)

	// The semaphore orders the write below against the read after Wait returns.
	f.OnComplete(func(value T) {
		received = value
		sem.Signal()
	})

	if err := sem.Wait(timeout); err != nil {
		var zero T
		return zero, ErrWaitTimeout
	}
	return received, nil
}
