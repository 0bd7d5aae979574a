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

// Package future provides a one-shot asynchronous completion cell. A Promise is the writable side
// of the cell; a Future is a read-only view bound to it. The cell has exactly two states, pending
// and completed, and the pending-to-completed transition happens at most once.
//
// Two rules make the cell safe to use from inside nested scheduling lanes:
//
//  1. Waiting consumers are always invoked asynchronously, on a lane, never inline on the stack of
//     Complete or OnComplete. Callers can therefore never observe a reentrant synchronous
//     completion regardless of registration timing.
//
//  2. The cell's own state transitions are sequenced by a plain mutex held only for pointer-sized
//     bookkeeping, never across a consumer invocation or a lane hop. No lane can target the
//     sequencing of another cell, so no chain of lanes can close a circular wait through a
//     promise.
package future

import (
	"fmt"
	"sync"

	"github.com/botobag/async/concurrent"
)

// Unit is the value type carried by futures that signal bare completion.
type Unit = struct{}

// A ProtocolViolationError is the panic value raised when a Promise is completed twice. Completing
// an already-completed promise is a programmer logic error with no recovery path; it faults the
// offending call immediately rather than silently dropping the second value.
type ProtocolViolationError struct {
	// Reason describes the violated rule.
	Reason string
}

// Error implements Go's error interface so the panic value prints usefully.
func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("future: protocol violation: %s", e.Reason)
}

// A Promise is the writable side of a completion cell. It owns the cell state; Futures derived
// from it only observe.
type Promise[T any] struct {
	// Guards completed, value, waiters and lane. Held only for bookkeeping; consumer invocations
	// happen outside it, on a lane.
	mutex sync.Mutex

	// The tagged state: completed selects between the Pending variant (waiters) and the Completed
	// variant (value).
	completed bool
	value     T

	// Consumers registered while pending, in registration order.
	waiters []func(T)

	// Lane on which waiters are dispatched; set at completion time.
	lane concurrent.Lane
}

// NewPromise creates a pending promise with no waiters.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{}
}

// Future returns a read-only view of the promise.
func (promise *Promise[T]) Future() *Future[T] {
	return &Future[T]{promise: promise}
}

// Complete transitions the promise from pending to completed with the given value, dispatching
// every waiting consumer asynchronously on the process-wide default lane. If the promise was
// already completed, Complete panics with a *ProtocolViolationError.
func (promise *Promise[T]) Complete(value T) {
	promise.CompleteOn(value, concurrent.DefaultLane())
}

// CompleteOn is Complete with an explicit dispatch lane for the waiting consumers. Consumers
// registered after completion are dispatched on the same lane.
func (promise *Promise[T]) CompleteOn(value T, lane concurrent.Lane) {
	mutex := &promise.mutex
	mutex.Lock()

	if promise.completed {
		mutex.Unlock()
		panic(&ProtocolViolationError{
			Reason: "Complete was called on an already-completed promise",
		})
	}

	promise.completed = true
	promise.value = value
	promise.lane = lane

	// Take the waiter list out of the cell; registration stops appending once completed is set.
	waiters := promise.waiters
	promise.waiters = nil

	mutex.Unlock()

	for _, waiter := range waiters {
		dispatch(lane, waiter, value)
	}
}

// dispatch schedules handler(value) on the lane. A lane that was shut down must not swallow a
// completion, so rejected dispatches fall back to the default lane, which never rejects.
func dispatch[T any](lane concurrent.Lane, handler func(T), value T) {
	task := concurrent.TaskFunc(func() { handler(value) })
	if err := lane.Submit(task); err != nil {
		concurrent.DefaultLane().Submit(task)
	}
}
