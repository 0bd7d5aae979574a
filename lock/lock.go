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

// Package lock provides a mutual-exclusion cell integrated with the completion model: a Lock
// exclusively owns one value, and every observation or mutation of that value is an asynchronous
// operation whose result is a future. Call sites read synchronously while the actual access is
// scheduled onto a lane.
//
// The access discipline is a barrier: writes (Set, Mutate, Acquire) are mutually exclusive with
// every other operation on the same Lock, while reads (Get) may overlap other reads. A read never
// observes a value mid-mutation, and no two mutations overlap, so there are no torn reads and no
// lost writes.
package lock

import (
	"sync"

	"github.com/botobag/async/concurrent"
	"github.com/botobag/async/concurrent/future"
)

// A Lock exclusively owns one value of type T. All access to the value goes through the Lock's
// operations; no other component may hold a mutable reference to it across an asynchronous
// suspension point.
type Lock[T any] struct {
	// Reader/writer barrier over value: reads share, writes exclude.
	mutex sync.RWMutex

	// The protected value.
	value T

	// Lane on which accesses are scheduled.
	lane concurrent.Lane
}

// New creates a Lock owning the given initial value. Accesses are scheduled on the process-wide
// default lane.
func New[T any](initial T) *Lock[T] {
	return NewOn(initial, concurrent.DefaultLane())
}

// NewOn creates a Lock whose accesses are scheduled on the given lane. With a serial lane,
// operations additionally execute in submission order, which makes a fire-and-forget write
// visible to every operation submitted after it.
func NewOn[T any](initial T, lane concurrent.Lane) *Lock[T] {
	return &Lock[T]{
		value: initial,
		lane:  lane,
	}
}

// Get reads the protected value. The read may run concurrently with other reads, but never
// overlaps a mutation.
func (l *Lock[T]) Get() *future.Future[T] {
	promise := future.NewPromise[T]()
	submit(l.lane, func() {
		l.mutex.RLock()
		value := l.value
		l.mutex.RUnlock()
		promise.Complete(value)
	})
	return promise.Future()
}

// Set replaces the protected value. It is an asynchronous fire-and-forget exclusive write.
func (l *Lock[T]) Set(value T) {
	submit(l.lane, func() {
		l.mutex.Lock()
		l.value = value
		l.mutex.Unlock()
	})
}

// Mutate replaces the protected value with fn applied to the current value, under the barrier. It
// is fire-and-forget like Set.
func (l *Lock[T]) Mutate(fn func(T) T) {
	submit(l.lane, func() {
		l.mutex.Lock()
		l.value = fn(l.value)
		l.mutex.Unlock()
	})
}

// Acquire grants fn exclusive read-modify access to the protected value and completes the returned
// future with whatever fn computes.
//
// fn must not, even transitively, wait on another operation on the same Lock before returning:
// the barrier is held until fn returns, so doing so deadlocks.
func Acquire[T, U any](l *Lock[T], fn func(value *T) U) *future.Future[U] {
	promise := future.NewPromise[U]()
	submit(l.lane, func() {
		l.mutex.Lock()
		result := fn(&l.value)
		l.mutex.Unlock()
		promise.Complete(result)
	})
	return promise.Future()
}

// submit schedules fn on the lane, falling back to the default lane if the lane rejects it: a
// lock operation that has been accepted by the API must not be silently lost.
func submit(lane concurrent.Lane, fn func()) {
	task := concurrent.TaskFunc(fn)
	if err := lane.Submit(task); err != nil {
		concurrent.DefaultLane().Submit(task)
	}
}
