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

// Package channel provides a live multicast event source: the non-terminating analog of a stream.
// A Writer publishes discrete values to a dynamically growing registry of handlers; a Channel is
// the read-only capability referencing the same writer.
//
// Publishing snapshots the registry: a handler registered after the snapshot was taken does not
// receive that value. Handlers are never auto-removed.
package channel

import (
	"sync"

	"github.com/botobag/async/concurrent"
	"github.com/botobag/async/concurrent/future"
	"github.com/botobag/async/lock"
)

// A Handler consumes one published value.
type Handler[T any] func(value T)

// A Writer owns a Lock-protected, insertion-ordered registry of handlers and publishes values to
// them. Handlers are retained for the lifetime of the writer.
type Writer[T any] struct {
	// The handler registry. The lock is anchored on a serial lane so that registry operations
	// execute in submission order: a handler added before a publish is guaranteed to be in that
	// publish's snapshot.
	handlers *lock.Lock[[]Handler[T]]

	// Lane on which Publish schedules handler invocations.
	lane concurrent.Lane
}

// NewWriter creates a Writer with an empty registry, publishing on the process-wide default lane.
func NewWriter[T any]() *Writer[T] {
	return NewWriterOn[T](concurrent.DefaultLane())
}

// NewWriterOn creates a Writer whose Publish schedules handler invocations on the given lane.
func NewWriterOn[T any](lane concurrent.Lane) *Writer[T] {
	return &Writer[T]{
		handlers: lock.NewOn([]Handler[T]{}, concurrent.NewSerialLane()),
		lane:     lane,
	}
}

// AddHandler appends handler to the registry. The handler receives every value published after
// this registration; it is never removed.
func (w *Writer[T]) AddHandler(handler Handler[T]) {
	w.handlers.Mutate(func(handlers []Handler[T]) []Handler[T] {
		return append(handlers, handler)
	})
}

// Publish delivers value to every currently registered handler on the writer's lane. See
// PublishOn.
func (w *Writer[T]) Publish(value T) *future.Future[future.Unit] {
	return w.PublishOn(value, w.lane)
}

// PublishOn snapshots the current handler registry and schedules one invocation per handler on
// the lane. The returned future completes once all of them have returned. Handlers registered
// after the snapshot was taken do not receive this value.
func (w *Writer[T]) PublishOn(value T, lane concurrent.Lane) *future.Future[future.Unit] {
	promise := future.NewPromise[future.Unit]()

	snapshot := lock.Acquire(w.handlers, func(handlers *[]Handler[T]) []Handler[T] {
		taken := make([]Handler[T], len(*handlers))
		copy(taken, *handlers)
		return taken
	})

	snapshot.OnComplete(func(handlers []Handler[T]) {
		group := concurrent.NewGroup(lane)
		for _, handler := range handlers {
			handler := handler
			group.Submit(concurrent.TaskFunc(func() { handler(value) }))
		}
		group.Notify(func() { promise.Complete(future.Unit{}) })
	})

	return promise.Future()
}

// Channel returns the read-only capability for this writer.
func (w *Writer[T]) Channel() *Channel[T] {
	return &Channel[T]{writer: w}
}

// A Channel is the read-only view of a Writer. It never owns the registry; it only registers
// handlers against it.
type Channel[T any] struct {
	writer *Writer[T]
}

// AddHandler registers handler for every value published after this registration.
func (c *Channel[T]) AddHandler(handler Handler[T]) {
	c.writer.AddHandler(handler)
}

// Next returns a future completed with the next value the channel receives. The registered
// handler stays in the registry (handlers are never removed) but ignores every value after the
// first: re-completing the one-shot promise would be a protocol violation, and a subscriber's
// convenience must not fault the publisher.
func (c *Channel[T]) Next() *future.Future[T] {
	promise := future.NewPromise[T]()
	var once sync.Once
	c.AddHandler(func(value T) {
		once.Do(func() { promise.Complete(value) })
	})
	return promise.Future()
}

// Map creates a derived channel fed with f applied to every value c receives.
func Map[T, U any](c *Channel[T], f func(T) U) *Channel[U] {
	derived := NewWriterOn[U](c.writer.lane)
	c.AddHandler(func(value T) {
		derived.Publish(f(value))
	})
	return derived.Channel()
}

// FlatMap creates a derived channel fed with every value of every channel f produces: each value
// c receives selects a channel via f, and the derived channel is subscribed to it from that point
// on.
func FlatMap[T, U any](c *Channel[T], f func(T) *Channel[U]) *Channel[U] {
	derived := NewWriterOn[U](c.writer.lane)
	c.AddHandler(func(value T) {
		f(value).AddHandler(func(inner U) {
			derived.Publish(inner)
		})
	})
	return derived.Channel()
}

// Filter creates a derived channel fed with only the values for which predicate returns true.
func (c *Channel[T]) Filter(predicate func(T) bool) *Channel[T] {
	derived := NewWriterOn[T](c.writer.lane)
	c.AddHandler(func(value T) {
		if predicate(value) {
			derived.Publish(value)
		}
	})
	return derived.Channel()
}

// Concat creates a derived channel fed by both c and other. Live sources do not terminate, so
// there is no "after c finishes" to sequence on; values merge as they arrive.
func (c *Channel[T]) Concat(other *Channel[T]) *Channel[T] {
	derived := NewWriterOn[T](c.writer.lane)
	forward := func(value T) { derived.Publish(value) }
	c.AddHandler(forward)
	other.AddHandler(forward)
	return derived.Channel()
}
