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

// Package stream provides a lazy, replayable, push-based sequence abstraction. A Stream is a
// continuation (see the cont package) whose overall result is a future of unit: driving the
// stream hands every element to a consumer, and the returned future completes only once every
// element has been delivered and every consumer invocation has returned.
//
// Streams are stateless and reusable. Intermediate combinators (Map, Filter, FlatMap, Concat)
// build a new pipeline lazily and defer all work; a terminal operation (ForEach, Reduce,
// ReduceConcurrent) starts an independent top-to-bottom traversal, submitting work to the lane it
// was given. Driving the same stream twice re-runs the underlying source traversal twice. No
// ordering is guaranteed between deliveries beyond what the chosen lane provides.
package stream

import (
	"github.com/botobag/async/concurrent"
	"github.com/botobag/async/concurrent/future"
	"github.com/botobag/async/cont"
)

// A Sink consumes one stream element and returns a future that completes once the element has
// been fully handled, including any substream work it expanded into.
type Sink[T any] func(element T) *future.Future[future.Unit]

// A Stream produces elements of type T on demand. Invoking it with a sink and a lane drives the
// traversal; the returned future completes once every element has been handed to the sink and
// every per-element future has completed.
//
// Streams are continuations over completion futures: combinators compose by wrapping the sink,
// exactly as cont.Map and cont.FlatMap wrap a consumer.
type Stream[T any] func(sink Sink[T], lane concurrent.Lane) *future.Future[future.Unit]

// Empty creates a stream with no elements. Driving it completes immediately.
func Empty[T any]() Stream[T] {
	return func(Sink[T], concurrent.Lane) *future.Future[future.Unit] {
		return future.Completed(future.Unit{})
	}
}

// Of creates a one-element stream.
func Of[T any](element T) Stream[T] {
	return func(sink Sink[T], _ concurrent.Lane) *future.Future[future.Unit] {
		return sink(element)
	}
}

// Concat creates a stream producing the elements of both a and b. Both halves are driven with the
// same sink and lane; the result completes once both have completed. Interleaving of deliveries
// follows the lane, as cross-element ordering is unspecified anyway.
func Concat[T any](a, b Stream[T]) Stream[T] {
	return func(sink Sink[T], lane concurrent.Lane) *future.Future[future.Unit] {
		return allDone(a(sink, lane), b(sink, lane))
	}
}

// Concat creates a stream producing the elements of s followed by the elements of other. See the
// package-level Concat.
func (s Stream[T]) Concat(other Stream[T]) Stream[T] {
	return Concat(s, other)
}

// Map creates a stream whose elements are f applied to the source's elements. No work happens
// until a terminal operation drives the result.
func Map[T, U any](s Stream[T], f func(T) U) Stream[U] {
	return func(sink Sink[U], lane concurrent.Lane) *future.Future[future.Unit] {
		return s(func(element T) *future.Future[future.Unit] {
			return sink(f(element))
		}, lane)
	}
}

// FlatMap creates a stream that substitutes, for each source element, the entire substream
// produced by f, concatenating all substreams' elements into the result. The substreams inherit
// the lane the source is driven with, preserving the concurrency policy already attached to the
// pipeline.
func FlatMap[T, U any](s Stream[T], f func(T) Stream[U]) Stream[U] {
	return func(sink Sink[U], lane concurrent.Lane) *future.Future[future.Unit] {
		return s(func(element T) *future.Future[future.Unit] {
			return f(element)(sink, lane)
		}, lane)
	}
}

// Filter creates a stream producing only the source elements for which predicate returns true. It
// is FlatMap into a one-element or empty substream.
func (s Stream[T]) Filter(predicate func(T) bool) Stream[T] {
	return FlatMap(s, func(element T) Stream[T] {
		if predicate(element) {
			return Of(element)
		}
		return Empty[T]()
	})
}

// ForEach drives the stream, delivering every element to handler as one unit of work on the lane.
// The returned future completes only once every element has been delivered and every handler
// invocation has returned. A serial lane processes elements strictly one at a time; a concurrent
// lane processes them in parallel.
func (s Stream[T]) ForEach(handler func(T), lane concurrent.Lane) *future.Future[future.Unit] {
	return s(func(element T) *future.Future[future.Unit] {
		promise := future.NewPromise[future.Unit]()
		err := lane.Submit(concurrent.TaskFunc(func() {
			handler(element)
			promise.Complete(future.Unit{})
		}))
		if err != nil {
			// The lane rejected the element (it is shutting down). The element is dropped, but the
			// drive must still terminate.
			promise.Complete(future.Unit{})
		}
		return promise.Future()
	}, lane)
}

// FromCont creates a stream from a continuation whose result type is a future of unit. The lane
// supplied at drive time is not consulted by the continuation itself; per-element scheduling stays
// with whatever terminal operation wraps the sink.
func FromCont[T any](m cont.Cont[*future.Future[future.Unit], T]) Stream[T] {
	return func(sink Sink[T], _ concurrent.Lane) *future.Future[future.Unit] {
		return cont.Run(m, func(element T) *future.Future[future.Unit] {
			return sink(element)
		})
	}
}

// ToCont exposes the stream as a continuation over completion futures, binding the lane now.
func ToCont[T any](s Stream[T], lane concurrent.Lane) cont.Cont[*future.Future[future.Unit], T] {
	return cont.Suspend(func(k func(T) *future.Future[future.Unit]) *future.Future[future.Unit] {
		return s(Sink[T](k), lane)
	})
}

// allDone returns a future that completes once every given future has.
func allDone(futures ...*future.Future[future.Unit]) *future.Future[future.Unit] {
	switch len(futures) {
	case 0:
		return future.Completed(future.Unit{})
	case 1:
		return futures[0]
	}
	return future.Map(future.Join(futures...), func([]future.Unit) future.Unit {
		return future.Unit{}
	})
}
