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

package stream

import (
	"github.com/botobag/async/concurrent"
	"github.com/botobag/async/concurrent/future"
	"github.com/botobag/async/iterator"

	"golang.org/x/exp/constraints"
)

// FromSlice creates a stream producing the elements of the given slice. Each element is handed to
// the sink individually, so the terminal operation can schedule it as one independent unit of work
// on the lane the stream is driven with. The slice is not copied; it must not be mutated while a
// drive is in progress.
func FromSlice[T any](elements []T) Stream[T] {
	return func(sink Sink[T], _ concurrent.Lane) *future.Future[future.Unit] {
		futures := make([]*future.Future[future.Unit], len(elements))
		for i, element := range elements {
			futures[i] = sink(element)
		}
		return allDone(futures...)
	}
}

// FromIterator creates a stream producing the elements of the given iterator. Because streams are
// replayable while iterators are single-pass, the supplied function must produce a fresh iterator;
// it is called once per drive.
//
// Iteration stops at the first error from Next; iterator.Done is the expected terminator.
func FromIterator[T any](iterate func() iterator.Iterator[T]) Stream[T] {
	return func(sink Sink[T], _ concurrent.Lane) *future.Future[future.Unit] {
		var (
			it      = iterate()
			futures []*future.Future[future.Unit]
		)
		for {
			element, err := it.Next()
			if err != nil {
				break
			}
			futures = append(futures, sink(element))
		}
		return allDone(futures...)
	}
}

// Range creates a stream producing the integers in the half-open interval [from, to).
func Range[T constraints.Integer](from, to T) Stream[T] {
	return func(sink Sink[T], _ concurrent.Lane) *future.Future[future.Unit] {
		if to <= from {
			return future.Completed(future.Unit{})
		}
		futures := make([]*future.Future[future.Unit], 0, int(to-from))
		for i := from; i < to; i++ {
			futures = append(futures, sink(i))
		}
		return allDone(futures...)
	}
}
