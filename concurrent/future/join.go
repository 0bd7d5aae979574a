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
	"sync/atomic"
)

// Join creates a Future which aggregates values from a collection of Futures.
//
// The returned Future completes once every input has completed, with the values collected into a
// slice in the same order as the inputs were given (regardless of completion order). Joining zero
// futures yields a future that is already completed with an empty slice.
func Join[T any](futures ...*Future[T]) *Future[[]T] {
	promise := NewPromise[[]T]()
	results := make([]T, len(futures))

	if len(futures) == 0 {
		promise.Complete(results)
		return promise.Future()
	}

	var remaining atomic.Int64
	remaining.Store(int64(len(futures)))

	for i, f := range futures {
		index := i
		f.OnComplete(func(value T) {
			// Each slot is written by exactly one handler; the atomic decrement orders every write
			// before the read in the completing handler.
			results[index] = value
			if remaining.Add(-1) == 0 {
				promise.Complete(results)
			}
		})
	}

	return promise.Future()
}
