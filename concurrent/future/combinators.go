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

// Completed creates a future that is already completed with the given value.
func Completed[T any](value T) *Future[T] {
	promise := NewPromise[T]()
	promise.Complete(value)
	return promise.Future()
}

// Map builds a future that completes with fn applied to f's value. No goroutine blocks: the
// derived future is backed by a fresh promise completed from f's completion handler.
func Map[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	promise := NewPromise[U]()
	f.OnComplete(func(value T) {
		promise.Complete(fn(value))
	})
	return promise.Future()
}

// FlatMap builds a future that completes with the value of the future produced by fn. fn runs once
// f completes; the derived future completes once fn's future does.
func FlatMap[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	promise := NewPromise[U]()
	f.OnComplete(func(value T) {
		fn(value).OnComplete(func(result U) {
			promise.Complete(result)
		})
	})
	return promise.Future()
}

// Apply builds a future that completes with the function carried by ff applied to the value
// carried by f, once both have completed.
func Apply[T, U any](ff *Future[func(T) U], f *Future[T]) *Future[U] {
	return FlatMap(ff, func(fn func(T) U) *Future[U] {
		return Map(f, fn)
	})
}
