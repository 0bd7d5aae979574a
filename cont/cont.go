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

// Package cont provides the continuation-passing composition primitive that the
// asynchronous abstractions in this module are built around. A continuation is
// a computation expressed "inside out": instead of returning its value, it
// receives a consumer function and hands the value to it. The producer decides
// when (and on which lane) the consumer runs, which is exactly the control
// inversion that futures, streams and channels need.
//
// The package is purely compositional. Nothing here spawns work or
// synchronizes; concurrency is a property of what the wrapped functions do
// when invoked, supplied by the layers on top.
package cont

// A Cont represents a computation producing a value of type A within an
// overall computation whose final result has type R. The wrapped function
// receives a consumer k which is "the rest of the computation"; applying k to
// a value of type A produces the final result of type R.
type Cont[R, A any] func(k func(A) R) R

// Of lifts a pure value into a continuation. The resulting computation
// immediately hands the value to its consumer.
func Of[R, A any](a A) Cont[R, A] {
	return func(k func(A) R) R {
		return k(a)
	}
}

// Suspend builds a continuation from a raw CPS function. It is the primitive
// constructor for computations that need direct access to their consumer.
func Suspend[R, A any](f func(k func(A) R) R) Cont[R, A] {
	return Cont[R, A](f)
}

// Run invokes the continuation with the given consumer and returns the final
// result.
func Run[R, A any](m Cont[R, A], k func(A) R) R {
	return m(k)
}

// Map transforms the eventual value of a continuation without altering its
// control flow. The consumer of the result sees f applied to whatever m
// produces.
func Map[R, A, B any](m Cont[R, A], f func(A) B) Cont[R, B] {
	return func(k func(B) R) R {
		return m(func(a A) R {
			return k(f(a))
		})
	}
}

// FlatMap sequences two continuations. The computation produced by f begins
// only once m has handed its value to a consumer; the overall result is the
// result of the second computation.
func FlatMap[R, A, B any](m Cont[R, A], f func(A) Cont[R, B]) Cont[R, B] {
	return func(k func(B) R) R {
		return m(func(a A) R {
			return f(a)(k)
		})
	}
}
