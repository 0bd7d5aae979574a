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
	"github.com/botobag/async/lock"
)

// Reduce drives the stream and folds its elements into a single accumulator, one element at a
// time, behind a Lock barrier (the "pseudo-serial" reduction). Each element's fold is submitted to
// the given lane as its own unit of work: a concurrent lane folds with unspecified arrival order,
// a serial lane folds in submission order. Folds never overlap in either case.
//
// Arrival order is not guaranteed in general, so combine must be commutative over arrival:
//
//	combine(combine(r, a), b) == combine(combine(r, b), a)
//
// Each call starts an independent traversal with a fresh accumulator.
func Reduce[T, R any](s Stream[T], initial R, combine func(R, T) R, lane concurrent.Lane) *future.Future[R] {
	accumulator := lock.NewOn(initial, lane)

	driven := s(func(element T) *future.Future[future.Unit] {
		return lock.Acquire(accumulator, func(value *R) future.Unit {
			*value = combine(*value, element)
			return future.Unit{}
		})
	}, lane)

	promise := future.NewPromise[R]()
	driven.OnComplete(func(future.Unit) {
		accumulator.Get().OnComplete(promise.Complete)
	})
	return promise.Future()
}

// slotPool is the arena of interchangeable partial accumulators used by ReduceConcurrent. Slots
// are managed by index rather than by shared reference, so a checked-out partial is owned by
// exactly one element at a time.
type slotPool[R any] struct {
	// All partial accumulators ever created for this reduction.
	slots []R

	// Indices of slots currently available for checkout.
	free []int
}

// checkedOut is a partial accumulator on loan from the pool.
type checkedOut[R any] struct {
	index int
	value R
}

// ReduceConcurrent drives the stream and folds its elements through a pool of partial
// accumulators, allowing folds themselves to run concurrently (the "fully concurrent" reduction).
//
// The pool is seeded with one copy of identity. Each arriving element checks one partial
// accumulator out of the pool (a fresh identity-seeded one is created if the pool is momentarily
// empty), applies combine to it outside the pool's barrier, and checks the result back in. Once
// every element has been folded, the remaining partials are folded together with merger. The
// checkout, checkin and final merge are each submitted to the given lane as their own unit of
// work, so the lane's concurrency bounds the reduction's.
//
// The number of live partials and the arrival order both vary run to run, so correctness requires
// the algebraic laws
//
//	combine(identity, x) == x
//	combine and merger commutative
//	combine(merger(a, b), x) == merger(a, combine(b, x))
//
// under which any valid fold order yields the same final value.
func ReduceConcurrent[T, R any](
	s Stream[T],
	identity R,
	merger func(R, R) R,
	combine func(R, T) R,
	lane concurrent.Lane) *future.Future[R] {

	pool := lock.NewOn(slotPool[R]{
		slots: []R{identity},
		free:  []int{0},
	}, lane)

	driven := s(func(element T) *future.Future[future.Unit] {
		borrowed := lock.Acquire(pool, func(p *slotPool[R]) checkedOut[R] {
			if len(p.free) == 0 {
				p.slots = append(p.slots, identity)
				p.free = append(p.free, len(p.slots)-1)
			}
			index := p.free[len(p.free)-1]
			p.free = p.free[:len(p.free)-1]
			return checkedOut[R]{index: index, value: p.slots[index]}
		})

		return future.FlatMap(borrowed, func(partial checkedOut[R]) *future.Future[future.Unit] {
			// The fold itself runs outside the pool's barrier; only checkout and checkin are
			// serialized.
			combined := combine(partial.value, element)

			return lock.Acquire(pool, func(p *slotPool[R]) future.Unit {
				p.slots[partial.index] = combined
				p.free = append(p.free, partial.index)
				return future.Unit{}
			})
		})
	}, lane)

	promise := future.NewPromise[R]()
	driven.OnComplete(func(future.Unit) {
		lock.Acquire(pool, func(p *slotPool[R]) R {
			// Every element future has completed, so every slot is checked in.
			result := p.slots[0]
			for _, partial := range p.slots[1:] {
				result = merger(result, partial)
			}
			return result
		}).OnComplete(promise.Complete)
	})
	return promise.Future()
}
