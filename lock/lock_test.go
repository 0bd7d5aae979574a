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

package lock_test

import (
	"github.com/botobag/async/concurrent"
	"github.com/botobag/async/concurrent/future"
	"github.com/botobag/async/lock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Lock", func() {
	It("reads the initial value", func() {
		l := lock.New(42)
		Expect(l.Get().Wait()).Should(Equal(42))
	})

	It("makes a Set visible to operations submitted after it", func() {
		l := lock.NewOn("initial", concurrent.NewSerialLane())
		l.Set("updated")
		Expect(l.Get().Wait()).Should(Equal("updated"))
	})

	It("applies Mutate to the current value", func() {
		l := lock.NewOn(40, concurrent.NewSerialLane())
		l.Mutate(func(x int) int { return x + 2 })
		Expect(l.Get().Wait()).Should(Equal(42))
	})

	It("completes Acquire's future with the function's result", func() {
		l := lock.New([]int{1, 2, 3})
		sum := lock.Acquire(l, func(values *[]int) int {
			total := 0
			for _, v := range *values {
				total += v
			}
			return total
		})
		Expect(sum.Wait()).Should(Equal(6))
	})

	It("loses no increments under contention", func() {
		l := lock.New(0)

		const NumIncrements = 1000
		futures := make([]*future.Future[int], NumIncrements)
		for i := 0; i < NumIncrements; i++ {
			futures[i] = lock.Acquire(l, func(counter *int) int {
				*counter++
				return *counter
			})
		}

		future.Join(futures...).Wait()
		Expect(l.Get().Wait()).Should(Equal(NumIncrements))
	})

	It("never lets a read observe a value mid-mutation", func() {
		type pair struct{ a, b int }
		l := lock.New(pair{})

		const NumMutations = 500
		futures := make([]*future.Future[struct{}], 0, 2*NumMutations)
		torn := make(chan pair, NumMutations)

		for i := 0; i < NumMutations; i++ {
			futures = append(futures, lock.Acquire(l, func(p *pair) struct{} {
				// Write the two halves non-atomically; the barrier must hide the gap.
				p.a++
				p.b++
				return struct{}{}
			}))
			futures = append(futures, future.Map(l.Get(), func(p pair) struct{} {
				if p.a != p.b {
					torn <- p
				}
				return struct{}{}
			}))
		}

		future.Join(futures...).Wait()
		Expect(torn).ShouldNot(Receive())
	})
})
