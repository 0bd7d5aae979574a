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

package concurrent_test

import (
	"sync/atomic"
	"time"

	"github.com/botobag/async/concurrent"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Group", func() {
	It("notifies once all tasks have completed", func() {
		group := concurrent.NewGroup(concurrent.DefaultLane())

		const NumTasks = 100
		var completed int32
		for i := 0; i < NumTasks; i++ {
			Expect(group.Submit(concurrent.TaskFunc(func() {
				atomic.AddInt32(&completed, 1)
			}))).Should(Succeed())
		}

		notified := make(chan int32, 1)
		group.Notify(func() {
			notified <- atomic.LoadInt32(&completed)
		})

		Eventually(notified).Should(Receive(Equal(int32(NumTasks))))
	})

	It("notifies immediately when idle", func() {
		group := concurrent.NewGroup(concurrent.DefaultLane())

		notified := make(chan bool, 1)
		group.Notify(func() { notified <- true })
		Eventually(notified).Should(Receive())
	})

	It("blocks Wait until completion", func() {
		group := concurrent.NewGroup(concurrent.DefaultLane())

		release := make(chan bool)
		var completed int32
		Expect(group.Submit(concurrent.TaskFunc(func() {
			<-release
			atomic.AddInt32(&completed, 1)
		}))).Should(Succeed())

		// The task has not been released: a bounded wait times out.
		Expect(group.Wait(20 * time.Millisecond)).Should(
			MatchError(concurrent.ErrSemaphoreWaitTimeout))

		close(release)
		Expect(group.Wait(0)).Should(Succeed())
		Expect(atomic.LoadInt32(&completed)).Should(Equal(int32(1)))
	})

	It("delivers notifications after its lane has shut down", func() {
		lane, err := concurrent.NewWorkerPoolLane(concurrent.WorkerPoolLaneConfig{
			MaxPoolSize: 1,
		})
		Expect(err).ShouldNot(HaveOccurred())
		group := concurrent.NewGroup(lane)

		release := make(chan bool)
		Expect(group.Submit(concurrent.TaskFunc(func() {
			<-release
		}))).Should(Succeed())

		// Shut the lane down while the task is still in flight; it runs to completion, but the
		// lane accepts nothing new afterwards.
		terminated, err := lane.Shutdown()
		Expect(err).ShouldNot(HaveOccurred())

		close(release)
		Expect(group.Wait(time.Second)).Should(Succeed())
		Eventually(terminated).Should(Receive())
	})
})

var _ = Describe("ParallelFor", func() {
	It("invokes the body once per index and joins", func() {
		const N = 500
		var (
			visited [N]int32
			sum     int64
		)

		Expect(concurrent.ParallelFor(concurrent.DefaultLane(), N, func(index int) {
			atomic.AddInt32(&visited[index], 1)
			atomic.AddInt64(&sum, int64(index))
		})).Should(Succeed())

		// ParallelFor has joined: plain reads are safe.
		for i := 0; i < N; i++ {
			Expect(visited[i]).Should(Equal(int32(1)))
		}
		Expect(sum).Should(Equal(int64(N * (N - 1) / 2)))
	})

	It("runs indices in order on a serial lane", func() {
		const N = 100
		var order []int

		Expect(concurrent.ParallelFor(concurrent.NewSerialLane(), N, func(index int) {
			order = append(order, index)
		})).Should(Succeed())

		Expect(order).Should(HaveLen(N))
		for i, index := range order {
			Expect(index).Should(Equal(i))
		}
	})
})

var _ = Describe("Semaphore", func() {
	It("unblocks a waiter per signal", func() {
		sem := concurrent.NewSemaphore()

		waited := make(chan bool, 2)
		for i := 0; i < 2; i++ {
			go func() {
				Expect(sem.Wait(0)).Should(Succeed())
				waited <- true
			}()
		}

		Consistently(waited, 30*time.Millisecond).ShouldNot(Receive())

		sem.Signal()
		Eventually(waited).Should(Receive())

		sem.Signal()
		Eventually(waited).Should(Receive())
	})

	It("times out when no signal arrives", func() {
		sem := concurrent.NewSemaphore()
		Expect(sem.Wait(10 * time.Millisecond)).Should(
			MatchError(concurrent.ErrSemaphoreWaitTimeout))
	})

	It("consumes signals sent before the wait", func() {
		sem := concurrent.NewSemaphore()
		sem.Signal()
		Expect(sem.Wait(0)).Should(Succeed())
	})
})
