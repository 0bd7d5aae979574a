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
	"errors"
	"sync"

	"github.com/botobag/async/concurrent"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// rejectingLane refuses every submission.
type rejectingLane struct{}

func (rejectingLane) Submit(concurrent.Task) error {
	return errors.New("lane rejects all tasks")
}

var _ = Describe("SerialLane", func() {
	It("executes tasks in strict submission order", func() {
		lane := concurrent.NewSerialLane()

		const NumTasks = 1000
		var (
			order []int
			mutex sync.Mutex
			done  = make(chan bool, 1)
		)

		for i := 0; i < NumTasks; i++ {
			index := i
			Expect(lane.Submit(concurrent.TaskFunc(func() {
				mutex.Lock()
				order = append(order, index)
				if len(order) == NumTasks {
					done <- true
				}
				mutex.Unlock()
			}))).Should(Succeed())
		}

		Eventually(done).Should(Receive())

		mutex.Lock()
		defer mutex.Unlock()
		Expect(order).Should(HaveLen(NumTasks))
		for i, index := range order {
			Expect(index).Should(Equal(i))
		}
	})

	It("never overlaps two tasks", func() {
		lane := concurrent.NewSerialLane()

		const NumTasks = 200
		var (
			inFlight    int32
			maxInFlight int32
			mutex       sync.Mutex
			done        = make(chan bool, 1)
			remaining   = NumTasks
		)

		for i := 0; i < NumTasks; i++ {
			Expect(lane.Submit(concurrent.TaskFunc(func() {
				mutex.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mutex.Unlock()

				mutex.Lock()
				inFlight--
				remaining--
				if remaining == 0 {
					done <- true
				}
				mutex.Unlock()
			}))).Should(Succeed())
		}

		Eventually(done).Should(Receive())

		mutex.Lock()
		defer mutex.Unlock()
		Expect(maxInFlight).Should(Equal(int32(1)))
	})

	It("never runs a task it reported as rejected", func() {
		lane := concurrent.NewSerialLane()
		lane.SetTarget(rejectingLane{})

		executed := make(chan int, 2)
		Expect(lane.Submit(concurrent.TaskFunc(func() {
			executed <- 1
		}))).ShouldNot(Succeed())

		// Retarget to a working lane; only the newly accepted task may run.
		lane.SetTarget(concurrent.DefaultLane())
		Expect(lane.Submit(concurrent.TaskFunc(func() {
			executed <- 2
		}))).Should(Succeed())

		Eventually(executed).Should(Receive(Equal(2)))
		Consistently(executed).ShouldNot(Receive())
	})

	It("can target another lane", func() {
		target, err := concurrent.NewWorkerPoolLane(concurrent.WorkerPoolLaneConfig{
			MinPoolSize: 1,
			MaxPoolSize: 4,
		})
		Expect(err).ShouldNot(HaveOccurred())

		lane := concurrent.NewSerialLane()
		lane.SetTarget(target)

		executed := make(chan int, 3)
		for i := 0; i < 3; i++ {
			index := i
			Expect(lane.Submit(concurrent.TaskFunc(func() {
				executed <- index
			}))).Should(Succeed())
		}

		Eventually(executed).Should(Receive(Equal(0)))
		Eventually(executed).Should(Receive(Equal(1)))
		Eventually(executed).Should(Receive(Equal(2)))

		Expect(shutdownLane(target)).Should(Succeed())
	})
})
