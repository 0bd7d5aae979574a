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

package concurrent

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newTestItem() *workItem {
	return &workItem{Task: TaskFunc(func() {})}
}

func produce(queue *workItemQueue, n int, items []*workItem, wg *sync.WaitGroup) {
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerIndex int) {
			defer wg.Done()
			for itemIndex, item := range items {
				if itemIndex%n == workerIndex {
					Expect(queue.Push(item)).Should(Succeed())
				}
			}
		}(i)
	}
}

func consume(queue *workItemQueue, n int, numRemovers int, items []*workItem, wg *sync.WaitGroup) {
	// Build item map for checking results.
	itemMap := map[*workItem]bool{}
	for _, item := range items {
		itemMap[item] = true
	}

	// Mutex that guards accesses to itemMap.
	var (
		itemMapMutex sync.Mutex
		numItems     = int64(len(items))
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				// Decrement numItems.
				cur := atomic.LoadInt64(&numItems)
				if cur <= 0 {
					// All items are consumed. Call Close to unblock others that stuck in Poll.
					queue.Close()
					break
				}

				if !atomic.CompareAndSwapInt64(&numItems, cur, cur-1) {
					// numItems has been modified by others. Restart the loop to check current value.
					continue
				}

				item, err := queue.Poll(0)
				Expect(err).ShouldNot(HaveOccurred())
				if item == nil {
					continue
				}

				// Lock itemMapMutex.
				itemMapMutex.Lock()
				Expect(itemMap).Should(HaveKey(item))
				delete(itemMap, item.(*workItem))
				itemMapMutex.Unlock()
			}
		}()
	}

	for i := 0; i < numRemovers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for atomic.LoadInt64(&numItems) > 0 {
				// Select item to be removed randomly.
				item := items[rand.Int31n(int32(len(items)))]

				// Check whether the specified item is removed.
				itemMapMutex.Lock()
				_, exists := itemMap[item]
				itemMapMutex.Unlock()

				// Remove.
				err := queue.Remove(item)
				if !exists {
					Expect(err).Should(MatchError(ErrElementNotFound))
				} else {
					Expect(err).Should(Or(BeNil(), MatchError(ErrElementNotFound)))

					if err == nil {
						// Successfully removed. Update itemMap.
						itemMapMutex.Lock()
						Expect(itemMap).Should(HaveKey(item))
						delete(itemMap, item)
						itemMapMutex.Unlock()

						// Decrement numItems.
						if atomic.AddInt64(&numItems, -1) == 0 {
							// All items are consumed. Call Close to unblock others that stuck in Poll.
							queue.Close()
							break
						}
					} else if err == ErrElementNotFound {
						// Someone has consumed the item.
					}
				}
			}
		}()
	}
}

func testQueue(numProducers int, numConsumers int, numRemovers int) {
	queue := newWorkItemQueue()

	// Create number of NumTestItems items.
	const NumTestItems = 100
	items := make([]*workItem, NumTestItems)
	for i := 0; i < NumTestItems; i++ {
		items[i] = newTestItem()
	}

	// Create producers to push the items.
	var wg sync.WaitGroup
	produce(queue, numProducers, items, &wg)

	// Consume items.
	consume(queue, numConsumers, numRemovers, items, &wg)

	// Block until all items was pushed and popped.
	wg.Wait()

	Expect(queue.Empty()).Should(BeTrue())
}

var _ = Describe("workItemQueue: default custom queue used by WorkerPoolLane", func() {
	It("accepts an item", func() {
		queue := newWorkItemQueue()
		item := newTestItem()
		Expect(queue.Empty()).Should(BeTrue())
		Expect(queue.Push(item)).Should(Succeed())
		Expect(queue.Empty()).Should(BeFalse())
		Expect(queue.Poll(0)).Should(Equal(item))
		Expect(queue.Empty()).Should(BeTrue())
	})

	It("accepts multiple producers", func() {
		testQueue(10 /* numProducers */, 1 /*numConsumers */, 0 /* numRemovers */)
	})

	It("accepts multiple consumers", func() {
		testQueue(1 /* numProducers */, 10 /*numConsumers */, 0 /* numRemovers */)
	})

	It("accepts multiple producers and consumers", func() {
		testQueue(10 /* numProducers */, 10 /*numConsumers */, 0 /* numRemovers */)
	})

	Context("removes items from queue", func() {
		It("removes items that haven't been taken", func() {
			queue := newWorkItemQueue()
			item := newTestItem()
			Expect(queue.Push(item)).Should(Succeed())
			Expect(queue.Remove(item)).Should(Succeed())
		})

		It("cannot remove items that have been taken", func() {
			queue := newWorkItemQueue()
			item := newTestItem()
			Expect(queue.Push(item)).Should(Succeed())
			Expect(queue.Poll(0)).Should(Equal(item))
			Expect(queue.Remove(item)).Should(MatchError(ErrElementNotFound))
		})

		It("can remove items concurrently with multiple producers and consumers", func() {
			testQueue(10 /* numProducers */, 10 /*numConsumers */, 1 /* numRemovers */)
			testQueue(10 /* numProducers */, 10 /*numConsumers */, 10 /* numRemovers */)
		})
	})

	It("can close multiple times", func() {
		queue := newWorkItemQueue()
		queue.Close()
		queue.Close()
	})

	It("disallows push on closed queue", func() {
		queue := newWorkItemQueue()
		queue.Close()
		item := newTestItem()
		Expect(queue.Push(item)).Should(MatchError(ErrQueueClosed))
	})

	It("unblocks poll on empty closed queue", func() {
		queue := newWorkItemQueue()
		Expect(queue.Empty()).Should(BeTrue())

		// Use goroutine to poll the empty queue.
		pollStart := make(chan bool, 1)
		pollDone := make(chan bool, 1)
		go func() {
			pollStart <- true
			Expect(queue.Poll(0)).Should(BeNil())
			pollDone <- true
		}()

		// Wait until goroutine starts.
		<-pollStart

		// Close queue.
		queue.Close()

		// Poll in goroutine should be unblocked and return.
		Eventually(pollDone).Should(Receive())

		// Any future Poll on empty queue will immediately return with nil.
		Expect(queue.Poll(0)).Should(BeNil())
	})

	It("times out poll on empty queue", func() {
		queue := newWorkItemQueue()
		_, err := queue.Poll(10 * time.Millisecond)
		Expect(err).Should(MatchError(ErrQueuePollTimeout))
	})
})
