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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

//===----------------------------------------------------------------------------------------====//
// WorkerPoolLaneConfig
//===----------------------------------------------------------------------------------------====//

// WorkerPoolLaneConfig contains options to configure a WorkerPoolLane.
type WorkerPoolLaneConfig struct {
	// The maximum number of workers allowed in pool (required, must be greater than 0)
	MaxPoolSize uint32

	// The minimum number of workers to maintain in pool
	MinPoolSize uint32

	// The maximum time for an idle worker to wait for new task
	KeepAliveTime time.Duration

	// Queue provides storage to store queueing tasks. If not set, a workItemQueue will be created
	// and be used.
	Queue Queue
}

// Validate verifies config values.
func (config *WorkerPoolLaneConfig) Validate() error {
	if config.MaxPoolSize == 0 {
		return errors.New(`WorkerPoolLane: MaxPoolSize must be a non-zero value which specifies ` +
			`the maximum number of workers to be created by the lane. If you have no idea, try to ` +
			`set the value to uint32(runtime.GOMAXPROCS(-1)).`)
	}

	if config.MaxPoolSize < config.MinPoolSize {
		return fmt.Errorf(`WorkerPoolLane: MaxPoolSize (%d) should be greater than MinPoolSize (%d)`,
			config.MaxPoolSize, config.MinPoolSize)
	}
	return nil
}

//===----------------------------------------------------------------------------------------====//
// workerPoolLaneState
//===----------------------------------------------------------------------------------------====//

// workerPoolLaneState contains current state of the WorkerPoolLane. It contains the pool size and
// the running state of the WorkerPoolLane. It should be updated atomically with CAS.
type workerPoolLaneState int64

// workerPoolLaneRunState indicates the running state of WorkerPoolLane. It is stored in the high
// 32 bits of workerPoolLaneState. The low 32 bits in workerPoolLaneRunState must be 0.
type workerPoolLaneRunState int64

// Enumeration of workerPoolLaneRunState
const (
	workerPoolLaneRunStateMask int64 = -4294967296 // 0xffffffff00000000

	// Lane accepts and processes tasks. The constant is the one and the only one in
	// workerPoolLaneRunState that sets the HSB. This makes workerPoolLaneState with running state be
	// a negative value and thus enables fast check IsRunning.
	workerPoolLaneRunStateRunning workerPoolLaneRunState = workerPoolLaneRunState(workerPoolLaneRunStateMask)

	// Shutdown is invoked on the lane. Queued tasks are processed but no new tasks will be accepted.
	workerPoolLaneRunStateShutdown = 0 // 0x0 << 32

	// There's no tasks in the queue and no new tasks is accepted.
	workerPoolLaneRunStateTerminated = 4294967296 // 0x1 << 32
)

// RunState reads run state from state word.
func (s workerPoolLaneState) RunState() workerPoolLaneRunState {
	return workerPoolLaneRunState(int64(s) & workerPoolLaneRunStateMask)
}

// WorkerCount returns number of workers in the pool currently.
func (s workerPoolLaneState) WorkerCount() uint32 {
	return uint32(s & 0xffffffff)
}

// Load loads state word with atomic.LoadInt64 because it is a lock-free variable. This suppresses
// the errors from Go's race detector. On conventional machines (e.g., x86-64), this is the same as
// dereferencing an int64 pointer.
func (s *workerPoolLaneState) Load() workerPoolLaneState {
	return workerPoolLaneState(atomic.LoadInt64((*int64)(s)))
}

// SetRunState sets the run state.
func (s *workerPoolLaneState) SetRunState(newRunState workerPoolLaneRunState) (oldState workerPoolLaneState) {
	for {
		oldState = *s
		if int64(oldState) >= int64(newRunState) {
			// States are only allowed to transition from RUNNING to SHUTDOWN to TERMINATED.
			return
		}

		newState := makeWorkerPoolLaneState(newRunState, oldState.WorkerCount())
		if atomic.CompareAndSwapInt64((*int64)(s), int64(oldState), int64(newState)) {
			return
		}
	}
}

// IsRunning returns true if the run state is workerPoolLaneRunStateRunning.
func (s workerPoolLaneState) IsRunning() bool {
	return s < 0
}

// IsShutdown returns true if the lane received a shutdown request.
func (s workerPoolLaneState) IsShutdown() bool {
	return s >= workerPoolLaneRunStateShutdown
}

// IsTerminated returns true if the lane is terminated.
func (s workerPoolLaneState) IsTerminated() bool {
	return s >= workerPoolLaneRunStateTerminated
}

// CompareAndIncWorkerCount increments the worker count in the given state by 1 with CAS.
func (s *workerPoolLaneState) CompareAndIncWorkerCount(old workerPoolLaneState) (done bool) {
	return atomic.CompareAndSwapInt64((*int64)(s), int64(old), int64(old+1))
}

// CompareAndDecWorkerCount decrements the worker count in the given state by 1 with CAS.
func (s *workerPoolLaneState) CompareAndDecWorkerCount(old workerPoolLaneState) (done bool) {
	return atomic.CompareAndSwapInt64((*int64)(s), int64(old), int64(old-1))
}

// DecWorkerCount decrement the worker count in the given state by 1. Return the new state after
// decrement.
func (s *workerPoolLaneState) DecWorkerCount() workerPoolLaneState {
	return workerPoolLaneState(atomic.AddInt64((*int64)(s), int64(-1)))
}

// makeWorkerPoolLaneState creates a workerPoolLaneState from given run state and worker count.
func makeWorkerPoolLaneState(
	runState workerPoolLaneRunState,
	workerCount uint32) workerPoolLaneState {

	return workerPoolLaneState(int64(runState) | int64(workerCount))
}

//===----------------------------------------------------------------------------------------====//
// workItem
//===----------------------------------------------------------------------------------------====//

// workItem wraps a Task for queueing in a WorkerPoolLane. The intrusive "next" link lets the queue
// chain items without extra node allocations.
type workItem struct {
	Task

	// The next item to this item in the workItemQueue
	next *workItem
}

var _ Task = (*workItem)(nil)

//===----------------------------------------------------------------------------------------====//
// workItemQueue
//===----------------------------------------------------------------------------------------====//

// workItemQueue is custom queue to store tasks for execution for WorkerPoolLane. The queue is
// essentially a circular linked list which makes use of the "intrusive" link in workItem to
// optimize footprint.
type workItemQueue struct {
	// Tail of linked list; tail.next is the head of linked list.
	//
	// The actual type is *workItem. "tail" is read in Empty without locking and therefore may cause
	// data races while Push and Poll are writing a new tail, we have to access it with
	// atomic.{Load,Store}Pointer to appease Go's race detector. Access it with loadTail and
	// storeTail.
	tail unsafe.Pointer // *workItem

	// Lock that guards accesses to tail and pollCond.
	mutex sync.Mutex

	// Condition variable for Poll to wait for Push; If the queue is closed, it will be set to nil.
	pollCond *sync.Cond
}

func newWorkItemQueue() *workItemQueue {
	queue := &workItemQueue{}
	queue.pollCond = sync.NewCond(&queue.mutex)
	return queue
}

func (queue *workItemQueue) loadTail() *workItem {
	return (*workItem)(atomic.LoadPointer(&queue.tail))
}

func (queue *workItemQueue) storeTail(tail *workItem) {
	atomic.StorePointer(&queue.tail, unsafe.Pointer(tail))
}

// Push implements Queue.
func (queue *workItemQueue) Push(element any) error {
	item := element.(*workItem)

	mutex := &queue.mutex
	mutex.Lock()

	// Disallow new element to be added to queue.
	cond := queue.pollCond
	if cond == nil {
		mutex.Unlock()
		return ErrQueueClosed
	}

	tail := queue.loadTail()
	empty := queue.Empty()

	if empty {
		// item is also the head.
		item.next = item
	} else {
		// Link head node to item.next.
		item.next = tail.next
		// Append item after tail.
		tail.next = item
	}
	// Update queue.tail.
	queue.storeTail(item)

	if empty {
		cond.Signal()
	}

	mutex.Unlock()

	return nil
}

// Poll implements Queue.
func (queue *workItemQueue) Poll(timeout time.Duration) (any, error) {
	mutex := &queue.mutex
	mutex.Lock()

	if queue.Empty() {
		if timeout > 0 {
			// Timed wait: sync.Cond has no deadline support, so arm a timer that broadcasts to kick
			// waiters out of Wait once the deadline passes.
			deadline := time.Now().Add(timeout)
			timer := time.AfterFunc(timeout, func() {
				mutex.Lock()
				if cond := queue.pollCond; cond != nil {
					cond.Broadcast()
				}
				mutex.Unlock()
			})
			for queue.Empty() && queue.pollCond != nil {
				if !time.Now().Before(deadline) {
					break
				}
				queue.pollCond.Wait()
			}
			timer.Stop()

			if queue.Empty() && queue.pollCond != nil {
				mutex.Unlock()
				return nil, ErrQueuePollTimeout
			}
		} else {
			for queue.Empty() && queue.pollCond != nil {
				// Block on cond to wait for Push. Only do so when the queue is not closed.
				queue.pollCond.Wait()
			}
		}

		if queue.Empty() {
			// Unlock mutex for return.
			mutex.Unlock()
			return nil, nil
		}
	}

	tail := queue.loadTail()
	head := tail.next

	if tail == head {
		// Become an empty queue.
		queue.storeTail(nil)
	} else {
		// Update head.
		tail.next = head.next
	}

	// Unlock mutex for return.
	mutex.Unlock()

	return head, nil
}

// Remove implements Queue.
func (queue *workItemQueue) Remove(element any) error {
	mutex := &queue.mutex
	mutex.Lock()

	item := element.(*workItem)

	// Search the previous item of the element in the queue.
	var prevItem *workItem

	if !queue.Empty() {
		tail := queue.loadTail()
		head := tail.next

		// Search from head.
		prevItem = head

		for {
			nextItem := prevItem.next
			if nextItem == item {
				// Re-link.
				prevItem.next = item.next

				if item == tail {
					// The removed item is tail. Update queue.tail as well.
					if tail == head {
						// Queue becomes empty.
						queue.storeTail(nil)
					} else {
						queue.storeTail(prevItem)
					}
				}
				// Help GC.
				item.next = nil

				mutex.Unlock()
				return nil
			}

			// Move to the next item
			prevItem = nextItem
			if prevItem == head {
				break
			}
		}
	}

	mutex.Unlock()

	return ErrElementNotFound
}

// Close implements Queue.
func (queue *workItemQueue) Close() {
	mutex := &queue.mutex
	mutex.Lock()
	cond := queue.pollCond
	if cond != nil {
		// Unblock current waiters.
		cond.Broadcast()
		queue.pollCond = nil
	}
	mutex.Unlock()
}

// Empty implements Queue.
func (queue *workItemQueue) Empty() bool {
	return queue.loadTail() == nil
}

//===----------------------------------------------------------------------------------------====//
// workerPoolLaneWorker
//===----------------------------------------------------------------------------------------====//

type workerPoolLaneWorker struct {
	// Lane that pools this worker
	lane *WorkerPoolLane
}

// newWorkerPoolLaneWorker creates a worker for WorkerPoolLane.
func newWorkerPoolLaneWorker(lane *WorkerPoolLane) workerPoolLaneWorker {
	return workerPoolLaneWorker{
		lane: lane,
	}
}

// Start creates a goroutine to execute run loop.
func (w workerPoolLaneWorker) Start(firstTask Task) {
	go w.run(firstTask)
}

// Run implements run loop for worker to execute tasks in the queue.
func (w workerPoolLaneWorker) run(firstTask Task) {
	task := firstTask

	// The run loop
	for {
		if task == nil {
			// Retrieve one task from lane.
			task = w.lane.pollTask()
			if task == nil {
				// No task to be executed; Terminate the worker.
				break
			}
		}

		// Run task.
		task.Run()

		// Reset task.
		task = nil
	}

	w.lane.terminateWorker(w)
}

//===----------------------------------------------------------------------------------------====//
// WorkerPoolLane
//===----------------------------------------------------------------------------------------====//

// WorkerPoolLane is a concurrent lane which runs submitted tasks with one of the pooled workers
// backed by a goroutine. The implementation is heavily influenced by Doug Lea's PooledExecutor [0]
// which was released into the public domain [1].
//
// We avoid using defer, channel and even lock in the critical path to make it perform efficiently.
//
// The pool does not by default preallocate worker goroutines. Instead, a worker is created if
// necessary when a task arrives.
//
// [0]: http://gee.cs.oswego.edu/dl/classes/EDU/oswego/cs/dl/util/concurrent/intro.html
// [1]: http://creativecommons.org/publicdomain/zero/1.0/
type WorkerPoolLane struct {
	// A lock-free word that contains pool running state and worker count
	state workerPoolLaneState

	// Configuration
	config *WorkerPoolLaneConfig

	// Task queue contains task to be executed
	taskQueue Queue

	// Mutex for guarding terminations
	mutex sync.Mutex

	// Channels that are used for waiting termination. This is guarded by mutex.
	terminations []chan<- bool
}

// WorkerPoolLane implements Lane.
var _ Lane = (*WorkerPoolLane)(nil)

// NewWorkerPoolLane creates a WorkerPoolLane from given config and uses the supplied Queue for
// queuing tasks.
func NewWorkerPoolLane(config WorkerPoolLaneConfig) (*WorkerPoolLane, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	taskQueue := config.Queue
	if taskQueue == nil {
		taskQueue = newWorkItemQueue()
	}

	return &WorkerPoolLane{
		state:     makeWorkerPoolLaneState(workerPoolLaneRunStateRunning, 0),
		config:    &config,
		taskQueue: taskQueue,
	}, nil
}

// Shutdown shuts down the lane. Previously submitted tasks are executed but no new tasks will be
// accepted. It is an no-op if the lane has already shut down. It returns a channel which will
// receive a notification when all remaining tasks have completed after shutdown request.
func (lane *WorkerPoolLane) Shutdown() (terminated <-chan bool, err error) {
	mutex := &lane.mutex

	// Hold lock for potential modification on lane.terminations. This also avoids races with
	// signals in tryTerminate.
	mutex.Lock()

	// Create a channel for return which notifies the completion of termination.
	termination := make(chan bool, 1)

	// Transition the state to SHUTDOWN. After that, addWorker and addTask would refuse any request.
	prevState := lane.state.SetRunState(workerPoolLaneRunStateShutdown)

	if prevState.IsTerminated() {
		// Lane was already terminated. Fill the returning channel with termination signal.
		termination <- true
	} else {
		// Append a termination to lane.terminations.
		lane.terminations = append(lane.terminations, termination)

		// Transition from RUNNING.
		if prevState.IsRunning() {
			// Close queue. This will also unblock all workers that are waiting for tasks on empty queue.
			lane.taskQueue.Close()
		}
	}

	// Unlock mutex to call tryTerminate.
	mutex.Unlock()

	// Try to advance to TERMINATED.
	lane.tryTerminate()

	// Setup return values.
	return termination, nil
}

// loadState loads current state. See comment for the Load method in workerPoolLaneState.
func (lane *WorkerPoolLane) loadState() workerPoolLaneState {
	return lane.state.Load()
}

// tryTerminate tries to transition to TERMINATED if the lane is shut down, and there's no task in
// the queue and all workers are terminated.
func (lane *WorkerPoolLane) tryTerminate() {
	// Load state.
	state := lane.loadState()

	// Quick return if we have not received shutdown request or is already terminated.
	if !state.IsShutdown() || state.IsTerminated() {
		return
	}

	// Quick return if task queue is not empty.
	if !lane.taskQueue.Empty() {
		return
	}

	// Quick return if there're some workers.
	if state.WorkerCount() > 0 {
		return
	}

	// No workers in the pool.

	// Lock mutex to send termination signal after transition to TERMINATED.
	mutex := &lane.mutex
	mutex.Lock()
	defer mutex.Unlock()

	if !state.IsTerminated() {
		// Transition to TERMINATED. No new worker can be added to the lane after the state was
		// transitioned to SHUTDOWN. We can update state word with trivial assignment.
		lane.state.SetRunState(workerPoolLaneRunStateTerminated)

		// Send termination signals.
		terminations := lane.terminations
		lane.terminations = nil
		for _, termination := range terminations {
			termination <- true
		}
	}
}

// Submit implements Lane.
//
// On receiving task, and fewer than the number of config.MinPoolSize are running, a new worker is
// always created to process the task even if other workers are idly waiting for task. Otherwise, a
// new worker is created only if there are fewer than the number of config.MaxPoolSize and the
// request cannot immediately be queued.
func (lane *WorkerPoolLane) Submit(task Task) error {
	// Wrap input task into a workItem for queueing.
	item := &workItem{Task: task}
	task = item

	// Load config into local stack.
	config := lane.config

	// Load state.
	state := lane.loadState()

	// Ensure minimum number of workers.
	if state.WorkerCount() < config.MinPoolSize {
		if err := lane.addWorker(task, config.MinPoolSize); err == nil {
			return nil
		}
		// Ignore errors and reload state.
		state = lane.loadState()
	}

	if state.IsRunning() {
		// Try to give the task to existing worker by putting it to the queue. Note that this assumes
		// that there's always a worker in the pool to process it.
		return lane.addTask(task)
	}

	// Final try by directly requesting a worker to perform the task.
	return lane.addWorker(task, config.MaxPoolSize)
}

var (
	errRejectWorkerDueToShuttingDown = errors.New("unable to add new worker because lane is shutting down")
	errTooManyWorkers                = errors.New("unable to add new worker because worker pool is full")
	errRejectTaskDueToShuttingDown   = errors.New("unable to execute task because lane is shutting down")
)

// addWorker tries to create a worker to execute the task. limit specifies the bound of pool size.
// An error will be returned if the pool size exceeds the limit after adding the newly created
// worker.
func (lane *WorkerPoolLane) addWorker(firstTask Task, limit uint32) error {
	for {
		// Load state.
		state := lane.loadState()
		if state.IsShutdown() {
			return errRejectWorkerDueToShuttingDown
		}

		// Check pool size limit.
		if (state.WorkerCount() + 1) > limit {
			return errTooManyWorkers
		}

		// Atomically increment pool size.
		if lane.state.CompareAndIncWorkerCount(state) {
			break
		}

		// CAS failed. Restart the loop to load new state.
	}

	// Create a new worker and start running with initial task.
	newWorkerPoolLaneWorker(lane).Start(firstTask)

	return nil
}

// terminateWorker is called upon termination of worker w. It should be called from the goroutine
// that runs w.
func (lane *WorkerPoolLane) terminateWorker(w workerPoolLaneWorker) {
	// Note that worker count should have been decremented (by pollTask).
	state := lane.loadState()

	if state.IsShutdown() {
		// Try to advance to TERMINATED.
		lane.tryTerminate()
	} else {
		// Create a replacement as needed.
		minPoolSize := lane.config.MinPoolSize
		if minPoolSize == 0 && !lane.taskQueue.Empty() {
			minPoolSize = 1
		}
		if minPoolSize < state.WorkerCount() {
			lane.addWorker(nil, minPoolSize)
		}
	}
}

// addTask puts the task in the queue and ensures that there'll be a worker to run the task.
func (lane *WorkerPoolLane) addTask(task Task) error {
	taskQueue := lane.taskQueue

	// Put task to the queue.
	if err := taskQueue.Push(task); err != nil {
		return err
	}

	for {
		// The task was successfully enqueued. But during the enqueue, someone may shutdown the lane or
		// there's no worker to execute the task.
		state := lane.loadState()
		if !state.IsRunning() {
			// Try to remove the task from queue.
			if err := lane.taskQueue.Remove(task); err == nil {
				// Successfully remove the task.
				return errRejectTaskDueToShuttingDown
			}
			// Someone took the task from queue.
		} else if state.WorkerCount() == 0 {
			// Lane is running and there's no any worker in current pool. This may happen when
			// config.MinPoolSize is zero. Try to add a worker.
			if err := lane.addWorker(nil, 1); err != nil {
				// Retry.
				continue
			}
		}
		break
	}

	return nil
}

// pollTask blocks the calling worker to wait for a task. This could return nil in the following
// case to indicate that no further task could be run:
//
//  1. The lane received a shutdown request and the task queue is empty.
//  2. The worker doesn't get a task within config.KeepAliveTime and current size of worker pool is
//     greater than config.MinPoolSize.
//
// Note that upon returning nil, the worker count in state word is decremented.
func (lane *WorkerPoolLane) pollTask() Task {
	isIdle := false
	// Cache the config and task queue locally.
	taskQueue := lane.taskQueue
	config := lane.config

	for {
		// Reload state.
		state := lane.state.Load()
		noTasks := taskQueue.Empty()

		if state.IsShutdown() && noTasks {
			lane.state.DecWorkerCount()
			return nil
		}

		redundantWorker := state.WorkerCount() > config.MinPoolSize

		if redundantWorker &&
			isIdle &&
			(state.WorkerCount() > 1 || noTasks) {
			// Cause idle worker to die. The check depends on state.WorkerCount. Other workers may also be
			// here. Perform CAS on decrementing worker count before return. This would limit at most one
			// idle worker to be removed at a time to keep number of config.MinPoolSize workers in the
			// pool.
			if lane.state.CompareAndDecWorkerCount(state) {
				return nil
			}
		}

		// Reset isIdle.
		isIdle = false

		// Determine timeout for polling.
		var timeout time.Duration
		if state.WorkerCount() > config.MinPoolSize {
			timeout = config.KeepAliveTime
		}

		// Poll queue.
		task, err := taskQueue.Poll(timeout)
		if err == ErrQueuePollTimeout {
			isIdle = true
			// Restart loop to reload state and check whether the worker can be killed.
		} else if err != nil {
			// Ignore error and continue polling.
		} else if task != nil {
			return task.(Task)
		}
	}
}
