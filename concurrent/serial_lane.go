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
	"sync"
)

// SerialLane is a lane which executes tasks one at a time in strict submission order. It owns no
// worker of its own: execution is delegated onto a target lane (the process-wide default lane
// unless changed with SetTarget), so a serial lane is merely an ordering discipline layered over
// its target.
type SerialLane struct {
	// Guards queue, draining and target.
	mutex sync.Mutex

	// Tasks awaiting execution, in submission order.
	queue []Task

	// True while a drain task is scheduled on (or running on) the target lane. At most one drain
	// task exists at a time, which is what serializes execution.
	draining bool

	// Lane that actually runs the tasks.
	target Lane
}

// SerialLane implements Lane.
var _ Lane = (*SerialLane)(nil)

// NewSerialLane creates a serial lane targeting the default lane.
func NewSerialLane() *SerialLane {
	return &SerialLane{
		target: DefaultLane(),
	}
}

// SetTarget redirects execution onto the given lane. Tasks already handed to the previous target
// keep running there; tasks submitted afterwards run on the new target. Targeting another serial
// lane further serializes this lane behind it.
func (lane *SerialLane) SetTarget(target Lane) {
	lane.mutex.Lock()
	lane.target = target
	lane.mutex.Unlock()
}

// Submit implements Lane. The task is appended to the lane's queue; if no drain is in flight, one
// is scheduled on the target lane.
func (lane *SerialLane) Submit(task Task) error {
	mutex := &lane.mutex
	mutex.Lock()

	lane.queue = append(lane.queue, task)
	index := len(lane.queue) - 1

	if lane.draining {
		// The in-flight drain will pick the task up.
		mutex.Unlock()
		return nil
	}

	lane.draining = true
	target := lane.target
	mutex.Unlock()

	if err := target.Submit(TaskFunc(lane.drain)); err != nil {
		// The target refused the drain; roll back so a later Submit can retry. The rejected task
		// must not run when that later Submit succeeds, so drop it from the queue. No drain is
		// consuming the queue here (this Submit owns the drain flag) and concurrent Submits only
		// append, so the index recorded above is still the task's position.
		mutex.Lock()
		lane.draining = false
		lane.queue = append(lane.queue[:index], lane.queue[index+1:]...)
		mutex.Unlock()
		return err
	}

	return nil
}

// drain runs queued tasks in order until the queue is observed empty. It runs on the target lane;
// because at most one drain exists at a time, tasks never overlap.
func (lane *SerialLane) drain() {
	mutex := &lane.mutex
	for {
		mutex.Lock()
		if len(lane.queue) == 0 {
			lane.draining = false
			mutex.Unlock()
			return
		}
		task := lane.queue[0]
		lane.queue = lane.queue[1:]
		mutex.Unlock()

		task.Run()
	}
}
