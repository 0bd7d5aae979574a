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
	"time"
)

// Group tracks a batch of tasks submitted to a lane and signals when all of them have completed.
// It is the "submit a group of tasks and obtain a completion signal" capability: terminal stream
// and channel operations use it to learn when every scheduled handler invocation has returned.
//
// A Group may be reused: notifications fire every time the count of in-flight tasks drops to zero.
type Group struct {
	// Lane to which tasks (and fired notifications) are submitted.
	lane Lane

	// Guards active and notifications.
	mutex sync.Mutex

	// Number of submitted tasks that have not completed yet.
	active int

	// Callbacks to fire when active drops to zero.
	notifications []func()
}

// NewGroup creates a Group that submits its tasks to the given lane.
func NewGroup(lane Lane) *Group {
	return &Group{lane: lane}
}

// Submit submits a task to the group's lane and counts it as in flight until its Run returns.
func (group *Group) Submit(task Task) error {
	mutex := &group.mutex
	mutex.Lock()
	group.active++
	mutex.Unlock()

	err := group.lane.Submit(TaskFunc(func() {
		task.Run()
		group.leave()
	}))
	if err != nil {
		// The lane rejected the task; it will never run, so uncount it.
		group.leave()
	}
	return err
}

// Notify registers fn to be submitted to the group's lane once all in-flight tasks have completed.
// If the group is already idle, fn is submitted immediately. fn runs asynchronously in both cases.
func (group *Group) Notify(fn func()) {
	mutex := &group.mutex
	mutex.Lock()
	if group.active == 0 {
		mutex.Unlock()
		group.submitNotification(fn)
		return
	}
	group.notifications = append(group.notifications, fn)
	mutex.Unlock()
}

// Wait blocks the calling goroutine until all in-flight tasks have completed, or until the timeout
// expires (a timeout of zero or less waits indefinitely). The in-flight tasks are unaffected by a
// timed-out Wait.
func (group *Group) Wait(timeout time.Duration) error {
	sem := NewSemaphore()
	group.Notify(sem.Signal)
	return sem.Wait(timeout)
}

// leave records completion of one task and fires pending notifications if it was the last one.
func (group *Group) leave() {
	mutex := &group.mutex
	mutex.Lock()
	group.active--
	if group.active > 0 {
		mutex.Unlock()
		return
	}
	notifications := group.notifications
	group.notifications = nil
	mutex.Unlock()

	for _, fn := range notifications {
		group.submitNotification(fn)
	}
}

// submitNotification schedules fn on the group's lane, falling back to the default lane if the
// lane rejects it: a completion notification that has been promised must not be silently dropped,
// or a Wait would park forever.
func (group *Group) submitNotification(fn func()) {
	task := TaskFunc(fn)
	if err := group.lane.Submit(task); err != nil {
		DefaultLane().Submit(task)
	}
}
