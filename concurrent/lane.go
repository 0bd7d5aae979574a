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

// Package concurrent provides the worker-lane scheduler consumed by the
// asynchronous primitives in this module. A lane is an execution context to
// which units of work are submitted: concurrent lanes (WorkerPoolLane) run
// tasks in parallel with an unspecified degree, serial lanes (SerialLane) run
// them strictly in submission order. A serial lane may target another lane,
// delegating the actual execution onto it.
//
// Ordering guarantees hold only within a single serial lane. Across different
// lanes, or between a concurrent lane's own tasks, no ordering is implied.
// There is no cancellation: once a task is accepted it runs to completion.
package concurrent

// Task represents an instance that can be executed by a Lane. Tasks carry no
// return value; results of asynchronous work flow through completion cells
// (see the future package) rather than through the scheduler.
type Task interface {
	// Run performs actions to complete a Task.
	Run()
}

// The TaskFunc type is an adapter to allow the use of ordinary functions as a Task.
type TaskFunc func()

// TaskFunc implements Task.
var _ Task = (TaskFunc)(nil)

// Run implements Task. It calls f().
func (f TaskFunc) Run() {
	f()
}

// Lane provides the interface to submit tasks to an execution context.
type Lane interface {
	// Submit submits a task for execution. The method only arranges task for execution. The actual
	// execution may occur sometime later.
	Submit(task Task) error
}
