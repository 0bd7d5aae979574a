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
	"math"
	"sync"
	"time"
)

var defaultLane struct {
	once sync.Once
	lane *WorkerPoolLane
}

// DefaultLane returns the process-wide concurrent lane. It is effectively unbounded (workers are
// created on demand and reaped when idle), is never shut down, and cannot be made the delegate of
// a cycle: worker pool lanes have no target, so nothing a caller schedules can make this lane wait
// on itself. Completion cells anchor their waiter dispatch here for exactly that reason.
func DefaultLane() Lane {
	defaultLane.once.Do(func() {
		lane, err := NewWorkerPoolLane(WorkerPoolLaneConfig{
			MaxPoolSize:   math.MaxUint32,
			KeepAliveTime: 10 * time.Second,
		})
		if err != nil {
			// The config above is statically valid.
			panic(err)
		}
		defaultLane.lane = lane
	})
	return defaultLane.lane
}
