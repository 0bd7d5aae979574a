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
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrSemaphoreWaitTimeout is returned by Wait to indicate no signal arrived within the timeout.
var ErrSemaphoreWaitTimeout = errors.New("semaphore: wait timeout")

// Semaphore is a counting semaphore starting at zero: every Wait must be matched by a Signal. It
// is the parking primitive behind the blocking future adapters.
//
// The implementation rides on golang.org/x/sync/semaphore: the weighted semaphore is created with
// the maximum capacity and immediately drained, so Signal releases one unit of credit and Wait
// acquires one.
type Semaphore struct {
	sem *semaphore.Weighted
}

// NewSemaphore creates a Semaphore with a count of zero.
func NewSemaphore() *Semaphore {
	sem := semaphore.NewWeighted(math.MaxInt64)
	// Cannot fail: nothing else holds a reference yet.
	sem.TryAcquire(math.MaxInt64)
	return &Semaphore{sem: sem}
}

// Signal increments the count, unblocking one waiter.
func (s *Semaphore) Signal() {
	s.sem.Release(1)
}

// Wait blocks the calling goroutine until the count is positive, then decrements it. A timeout
// greater than zero bounds the wait; ErrSemaphoreWaitTimeout is returned when it expires. A
// timeout of zero (or less) waits indefinitely.
func (s *Semaphore) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		return s.sem.Acquire(context.Background(), 1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return ErrSemaphoreWaitTimeout
	}
	return nil
}
