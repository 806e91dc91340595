// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"sync"
	"time"
)

// callWindow is the span the per-minute formatter budget applies to.
const callWindow = time.Minute

// CallLimiter caps formatting calls over a sliding one-minute window.
//
// Description:
//
//	The pipeline makes at most one formatting call per query, so a
//	single shared budget is enough: Allow trims call times that have
//	slid out of the window and admits the call if the budget has
//	room. When it does not, the returned duration says when the
//	oldest in-window call expires and a retry can succeed.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type CallLimiter struct {
	mu     sync.Mutex
	perMin int
	calls  []time.Time // in-window call times, oldest first
	now    func() time.Time
}

// NewCallLimiter creates a limiter admitting perMin calls per minute.
// A zero or negative budget disables limiting.
func NewCallLimiter(perMin int) *CallLimiter {
	return &CallLimiter{perMin: perMin, now: time.Now}
}

// Allow reports whether a formatting call fits the budget, recording
// it when it does.
//
// Outputs:
//   - bool: True if the call is admitted.
//   - time.Duration: When limited, how long until a retry can
//     succeed. Zero when admitted.
func (l *CallLimiter) Allow() (bool, time.Duration) {
	if l.perMin <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-callWindow)
	for len(l.calls) > 0 && !l.calls[0].After(cutoff) {
		l.calls = l.calls[1:]
	}

	if len(l.calls) >= l.perMin {
		return false, l.calls[0].Add(callWindow).Sub(now)
	}
	l.calls = append(l.calls, now)
	return true, 0
}
