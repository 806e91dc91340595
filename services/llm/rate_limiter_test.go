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
	"testing"
	"time"
)

// limiterAt pins the limiter to a controllable clock.
func limiterAt(perMin int, clock *time.Time) *CallLimiter {
	l := NewCallLimiter(perMin)
	l.now = func() time.Time { return *clock }
	return l
}

func TestCallLimiterAllowsUpToBudget(t *testing.T) {
	clock := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	l := limiterAt(3, &clock)

	for i := 0; i < 3; i++ {
		ok, wait := l.Allow()
		if !ok || wait != 0 {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	ok, wait := l.Allow()
	if ok {
		t.Fatal("fourth call within the window should be limited")
	}
	if wait != callWindow {
		t.Errorf("retry-after = %v, want %v", wait, callWindow)
	}
}

func TestCallLimiterWindowSlides(t *testing.T) {
	clock := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	l := limiterAt(1, &clock)

	if ok, _ := l.Allow(); !ok {
		t.Fatal("first call should be admitted")
	}

	clock = clock.Add(30 * time.Second)
	ok, wait := l.Allow()
	if ok {
		t.Fatal("second call inside the window should be limited")
	}
	if wait != 30*time.Second {
		t.Errorf("retry-after = %v, want 30s", wait)
	}

	clock = clock.Add(31 * time.Second)
	if ok, _ := l.Allow(); !ok {
		t.Fatal("call after the window slid past the first one should be admitted")
	}
}

func TestCallLimiterZeroBudgetMeansUnlimited(t *testing.T) {
	l := NewCallLimiter(0)
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow(); !ok {
			t.Fatal("a zero budget must never limit")
		}
	}
}
