// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package guard

import (
	"testing"
	"time"
)

func TestQuotaTrackerHourlyLimit(t *testing.T) {
	t.Parallel()

	q := NewQuotaTracker(3, 100)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := q.CheckAndReserve("1.2.3.4", now); err != nil {
			t.Fatalf("send %d rejected: %v", i+1, err)
		}
	}

	err := q.CheckAndReserve("1.2.3.4", now)
	if err == nil || err.Code != CodeRateLimited {
		t.Fatalf("got %v, want RATE_LIMITED", err)
	}

	// A different source has its own window.
	if err := q.CheckAndReserve("5.6.7.8", now); err != nil {
		t.Fatalf("independent source rejected: %v", err)
	}
}

func TestQuotaTrackerHourlyWindowAges(t *testing.T) {
	t.Parallel()

	q := NewQuotaTracker(2, 100)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := q.CheckAndReserve("src", now); err != nil {
		t.Fatal(err)
	}
	if err := q.CheckAndReserve("src", now.Add(30*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := q.CheckAndReserve("src", now.Add(45*time.Minute)); err == nil {
		t.Fatal("third send within the hour should be rejected")
	}

	// 61 minutes after the first send only one timestamp remains in the
	// window.
	if err := q.CheckAndReserve("src", now.Add(61*time.Minute)); err != nil {
		t.Fatalf("send after window aged out rejected: %v", err)
	}
}

func TestQuotaTrackerDailyCap(t *testing.T) {
	t.Parallel()

	q := NewQuotaTracker(1000, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Spread across sources so the hourly limit never interferes.
	if err := q.CheckAndReserve("a", now); err != nil {
		t.Fatal(err)
	}
	if err := q.CheckAndReserve("b", now); err != nil {
		t.Fatal(err)
	}

	err := q.CheckAndReserve("c", now)
	if err == nil || err.Code != CodeDailyCapReached {
		t.Fatalf("got %v, want DAILY_CAP_REACHED", err)
	}

	if got := q.RemainingToday(now); got != 0 {
		t.Errorf("RemainingToday = %d, want 0", got)
	}
}

func TestQuotaTrackerDailyCapResetsAtMidnightUTC(t *testing.T) {
	t.Parallel()

	q := NewQuotaTracker(1000, 1)
	evening := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)

	if err := q.CheckAndReserve("a", evening); err != nil {
		t.Fatal(err)
	}
	if err := q.CheckAndReserve("b", evening); err == nil {
		t.Fatal("second send should hit the daily cap")
	}

	nextDay := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	if got := q.RemainingToday(nextDay); got != 1 {
		t.Errorf("RemainingToday after rollover = %d, want 1", got)
	}
	if err := q.CheckAndReserve("b", nextDay); err != nil {
		t.Fatalf("send after rollover rejected: %v", err)
	}
}

func TestQuotaTrackerRemainingToday(t *testing.T) {
	t.Parallel()

	q := NewQuotaTracker(1000, 100)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := q.RemainingToday(now); got != 100 {
		t.Errorf("fresh tracker RemainingToday = %d, want 100", got)
	}
	if err := q.CheckAndReserve("a", now); err != nil {
		t.Fatal(err)
	}
	if got := q.RemainingToday(now); got != 99 {
		t.Errorf("RemainingToday = %d, want 99", got)
	}
	if got := q.DailyLimit(); got != 100 {
		t.Errorf("DailyLimit = %d, want 100", got)
	}
}
