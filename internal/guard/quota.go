// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package guard

import (
	"sync"
	"time"
)

// QuotaTracker enforces two send budgets: a rolling-hour limit per
// source (caller IP) and a global per-UTC-day cap. State is process
// local; a restart clears both windows.
type QuotaTracker struct {
	mu        sync.Mutex
	hourlyMax int
	dailyMax  int

	// per-source timestamps within the last hour
	hourly map[string][]time.Time

	// single counter keyed by UTC date
	dayKey   string
	dayCount int
}

// NewQuotaTracker creates a tracker with the given per-hour and
// per-day ceilings.
func NewQuotaTracker(hourlyMax, dailyMax int) *QuotaTracker {
	return &QuotaTracker{
		hourlyMax: hourlyMax,
		dailyMax:  dailyMax,
		hourly:    make(map[string][]time.Time),
	}
}

// CheckAndReserve verifies both budgets for the given source and, when
// both pass, records the send against them in the same critical
// section. The reservation happens before the provider call, so a
// failed provider request still consumes quota.
func (q *QuotaTracker) CheckAndReserve(source string, now time.Time) *SendError {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := now.Add(-time.Hour)
	recent := q.hourly[source][:0]
	for _, t := range q.hourly[source] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	q.hourly[source] = recent

	if len(recent) >= q.hourlyMax {
		return newSendError(CodeRateLimited, "hourly send limit reached, try again later")
	}

	key := now.UTC().Format("2006-01-02")
	if key != q.dayKey {
		q.dayKey = key
		q.dayCount = 0
	}
	if q.dayCount >= q.dailyMax {
		return newSendError(CodeDailyCapReached, "daily send limit reached")
	}

	q.hourly[source] = append(recent, now)
	q.dayCount++
	return nil
}

// RemainingToday returns how many sends are left under the daily cap.
func (q *QuotaTracker) RemainingToday(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if now.UTC().Format("2006-01-02") != q.dayKey {
		return q.dailyMax
	}
	remaining := q.dailyMax - q.dayCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DailyLimit returns the configured per-day ceiling.
func (q *QuotaTracker) DailyLimit() int {
	return q.dailyMax
}
