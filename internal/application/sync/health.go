package sync

import (
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sync Health
// ---------------------------------------------------------------------------

// errorWindow bounds how far back sync errors count toward the health view.
const errorWindow = time.Hour

// HealthSnapshot is a point-in-time view of sync health.
type HealthSnapshot struct {
	// LastPollAt is when the last full polling sweep completed (zero if never)
	LastPollAt time.Time `json:"last_poll_at"`
	// TotalSynced counts orders created or updated since process start
	TotalSynced int64 `json:"total_synced"`
	// RecentErrors counts sync errors within the error window
	RecentErrors int `json:"recent_errors"`
}

// Health accumulates process-local sync telemetry. Counters reset on restart;
// this is an operational surface, not an audit trail.
type Health struct {
	mu          sync.Mutex
	lastPollAt  time.Time
	totalSynced int64
	errorTimes  []time.Time
}

// NewHealth creates a new Health.
func NewHealth() *Health {
	return &Health{}
}

// RecordPoll records the completion of a full polling sweep.
func (h *Health) RecordPoll(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastPollAt = at
}

// RecordSynced adds to the count of orders created or updated.
func (h *Health) RecordSynced(n int) {
	if n <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totalSynced += int64(n)
}

// RecordError records a sync error occurrence.
func (h *Health) RecordError(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorTimes = append(h.errorTimes, at)
	h.pruneLocked(at)
}

// Snapshot returns the current health view.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked(time.Now())
	return HealthSnapshot{
		LastPollAt:   h.lastPollAt,
		TotalSynced:  h.totalSynced,
		RecentErrors: len(h.errorTimes),
	}
}

// pruneLocked drops errors older than the window. Caller holds mu.
func (h *Health) pruneLocked(now time.Time) {
	cutoff := now.Add(-errorWindow)
	kept := h.errorTimes[:0]
	for _, t := range h.errorTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	h.errorTimes = kept
}
