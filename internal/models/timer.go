package models

import "time"

// TimerType distinguishes the primary answer clock from the shorter steal clock.
type TimerType string

const (
	TimerPrimary TimerType = "primary"
	TimerSteal   TimerType = "steal"
)

// TimerStatus defines whether a timer is counting down or frozen.
type TimerStatus string

const (
	TimerRunning TimerStatus = "running"
	TimerPaused  TimerStatus = "paused"
)

// Timer is a pure value type describing one countdown. While running, the
// Deadline is authoritative and RemainingMs is only a display hint; readers
// must recompute remaining time from the deadline.
type Timer struct {
	Type        TimerType   `json:"type" bson:"type"`
	Status      TimerStatus `json:"status" bson:"status"`
	DurationMs  int64       `json:"duration_ms" bson:"duration_ms"`
	RemainingMs int64       `json:"remaining_ms" bson:"remaining_ms"`
	StartedAt   time.Time   `json:"started_at" bson:"started_at"`
	Deadline    time.Time   `json:"deadline,omitempty" bson:"deadline,omitempty"`
}

// NewRunningTimer anchors a fresh countdown at now.
func NewRunningTimer(typ TimerType, duration time.Duration, now time.Time) Timer {
	return Timer{
		Type:        typ,
		Status:      TimerRunning,
		DurationMs:  duration.Milliseconds(),
		RemainingMs: duration.Milliseconds(),
		StartedAt:   now,
		Deadline:    now.Add(duration),
	}
}

// Pause freezes the remaining time and clears the deadline.
func (t Timer) Pause(now time.Time) Timer {
	if t.Status != TimerRunning {
		return t
	}
	rem := t.Deadline.Sub(now)
	if rem < 0 {
		rem = 0
	}
	t.Status = TimerPaused
	t.RemainingMs = rem.Milliseconds()
	t.Deadline = time.Time{}
	return t
}

// Resume re-anchors a fresh deadline from the frozen remaining time.
func (t Timer) Resume(now time.Time) Timer {
	if t.Status != TimerPaused {
		return t
	}
	t.Status = TimerRunning
	t.StartedAt = now
	t.Deadline = now.Add(time.Duration(t.RemainingMs) * time.Millisecond)
	return t
}

// Remaining recomputes the live remaining duration. For a running timer this
// is derived from the deadline, never from the stored RemainingMs.
func (t Timer) Remaining(now time.Time) time.Duration {
	if t.Status == TimerPaused {
		return time.Duration(t.RemainingMs) * time.Millisecond
	}
	rem := t.Deadline.Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// Expired reports whether a running timer's deadline has passed.
func (t Timer) Expired(now time.Time) bool {
	return t.Status == TimerRunning && !now.Before(t.Deadline)
}
