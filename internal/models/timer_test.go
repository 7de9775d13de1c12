package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPauseResumeKeepsRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timer := NewRunningTimer(TimerPrimary, 30*time.Second, start)

	assert.Equal(t, start.Add(30*time.Second), timer.Deadline)
	assert.Equal(t, int64(30000), timer.RemainingMs)

	paused := timer.Pause(start.Add(12 * time.Second))
	assert.Equal(t, TimerPaused, paused.Status)
	assert.Equal(t, int64(18000), paused.RemainingMs)
	assert.True(t, paused.Deadline.IsZero())

	// however long the pause lasts, the resume re-anchors exactly
	resumeAt := start.Add(2 * time.Hour)
	resumed := paused.Resume(resumeAt)
	assert.Equal(t, TimerRunning, resumed.Status)
	assert.Equal(t, resumeAt.Add(18*time.Second), resumed.Deadline)
}

func TestTimerPauseAfterDeadlineClampsToZero(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timer := NewRunningTimer(TimerSteal, 15*time.Second, start)

	paused := timer.Pause(start.Add(20 * time.Second))
	assert.Equal(t, int64(0), paused.RemainingMs)
}

func TestTimerRemainingDerivedFromDeadline(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timer := NewRunningTimer(TimerPrimary, 30*time.Second, start)

	// the stored hint is stale on purpose; remaining always follows the clock
	timer.RemainingMs = 1

	assert.Equal(t, 25*time.Second, timer.Remaining(start.Add(5*time.Second)))
	assert.Equal(t, time.Duration(0), timer.Remaining(start.Add(time.Minute)))
}

func TestTimerExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timer := NewRunningTimer(TimerPrimary, 30*time.Second, start)

	assert.False(t, timer.Expired(start.Add(29*time.Second)))
	assert.True(t, timer.Expired(start.Add(30*time.Second)))

	paused := timer.Pause(start)
	assert.False(t, paused.Expired(start.Add(time.Hour)))
}

func TestTimerPauseResumeNoOpOnWrongStatus(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timer := NewRunningTimer(TimerPrimary, 30*time.Second, start)

	assert.Equal(t, timer, timer.Resume(start))
	paused := timer.Pause(start)
	assert.Equal(t, paused, paused.Pause(start.Add(time.Second)))
}
