// Package clock maps wall-clock time onto the engine's virtual timeline.
// The compression factor is always an explicit parameter so the same code
// path runs at production speed and under test compression alike.
package clock

import (
	"math"
	"time"
)

// ScaleDuration divides a duration by timeScale, flooring to an integer
// number of milliseconds and clamping to at least 1ms so heavy compression
// never produces a zero-length wait.
func ScaleDuration(d time.Duration, timeScale float64) time.Duration {
	if timeScale <= 0 {
		timeScale = 1
	}
	ms := math.Floor(float64(d.Milliseconds()) / timeScale)
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

// StepAt converts elapsed time since startedAt into a step index clamped to
// [1, totalSteps]. now at or before startedAt is step 1.
func StepAt(startedAt, now time.Time, stepInterval time.Duration, totalSteps int) int {
	if totalSteps < 1 {
		totalSteps = 1
	}
	if !now.After(startedAt) || stepInterval <= 0 {
		return 1
	}
	step := int(now.Sub(startedAt)/stepInterval) + 1
	if step < 1 {
		step = 1
	}
	if step > totalSteps {
		step = totalSteps
	}
	return step
}

// StepInfo is a step index plus fractional progress within that step,
// used to interpolate a moving agent between two waypoints.
type StepInfo struct {
	Step     int
	Progress float64 // [0, 1] within Step
}

// StepInfoAt returns the same step index as StepAt along with progress
// through it. At a step boundary progress is exactly 0 at the step's start
// and 1 at its end.
func StepInfoAt(startedAt, now time.Time, stepInterval time.Duration, totalSteps int) StepInfo {
	step := StepAt(startedAt, now, stepInterval, totalSteps)
	if stepInterval <= 0 {
		return StepInfo{Step: step, Progress: 1}
	}
	stepStart := startedAt.Add(time.Duration(step-1) * stepInterval)
	progress := float64(now.Sub(stepStart)) / float64(stepInterval)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return StepInfo{Step: step, Progress: progress}
}
