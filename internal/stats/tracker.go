// Package stats tracks arrival rate and frame-counter gaps for a
// Session's measurement stream, for diagnostic and demo display only.
// It never reorders, coalesces, or otherwise affects delivery.
package stats

import (
	"sync"
	"time"
)

// Constants for loss tracking.
const (
	// lossWindowDuration is the time window for recent loss calculation.
	lossWindowDuration = time.Minute
	// restartThreshold is the forward frame-counter gap at or above which
	// we assume a controller restart rather than massive loss.
	restartThreshold = 100000
)

// FrameEvent records a single arrival for sliding-window loss tracking.
type FrameEvent struct {
	Timestamp time.Time
	Received  uint64
	Lost      uint64
}

// Tracker tracks frame-counter-gap and arrival-rate statistics for one
// measurement stream.
type Tracker struct {
	mu sync.RWMutex

	haveLast       bool
	lastFrameCount uint32
	frameCount     uint64
	lostFrames     uint64
	outOfOrder     uint64
	lastArrival    time.Time

	framesInWindow []time.Time  // for rate calculation
	lossWindow     []FrameEvent // for sliding-window loss calculation

	rateWindow time.Duration
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{rateWindow: time.Second}
}

// RecordFrame records the arrival of a snapshot carrying the given
// frame counter. Out-of-order and duplicate arrivals are counted but
// never rejected; the caller remains responsible for delivering them
// as observed.
func (t *Tracker) RecordFrame(frameCounter uint32) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.frameCount++
	t.lastArrival = now

	t.framesInWindow = append(t.framesInWindow, now)
	cutoff := now.Add(-t.rateWindow)
	newWindow := t.framesInWindow[:0]
	for _, pt := range t.framesInWindow {
		if pt.After(cutoff) {
			newWindow = append(newWindow, pt)
		}
	}
	t.framesInWindow = newWindow

	var lostThisFrame uint64
	if t.haveLast {
		switch {
		case frameCounter == t.lastFrameCount+1:
			// expected case, no gap
		case frameCounter > t.lastFrameCount:
			gap := uint64(frameCounter - t.lastFrameCount - 1)
			if gap < restartThreshold {
				lostThisFrame = gap
				t.lostFrames += lostThisFrame
			}
			// gap >= restartThreshold: treat as controller restart, no loss counted
		default:
			t.outOfOrder++
		}
	}

	t.lossWindow = append(t.lossWindow, FrameEvent{
		Timestamp: now,
		Received:  1,
		Lost:      lostThisFrame,
	})
	lossCutoff := now.Add(-lossWindowDuration)
	newLossWindow := t.lossWindow[:0]
	for _, evt := range t.lossWindow {
		if evt.Timestamp.After(lossCutoff) {
			newLossWindow = append(newLossWindow, evt)
		}
	}
	t.lossWindow = newLossWindow

	if !t.haveLast || frameCounter > t.lastFrameCount {
		t.lastFrameCount = frameCounter
	}
	t.haveLast = true
}

// FrameCount returns the total number of frames recorded.
func (t *Tracker) FrameCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frameCount
}

// LostFrames returns the cumulative count of frame-counter gaps
// attributed to loss rather than a counter restart.
func (t *Tracker) LostFrames() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lostFrames
}

// OutOfOrderFrames returns the count of arrivals whose frame counter
// did not exceed the highest one seen so far.
func (t *Tracker) OutOfOrderFrames() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.outOfOrder
}

// FrameRate returns frames per second over the trailing rate window.
func (t *Tracker) FrameRate() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	cutoff := now.Add(-t.rateWindow)
	count := 0
	for _, pt := range t.framesInWindow {
		if pt.After(cutoff) {
			count++
		}
	}
	return float64(count) / t.rateWindow.Seconds()
}

// LossPercentage returns cumulative loss as a percentage of frames
// that should have arrived (FrameCount + LostFrames).
func (t *Tracker) LossPercentage() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	totalExpected := t.frameCount + t.lostFrames
	if totalExpected == 0 {
		return 0
	}
	return float64(t.lostFrames) / float64(totalExpected) * 100
}

// RecentLossPercentage returns loss percentage over the last minute.
func (t *Tracker) RecentLossPercentage() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	cutoff := now.Add(-lossWindowDuration)

	var totalReceived, totalLost uint64
	for _, evt := range t.lossWindow {
		if evt.Timestamp.After(cutoff) {
			totalReceived += evt.Received
			totalLost += evt.Lost
		}
	}

	totalExpected := totalReceived + totalLost
	if totalExpected == 0 {
		return 0
	}
	return float64(totalLost) / float64(totalExpected) * 100
}

// LastArrival returns the time of the most recent RecordFrame call,
// and whether any frame has been recorded yet.
func (t *Tracker) LastArrival() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastArrival, t.haveLast
}

// Reset clears all tracked statistics.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haveLast = false
	t.frameCount = 0
	t.lostFrames = 0
	t.outOfOrder = 0
	t.framesInWindow = nil
	t.lossWindow = nil
}
