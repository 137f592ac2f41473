package state

import "time"

// Staleness classifies feed health by the age of the last update.
type Staleness string

const (
	StalenessWaiting Staleness = "WAITING"
	StalenessActive  Staleness = "ACTIVE"
	StalenessSlow    Staleness = "SLOW"
	StalenessStale   Staleness = "STALE"
)

// Thresholds bound the classes: age < SlowAfter is ACTIVE, age < StaleAfter
// is SLOW, anything older is STALE.
type Thresholds struct {
	SlowAfter  time.Duration
	StaleAfter time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowAfter:  1 * time.Second,
		StaleAfter: 3 * time.Second,
	}
}

// Classify returns the class and age for an update at last observed at now.
// A zero last means no update was ever received.
func Classify(last, now time.Time, th Thresholds) (Staleness, time.Duration) {
	if last.IsZero() {
		return StalenessWaiting, 0
	}
	age := now.Sub(last)
	if age < 0 {
		age = 0
	}
	switch {
	case age < th.SlowAfter:
		return StalenessActive, age
	case age < th.StaleAfter:
		return StalenessSlow, age
	default:
		return StalenessStale, age
	}
}

// Staleness classifies the snapshot at now.
func (s Snapshot) Staleness(now time.Time, th Thresholds) (Staleness, time.Duration) {
	return Classify(s.LastUpdate, now, th)
}
