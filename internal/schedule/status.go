package schedule

import "time"

// Status thresholds relative to the scheduled instant.
const (
	DueSoonWindow   = 30 * time.Minute
	LateThreshold   = 15 * time.Minute
	MissedThreshold = 60 * time.Minute
)

// Status is a coarse view of a cat's feeding state.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusDueSoon  Status = "due_soon"
	StatusOnTime   Status = "on_time"
	StatusLate     Status = "late"
	StatusMissed   Status = "missed"
)

// Classify places now relative to the scheduled feeding time.
func Classify(scheduled, now time.Time) Status {
	diff := now.Sub(scheduled)
	switch {
	case diff > MissedThreshold:
		return StatusMissed
	case diff > LateThreshold:
		return StatusLate
	case diff >= 0:
		return StatusOnTime
	case -diff <= DueSoonWindow:
		return StatusDueSoon
	default:
		return StatusUpcoming
	}
}
