package schedule

import "time"

// DefaultDuplicateWindow is how close two feedings of one cat may be before
// the second is treated as a duplicate.
const DefaultDuplicateWindow = 5 * time.Minute

// IsDuplicate reports whether a feeding at now repeats the one at last.
// The gap counts in both directions, so a backdated feeding is a duplicate
// only when it lands within window of last. A zero last means the cat has
// no history.
func IsDuplicate(last, now time.Time, window time.Duration) bool {
	if last.IsZero() {
		return false
	}
	gap := now.Sub(last)
	if gap < 0 {
		gap = -gap
	}
	return gap < window
}
